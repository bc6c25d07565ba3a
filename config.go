package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configName = "filmbrowser"

type cfgMain struct {
	Listen   cfgListen
	Database cfgDatabase
	// Posterdir holds the poster images films refer to.
	Posterdir string
	// Cachedir holds resized posters.
	Cachedir string
	Admin    struct {
		// PasswordHash is the bcrypt hash of the admin password, write
		// requests are not authenticated if empty.
		PasswordHash string
	}
	Search struct {
		Limit     int
		Stopwords []string
	}
	Log cfgLog
	// Import is a library dump to load at startup.
	Import string
}

type cfgListen struct {
	Port    int
	TlsCert string
	TlsKey  string
}

type cfgDatabase struct {
	Type     string
	Filename string
}

type cfgLog struct {
	Level  string
	Format string
	// File is a path, or 'syslog', 'stdout' or 'none'.
	File string
}

// loadConfig reads the configuration file, environment and command line,
// in increasing order of precedence.
func loadConfig(args []string) (*cfgMain, error) {
	v := viper.New()
	// every key needs a default for environment overrides to be unmarshalled
	v.SetDefault("listen.port", 8080)
	v.SetDefault("listen.tlscert", "")
	v.SetDefault("listen.tlskey", "")
	v.SetDefault("posterdir", "")
	v.SetDefault("cachedir", "")
	v.SetDefault("admin.passwordhash", "")
	v.SetDefault("search.stopwords", []string{})
	v.SetDefault("import", "")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.filename", "filmbrowser.db")
	v.SetDefault("search.limit", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "stdout")

	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	configFile := flags.String("config", "", "Path of configuration file.")
	flags.Int("listen.port", 8080, "Port to listen on.")
	flags.String("database.filename", "", "Path of the sqlite database.")
	flags.String("logfile", "",
		"Path of logfile. Use 'syslog' for syslog, 'stdout' "+
			"for standard output, or 'none' to disable logging.")
	flags.String("import", "", "Library dump (json) to import at startup.")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	for key, flag := range map[string]string{
		"listen.port":       "listen.port",
		"database.filename": "database.filename",
		"log.file":          "logfile",
		"import":            "import",
	} {
		f := flags.Lookup(flag)
		// only flags given on the command line override the file
		if !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("FILMBROWSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/filmbrowser")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config cfgMain
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if config.Listen.Port <= 0 || config.Listen.Port > 65535 {
		return nil, fmt.Errorf("invalid listen port %d", config.Listen.Port)
	}
	if (config.Listen.TlsCert == "") != (config.Listen.TlsKey == "") {
		return nil, errors.New("listen.tlscert and listen.tlskey must be set together")
	}
	return &config, nil
}
