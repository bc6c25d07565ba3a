package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/syslog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/erikbos/filmbrowser/api"
	"github.com/erikbos/filmbrowser/collection"
	"github.com/erikbos/filmbrowser/database"
	"github.com/erikbos/filmbrowser/imageresize"
	"github.com/erikbos/filmbrowser/muxnormalizer"
	"github.com/erikbos/filmbrowser/search"
)

func main() {
	config, err := loadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logw, err := setupLogging(config.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logw.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("type", config.Database.Type).Str("file", config.Database.Filename).Msg("opening database")
	repo, err := database.New(&database.Options{
		Type:     config.Database.Type,
		Filename: config.Database.Filename,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database.New")
	}
	if c, ok := repo.(io.Closer); ok {
		defer c.Close()
	}

	var stopwords search.StopWords
	if len(config.Search.Stopwords) > 0 {
		stopwords = search.NewStopWords(config.Search.Stopwords...)
	}
	c := collection.New(&collection.Options{
		Repo:        repo,
		StopWords:   stopwords,
		SearchLimit: config.Search.Limit,
	})

	if config.Import != "" {
		if err := importLibrary(ctx, c, config.Import); err != nil {
			log.Fatal().Err(err).Str("file", config.Import).Msg("import failed")
		}
	} else if err := c.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("building search index")
	}

	resizer := imageresize.New(imageresize.Options{
		Cachedir: config.Cachedir,
	})

	r := mux.NewRouter()
	api.New(&api.Options{
		Collection:        c,
		Imageresizer:      resizer,
		PosterDir:         config.Posterdir,
		AdminPasswordHash: config.Admin.PasswordHash,
	}).RegisterHandlers(r)

	normalizer, err := muxnormalizer.New(r)
	if err != nil {
		log.Fatal().Err(err).Msg("muxnormalizer.New")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Listen.Port),
		Handler:           HttpLog(normalizer.Middleware(r)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if config.Listen.TlsCert != "" && config.Listen.TlsKey != "" {
		kpr, err := NewKeypairReloader(ctx, config.Listen.TlsCert, config.Listen.TlsKey)
		if err != nil {
			log.Fatal().Err(err).Msg("error loading keypair")
		}
		srv.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS13,
			GetCertificate: kpr.GetCertificateFunc(),
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	if srv.TLSConfig != nil {
		log.Info().Str("addr", srv.Addr).Msg("serving HTTPS")
		err = srv.ListenAndServeTLS("", "")
	} else {
		log.Info().Str("addr", srv.Addr).Msg("serving HTTP")
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func importLibrary(ctx context.Context, c *collection.CollectionRepo, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	log.Info().Str("file", filename).Msg("importing library")
	return c.Import(ctx, f)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging points the global logger at the configured destination.
func setupLogging(config cfgLog) (io.Closer, error) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer
	var closer io.Closer = nopCloser{}
	switch config.File {
	case "syslog":
		logw, err := syslog.New(syslog.LOG_NOTICE, "filmbrowser")
		if err != nil {
			return nil, fmt.Errorf("error opening syslog: %w", err)
		}
		out, closer = logw, logw
	case "none":
		out = io.Discard
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "", "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(config.File,
			os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("error opening file: %w", err)
		}
		out, closer = f, f
	}

	if config.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: out != os.Stdout}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

type keypairReloader struct {
	certMu   sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

// NewKeypairReloader creates a new keypair reloader that will reload the TLS certificate
// and key from the specified paths every 15 seconds, until ctx is done. If the certificate
// cannot be loaded, it will log an error and keep the old certificate in use.
func NewKeypairReloader(ctx context.Context, certPath, keyPath string) (*keypairReloader, error) {
	result := &keypairReloader{
		certPath: certPath,
		keyPath:  keyPath,
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	result.cert = &cert

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := result.maybeReload(); err != nil {
				log.Warn().Err(err).Msg("keeping old TLS certificate because the new one could not be loaded")
			}
		}
	}()
	return result, nil
}

func (kpr *keypairReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(clientHello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		kpr.certMu.RLock()
		defer kpr.certMu.RUnlock()
		return kpr.cert, nil
	}
}

func (kpr *keypairReloader) maybeReload() error {
	newCert, err := tls.LoadX509KeyPair(kpr.certPath, kpr.keyPath)
	if err != nil {
		return err
	}
	kpr.certMu.Lock()
	defer kpr.certMu.Unlock()
	kpr.cert = &newCert
	return nil
}
