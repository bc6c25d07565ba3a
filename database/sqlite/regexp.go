package sqlite

import (
	"database/sql"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// driverName is go-sqlite3 with a REGEXP function added to every connection.
const driverName = "sqlite3_regexp"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// compiled patterns, keyed by pattern source
var patternCache sync.Map

// regexpMatch implements `value REGEXP pattern`, sqlite calls it as
// regexp(pattern, value).
func regexpMatch(pattern, value string) (bool, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp).MatchString(value), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	patternCache.Store(pattern, re)
	return re.MatchString(value), nil
}
