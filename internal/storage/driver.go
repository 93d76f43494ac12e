package storage

import (
	"database/sql"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the sql.Open driver name Scout registers, layering a
// "regexp" SQL function on top of the stock sqlite3 driver so the
// search engine's regex metadata filter op has somewhere to run. The
// engine is still an external collaborator per the storage schema
// documentation; this only wires the one function SQLite itself does
// not ship.
const DriverName = "sqlite3_scout"

var registerOnce sync.Once

func init() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", regexpFunc, true)
			},
		})
	})
}

func regexpFunc(pattern, value string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(value), nil
}
