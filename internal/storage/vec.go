package storage

import (
	"database/sql"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers the sqlite-vec extension as an auto-extension so every
	// connection opened through database/sql picks it up without a
	// per-connection load step.
	sqlite_vec.Auto()
}

// detectVecExtension probes whether the sqlite-vec extension is loaded on
// this connection by calling its vec_version() function, before deciding
// whether to use the accelerated path or fall back to a pure-Go scan.
func detectVecExtension(db *sql.DB) bool {
	var version string
	if err := db.QueryRow(`SELECT vec_version()`).Scan(&version); err != nil {
		return false
	}
	return true
}
