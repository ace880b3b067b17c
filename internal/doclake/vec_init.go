//go:build sqlite_vec && cgo

package doclake

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Building with -tags sqlite_vec against a cgo-enabled sqlite3 driver
// registers the sqlite-vec extension so a future cgo-backed catalog
// connection could push VectorSearchSymbols/VectorSearchChunks down into
// SQL instead of scanning Parquet rows in Go. The default build
// (modernc.org/sqlite, no cgo) never takes this path; CosineDistance in
// vector.go is what actually runs there.
func init() {
	vec.Auto()
}
