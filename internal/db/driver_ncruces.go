//go:build !sqlite3_cgo

package db

import (
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// pure Go build, no cgo toolchain needed
var driver = driverInfo{name: "sqlite3", impl: "ncruces/go-sqlite3"}
