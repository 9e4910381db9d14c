//go:build cgo && sqlite3_cgo

package db

import (
	_ "github.com/mattn/go-sqlite3"
)

var driver = driverInfo{name: "sqlite3", impl: "mattn/go-sqlite3"}
