// Package registry operates the global registries of datasets and pipeline transforms that a
// config can refer to by name.
package registry

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
)

// RegDebugInfo records where a registration happened.
type RegDebugInfo struct {
	RegistrarLoc string
}

var registryMu sync.RWMutex

// getCallerName returns "<dir>/<file>:<line>" of the function that called the Register* helper.
func getCallerName() string {
	// getCallerName <- Register* <- init of the registering package
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Join(filepath.Base(filepath.Dir(file)), filepath.Base(file)), line)
}
