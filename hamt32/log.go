package hamt32

import "go.uber.org/zap"

// log is the package logger. It is silent until UseLogger is called.
var log = zap.NewNop()

// UseLogger sets the logger used to report corrupted trie states before the
// package panics on them.
func UseLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log = logger
}

func zapHash(key string, h30 uint32) zap.Field {
	return zap.String(key, h30ToString(h30))
}
