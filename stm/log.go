package stm

import "go.uber.org/zap"

// log is the package logger used by engines created without WithLogger.
// It is silent until UseLogger is called.
var log = zap.NewNop()

func UseLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log = logger
}
