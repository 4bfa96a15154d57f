package logging

import "go.uber.org/zap"

// New returns the process-wide sugared logger, falling back to a production
// logger when config.New has not installed one yet
func New() *zap.SugaredLogger {
	if l := zap.L(); l.Core().Enabled(zap.ErrorLevel) {
		return l.Sugar()
	}
	logger, _ := zap.NewProduction()
	return logger.Sugar()
}
