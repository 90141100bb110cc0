// Package logger constructs the process-wide structured logger.
package logger

import "go.uber.org/zap"

// New returns a production logger in the prod environment and a development
// logger everywhere else.  The caller owns Sync().
func New(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
