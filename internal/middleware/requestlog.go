package middleware

import (
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shorturl-service/internal/logship"
)

// RequestLogger ships one entry when a request arrives and one when it completes.
// Completions with a status of 400 or above are logged at error level.
func RequestLogger(logger logship.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		path := ctx.URL().Path
		logger.Log(logship.StackBackend, logship.LevelInfo, logship.PackageMiddleware,
			fmt.Sprintf("%s %s", ctx.Method(), path))

		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = http.StatusOK
		}

		level := logship.LevelInfo
		if status >= http.StatusBadRequest {
			level = logship.LevelError
		}

		logger.Log(logship.StackBackend, level, logship.PackageHandler,
			fmt.Sprintf("%s %s completed with status %d", ctx.Method(), path, status))
	}
}
