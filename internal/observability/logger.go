package observability

import (
	"io"

	"github.com/danmuck/readyctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the process logger for app and returns it.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime(app)
	return log.Logger
}

// InitLoggerOutput is InitLogger writing to out.
func InitLoggerOutput(app string, out io.Writer) zerolog.Logger {
	logging.ConfigureRuntimeOutput(app, out)
	return log.Logger
}
