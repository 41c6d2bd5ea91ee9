package ctxlog

import (
	"fmt"

	"github.com/rs/zerolog"
)

func Op(logger zerolog.Logger, op string) zerolog.Logger {
	return logger.With().Str("op", op).Logger()
}

// Driver tags logger with the concrete type of the pasteboard driver.
func Driver(logger zerolog.Logger, driver any) zerolog.Logger {
	return logger.With().Str("driver", fmt.Sprintf("%T", driver)).Logger()
}
