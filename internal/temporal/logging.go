package temporal

import (
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// ZerologAdapter bridges the Temporal SDK's keyval logger onto zerolog so
// workflow and worker output lands in the same stream as the rest of the
// service.
type ZerologAdapter struct {
	logger zerolog.Logger
}

func NewZerologAdapter(logger zerolog.Logger) log.Logger {
	return &ZerologAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

func (a *ZerologAdapter) withKeyvals(event *zerolog.Event, keyvals ...interface{}) *zerolog.Event {
	if len(keyvals) == 0 {
		return event
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = "INVALID_KEY"
		}
		event = event.Interface(key, keyvals[i+1])
	}
	return event
}

func (a *ZerologAdapter) Debug(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Debug(), keyvals...).Msg(msg)
}

func (a *ZerologAdapter) Info(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Info(), keyvals...).Msg(msg)
}

func (a *ZerologAdapter) Warn(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Warn(), keyvals...).Msg(msg)
}

func (a *ZerologAdapter) Error(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Error(), keyvals...).Msg(msg)
}
