package tracker

import "github.com/rs/zerolog/log"

// Notifier is the side channel for user-visible error messages. Failures
// inside the tracker never propagate as panics or errors to event-driven
// callers; they surface here instead.
type Notifier interface {
	DisplayError(message string)
}

type logNotifier struct{}

func (logNotifier) DisplayError(message string) {
	log.Error().Msg(message)
}
