package driver

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/event"
)

// NewMonitor returns a command monitor logging every command at debug level.
func NewMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(_ context.Context, e *event.CommandStartedEvent) {
			if !log.IsLevelEnabled(log.DebugLevel) {
				return
			}
			log.WithFields(log.Fields{
				"request_id": e.RequestID,
				"db":         e.DatabaseName,
			}).Debugf("> %s %s", e.CommandName, e.Command)
		},
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			log.WithField("request_id", e.RequestID).
				Debugf("< %s ok in %s", e.CommandName, time.Duration(e.DurationNanos))
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			log.WithField("request_id", e.RequestID).
				Debugf("< %s failed in %s: %s", e.CommandName, time.Duration(e.DurationNanos), e.Failure)
		},
	}
}
