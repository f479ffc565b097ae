// Package changes fans row-change notifications out to subscribers. The
// in-memory broker serves a single server process; the NATS broker lets
// several server replicas share one stream of events.
package changes

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/google/uuid"
)

var ErrBrokerClosed = errors.New("change broker closed")

// Subscription is a live registration returned by Broker.Subscribe.
type Subscription interface {
	Unsubscribe()
}

// Broker publishes and delivers change events.
type Broker interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
	// Subscribe registers fn for events on table that pass filter. fn runs
	// on a broker goroutine and must not block.
	Subscribe(table string, filter models.EventFilter, fn func(models.ChangeEvent)) (Subscription, error)
	Close() error
}

// NewEvent stamps a change event with a fresh id and the current time.
func NewEvent(table string, t models.EventType, recordID string) models.ChangeEvent {
	return models.ChangeEvent{
		ID:       uuid.NewString(),
		Table:    table,
		Type:     t,
		RecordID: recordID,
		At:       time.Now().UTC(),
	}
}
