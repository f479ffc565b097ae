package changes

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to the table name to form the NATS subject.
const SubjectPrefix = "voicefeed.changes."

// Subject returns the NATS subject for table.
func Subject(table string) string {
	return SubjectPrefix + table
}

type unsubscriber interface {
	Unsubscribe() error
}

// NATSBroker publishes events as JSON on voicefeed.changes.<table>.
type NATSBroker struct {
	publish   func(subject string, data []byte) error
	subscribe func(subject string, cb nats.MsgHandler) (unsubscriber, error)
	flush     func() error
	close     func()
	log       logging.Logger

	mu     sync.Mutex
	closed bool
}

// ConnectNATS dials url and returns a broker owning the connection.
func ConnectNATS(url string, log logging.Logger) (*NATSBroker, error) {
	nc, err := nats.Connect(url, nats.Name("voicefeed-server"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return NewNATSBroker(nc, log), nil
}

// NewNATSBroker wraps an existing connection. Close drains it. Subscribe
// returns once the server has registered the subscription.
func NewNATSBroker(nc *nats.Conn, log logging.Logger) *NATSBroker {
	return newNATSBroker(
		nc.Publish,
		func(subject string, cb nats.MsgHandler) (unsubscriber, error) {
			return nc.Subscribe(subject, cb)
		},
		nc.Flush,
		func() { _ = nc.Drain() },
		log,
	)
}

func newNATSBroker(
	pub func(string, []byte) error,
	sub func(string, nats.MsgHandler) (unsubscriber, error),
	flush func() error,
	closeFn func(),
	log logging.Logger,
) *NATSBroker {
	return &NATSBroker{publish: pub, subscribe: sub, flush: flush, close: closeFn, log: log}
}

func (b *NATSBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *NATSBroker) Publish(ctx context.Context, ev models.ChangeEvent) error {
	if b.isClosed() {
		return ErrBrokerClosed
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.publish(Subject(ev.Table), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (b *NATSBroker) Subscribe(table string, filter models.EventFilter, fn func(models.ChangeEvent)) (Subscription, error) {
	if b.isClosed() {
		return nil, ErrBrokerClosed
	}
	s, err := b.subscribe(Subject(table), func(msg *nats.Msg) {
		var ev models.ChangeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.log.Warn(context.Background(), "dropping malformed change event", "subject", msg.Subject, "err", err)
			return
		}
		if filter.Matches(ev.Type) {
			fn(ev)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	// Subscribe only queues the SUB; the server knows about it after a flush.
	if err := b.flush(); err != nil {
		_ = s.Unsubscribe()
		return nil, fmt.Errorf("nats subscribe flush: %w", err)
	}
	return &natsSubscription{s: s, log: b.log}, nil
}

func (b *NATSBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.close != nil {
		b.close()
	}
	return nil
}

type natsSubscription struct {
	s    unsubscriber
	log  logging.Logger
	once sync.Once
}

func (n *natsSubscription) Unsubscribe() {
	n.once.Do(func() {
		if err := n.s.Unsubscribe(); err != nil {
			n.log.Warn(context.Background(), "nats unsubscribe failed", "err", err)
		}
	})
}
