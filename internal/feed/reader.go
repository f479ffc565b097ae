// Package feed reads the published voice memo feed and keeps it current
// while mounted.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/backend"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
)

// Snapshot is one fully joined view of the feed. It is never modified
// after it has been handed out.
type Snapshot struct {
	items     []models.MemoWithAuthor
	fetchedAt time.Time
}

// Items returns a copy of the feed items, newest first.
func (s *Snapshot) Items() []models.MemoWithAuthor {
	if s == nil {
		return nil
	}
	return append([]models.MemoWithAuthor(nil), s.items...)
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

func (s *Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// Find returns the item with the given memo id.
func (s *Snapshot) Find(memoID string) (models.MemoWithAuthor, bool) {
	if s == nil {
		return models.MemoWithAuthor{}, false
	}
	for _, it := range s.items {
		if it.ID == memoID {
			return it, true
		}
	}
	return models.MemoWithAuthor{}, false
}

// DefaultEvents are the change types that trigger a refresh. UPDATE is
// included so like counts become visible without a manual reload.
var DefaultEvents = models.EventFilter{models.EventInsert, models.EventUpdate}

type Reader struct {
	memos    backend.MemoStore
	profiles backend.ProfileStore
	notifier backend.Notifier
	log      logging.Logger
	events   models.EventFilter
	onUpdate func(*Snapshot)
	onError  func(error)

	refreshMu sync.Mutex
	mu        sync.RWMutex
	current   *Snapshot
}

type Option func(*Reader)

// WithEvents replaces DefaultEvents.
func WithEvents(f models.EventFilter) Option {
	return func(r *Reader) { r.events = f }
}

// OnUpdate is called with every new snapshot.
func OnUpdate(fn func(*Snapshot)) Option {
	return func(r *Reader) { r.onUpdate = fn }
}

// OnError is called when a background refresh fails.
func OnError(fn func(error)) Option {
	return func(r *Reader) { r.onError = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(r *Reader) { r.log = l }
}

func New(b backend.Backend, opts ...Option) *Reader {
	r := &Reader{
		memos:    b.Memos,
		profiles: b.Profiles,
		notifier: b.Notifier,
		log:      logging.Discard(),
		events:   DefaultEvents,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Current returns the last published snapshot, or nil before the first refresh.
func (r *Reader) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Refresh rebuilds the feed from scratch: published memos newest first,
// each joined with its author's profile projection.
func (r *Reader) Refresh(ctx context.Context) (*Snapshot, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	memos, err := r.memos.SelectPublishedMemos(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFeedFetchFailed, err)
	}

	byUser := map[string]models.ProfileProjection{}
	if ids := authorIDs(memos); len(ids) > 0 {
		projs, err := r.profiles.SelectProfiles(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrProfileFetchFailed, err)
		}
		for _, p := range projs {
			byUser[p.UserID] = p
		}
	}

	items := make([]models.MemoWithAuthor, 0, len(memos))
	for _, m := range memos {
		author := models.Author{DisplayName: common.UnknownAuthorName}
		if p, ok := byUser[m.UserID]; ok {
			author = models.Author{DisplayName: p.DisplayName, PhotoURL: p.PhotoURL}
		}
		items = append(items, models.MemoWithAuthor{VoiceMemo: m, Author: author})
	}

	snap := &Snapshot{items: items, fetchedAt: time.Now()}

	r.mu.Lock()
	r.current = snap
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(snap)
	}
	return snap, nil
}

func authorIDs(memos []models.VoiceMemo) []string {
	seen := make(map[string]struct{}, len(memos))
	ids := make([]string, 0, len(memos))
	for _, m := range memos {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}
	return ids
}

// Run keeps the feed current until ctx ends. It subscribes to memo changes,
// refreshes once, then refreshes again after every notification.
// Notifications that arrive while a refresh is running collapse into a
// single follow-up refresh. The subscription is released on return.
func (r *Reader) Run(ctx context.Context) error {
	dirty := make(chan struct{}, 1)

	sub, err := r.notifier.Subscribe(ctx, common.TableVoiceMemos, r.events, func(ev models.ChangeEvent) {
		r.log.Debug(ctx, "memo change", "type", ev.Type, "record_id", ev.RecordID)
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", common.TableVoiceMemos, err)
	}
	defer sub.Unsubscribe()

	r.refreshAndReport(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dirty:
			r.refreshAndReport(ctx)
		}
	}
}

func (r *Reader) refreshAndReport(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.log.Warn(ctx, "feed refresh failed", "err", err)
		if r.onError != nil {
			r.onError(err)
		}
	}
}

// Like adds one like to a memo. The local snapshot is not touched; the new
// count shows up on the next refresh.
func (r *Reader) Like(ctx context.Context, memoID string) error {
	return r.memos.IncrementLikes(ctx, memoID)
}
