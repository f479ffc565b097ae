// Package backendtest provides an in-memory Backend for tests.
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/backend"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/google/uuid"
)

// Memory implements every backend capability in process. Failure hooks
// let tests inject errors per operation.
type Memory struct {
	mu sync.Mutex

	User     *models.User
	memos    []models.VoiceMemo
	profiles map[string]models.Profile
	objects  map[string][]byte
	subs     map[int]sub
	nextSub  int
	clock    time.Time

	UploadErr  error
	InsertErr  error
	ProfileErr error
	SelectErr  error
	LikeErr    error

	Uploads      int
	Removed      []string
	ProfileCalls int
}

type sub struct {
	table  string
	filter models.EventFilter
	fn     func(models.ChangeEvent)
}

// NewMemory returns an empty store signed in as user (nil means signed out).
func NewMemory(user *models.User) *Memory {
	return &Memory{
		User:     user,
		profiles: map[string]models.Profile{},
		objects:  map[string][]byte{},
		subs:     map[int]sub{},
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Backend bundles m as every capability.
func (m *Memory) Backend() backend.Backend {
	return backend.Backend{Auth: m, Memos: m, Profiles: m, Objects: m, Notifier: m}
}

func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) CurrentUser(context.Context) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.User == nil {
		return nil, common.ErrUnauthenticated
	}
	u := *m.User
	return &u, nil
}

func (m *Memory) InsertMemo(_ context.Context, in models.NewVoiceMemo) (*models.VoiceMemo, error) {
	m.mu.Lock()
	if m.InsertErr != nil {
		m.mu.Unlock()
		return nil, m.InsertErr
	}
	rec := models.VoiceMemo{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Title:       in.Title,
		AudioURL:    in.AudioURL,
		Duration:    in.Duration,
		IsPublished: in.IsPublished,
		CreatedAt:   m.tick(),
	}
	m.memos = append(m.memos, rec)
	m.mu.Unlock()

	m.Emit(common.TableVoiceMemos, models.EventInsert, rec.ID)
	return &rec, nil
}

func (m *Memory) SelectPublishedMemos(context.Context) ([]models.VoiceMemo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SelectErr != nil {
		return nil, m.SelectErr
	}
	var out []models.VoiceMemo
	for _, v := range m.memos {
		if v.IsPublished {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) bump(id string, likes bool) error {
	m.mu.Lock()
	if m.LikeErr != nil {
		m.mu.Unlock()
		return m.LikeErr
	}
	found := false
	for i := range m.memos {
		if m.memos[i].ID == id {
			if likes {
				m.memos[i].LikesCount++
			} else {
				m.memos[i].CommentsCount++
			}
			found = true
		}
	}
	m.mu.Unlock()
	if !found {
		return common.ErrorNotFound
	}
	m.Emit(common.TableVoiceMemos, models.EventUpdate, id)
	return nil
}

func (m *Memory) IncrementLikes(_ context.Context, id string) error    { return m.bump(id, true) }
func (m *Memory) IncrementComments(_ context.Context, id string) error { return m.bump(id, false) }

func (m *Memory) UpsertProfile(_ context.Context, in models.ProfileInput) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.User == nil {
		return nil, common.ErrUnauthenticated
	}
	p, ok := m.profiles[m.User.ID]
	if !ok {
		p = models.Profile{ID: uuid.NewString(), UserID: m.User.ID, CreatedAt: m.tick()}
	}
	p.DisplayName, p.Age, p.PhotoURL, p.Interests = in.DisplayName, in.Age, in.PhotoURL, in.Interests
	m.profiles[m.User.ID] = p
	return &p, nil
}

// PutProfile seeds a profile directly.
func (m *Memory) PutProfile(p models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

func (m *Memory) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (m *Memory) SelectProfiles(_ context.Context, ids []string) ([]models.ProfileProjection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProfileCalls++
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	var out []models.ProfileProjection
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, models.ProfileProjection{UserID: p.UserID, DisplayName: p.DisplayName, PhotoURL: p.PhotoURL})
		}
	}
	return out, nil
}

func (m *Memory) Upload(_ context.Context, bucket, key string, data []byte, opts backend.UploadOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads++
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	full := bucket + "/" + key
	if _, exists := m.objects[full]; exists && !opts.Overwrite {
		return "", fmt.Errorf("object %s already exists", key)
	}
	m.objects[full] = append([]byte(nil), data...)
	return key, nil
}

func (m *Memory) PublicURL(_ context.Context, bucket, key string) (string, error) {
	return "https://storage.test/" + bucket + "/" + key, nil
}

func (m *Memory) Remove(_ context.Context, bucket string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, bucket+"/"+k)
		m.Removed = append(m.Removed, k)
	}
	return nil
}

// Object returns a stored object.
func (m *Memory) Object(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[bucket+"/"+key]
	return b, ok
}

// ObjectCount is the number of stored objects.
func (m *Memory) ObjectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type subscription struct {
	m  *Memory
	id int
}

func (s subscription) Unsubscribe() {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.subs, s.id)
}

func (m *Memory) Subscribe(_ context.Context, table string, filter models.EventFilter, fn func(models.ChangeEvent)) (backend.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	m.subs[m.nextSub] = sub{table: table, filter: filter, fn: fn}
	return subscription{m: m, id: m.nextSub}, nil
}

// Subscribers is the number of live subscriptions.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Emit delivers a change event to matching subscribers synchronously.
func (m *Memory) Emit(table string, t models.EventType, recordID string) {
	m.mu.Lock()
	ev := models.ChangeEvent{ID: uuid.NewString(), Table: table, Type: t, RecordID: recordID, At: m.clock}
	var fns []func(models.ChangeEvent)
	for _, s := range m.subs {
		if s.table == table && s.filter.Matches(t) {
			fns = append(fns, s.fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
