// Package publish turns a finished recording into a feed-visible voice
// memo: the audio goes to object storage first, then a metadata record
// pointing at its public URL is written.
package publish

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/audio"
	"github.com/dmitrijs2005/voicefeed/internal/backend"
	"github.com/dmitrijs2005/voicefeed/internal/capture"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/go-playground/validator/v10"
)

// DefaultTitle is used when the user leaves the title blank.
const DefaultTitle = "Untitled memo"

// MaxTitleLength is the longest accepted title, in characters.
const MaxTitleLength = 120

type Pipeline struct {
	memos    backend.MemoStore
	objects  backend.ObjectStore
	bucket   string
	log      logging.Logger
	validate *validator.Validate
	cleanup  bool
	now      func() time.Time
}

type Option func(*Pipeline)

// WithBucket overrides the voice-memos bucket.
func WithBucket(b string) Option {
	return func(p *Pipeline) { p.bucket = b }
}

func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithOrphanCleanup makes the pipeline delete the uploaded object when the
// metadata write fails. Off by default: the orphan is only logged.
func WithOrphanCleanup() Option {
	return func(p *Pipeline) { p.cleanup = true }
}

// WithClock replaces time.Now for key generation.
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) { p.now = fn }
}

func New(memos backend.MemoStore, objects backend.ObjectStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		memos:    memos,
		objects:  objects,
		bucket:   common.BucketVoiceMemos,
		log:      logging.Discard(),
		validate: validator.New(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ObjectKey builds "<authorID>/voice-memo-<unix-nanos>.<ext>".
func ObjectKey(authorID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/voice-memo-%d.%s", authorID, at.UnixNano(), ext)
}

// Publish stores a recorded artifact and creates its published memo.
func (p *Pipeline) Publish(ctx context.Context, a *capture.Artifact, title, authorID string, durationSeconds int) (*models.VoiceMemo, error) {
	if a.Size() == 0 {
		return nil, common.ErrEmptyArtifact
	}
	ct := a.ContentType()
	return p.publish(ctx, a.Bytes(), audio.ExtensionFor(ct), ct, title, authorID, durationSeconds)
}

// PublishFile publishes an existing audio file. The key extension comes
// from name.
func (p *Pipeline) PublishFile(ctx context.Context, name string, data []byte, title, authorID string, durationSeconds int) (*models.VoiceMemo, error) {
	if len(data) == 0 {
		return nil, common.ErrEmptyArtifact
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		ext = "bin"
	}
	return p.publish(ctx, data, ext, audio.ContentTypeFor(name), title, authorID, durationSeconds)
}

func (p *Pipeline) publish(ctx context.Context, data []byte, ext, contentType, title, authorID string, duration int) (*models.VoiceMemo, error) {
	if authorID == "" {
		return nil, common.ErrUnauthenticated
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if err := p.validate.Var(title, fmt.Sprintf("max=%d", MaxTitleLength)); err != nil {
		return nil, fmt.Errorf("%w: title must be at most %d characters", common.ErrorValidation, MaxTitleLength)
	}
	if duration < 0 {
		duration = 0
	}

	key := ObjectKey(authorID, p.now(), ext)
	log := p.log.With("key", key)

	path, err := p.objects.Upload(ctx, p.bucket, key, data, backend.UploadOptions{Overwrite: true, ContentType: contentType})
	if err != nil {
		log.Error(ctx, "audio upload failed", "err", err)
		return nil, fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}

	url, err := p.objects.PublicURL(ctx, p.bucket, path)
	if err != nil {
		log.Error(ctx, "public url lookup failed", "err", err)
		return nil, fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}

	memo, err := p.memos.InsertMemo(ctx, models.NewVoiceMemo{
		UserID:      authorID,
		Title:       title,
		AudioURL:    url,
		Duration:    duration,
		IsPublished: true,
	})
	if err != nil {
		p.orphaned(ctx, log, path, err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabaseWriteFailed, err)
	}

	log.Info(ctx, "voice memo published", "memo_id", memo.ID, "bytes", len(data), "duration", duration)
	return memo, nil
}

func (p *Pipeline) orphaned(ctx context.Context, log logging.Logger, path string, cause error) {
	log.Warn(ctx, "memo insert failed after upload, object orphaned", "bucket", p.bucket, "path", path, "err", cause)
	if !p.cleanup {
		return
	}
	if err := p.objects.Remove(ctx, p.bucket, []string{path}); err != nil {
		log.Warn(ctx, "orphan cleanup failed", "path", path, "err", err)
		return
	}
	log.Info(ctx, "orphaned object removed", "path", path)
}
