package capture

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
)

// PublishFunc persists a finished artifact. It runs outside the event loop.
type PublishFunc func(ctx context.Context, a *Artifact) error

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdStop
	cmdCancel
	cmdBeginPublish
	cmdEndPublish
)

type command struct {
	kind  cmdKind
	ctx   context.Context
	err   error
	reply chan result
}

type result struct {
	future   *Future
	artifact *Artifact
	err      error
}

type openResult struct {
	id     uint64
	stream Stream
	err    error
}

// session is owned by the loop goroutine.
type session struct {
	state    State
	elapsed  int
	buf      [][]byte
	stream   Stream
	chunks   <-chan []byte
	ticker   Ticker
	tick     <-chan time.Time
	future   *Future
	artifact *Artifact

	openID     uint64
	openCancel context.CancelFunc
	pending    chan result
}

// Controller runs the capture state machine. Create it with New and
// release it with Close.
type Controller struct {
	dev          Device
	log          logging.Logger
	maxDuration  int
	drainTimeout time.Duration
	newTicker    func(time.Duration) Ticker
	observer     func(Status)

	cmds   chan command
	opened chan openResult
	quit   chan struct{}
	done   chan struct{}

	closeOnce sync.Once
	state     atomic.Int32
	elapsed   atomic.Int32
}

type Option func(*Controller)

// WithMaxDuration lowers the recording cap. The cap never exceeds
// DefaultMaxDuration; non-positive values keep the default.
func WithMaxDuration(seconds int) Option {
	return func(c *Controller) {
		if seconds > 0 && seconds <= DefaultMaxDuration {
			c.maxDuration = seconds
		}
	}
}

// WithTicker replaces the one-second wall clock ticker.
func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(c *Controller) { c.newTicker = fn }
}

// WithDrainTimeout bounds how long Stop waits for the device to flush.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Controller) { c.drainTimeout = d }
}

// WithObserver registers fn to receive every status change. fn is called
// from the controller goroutine and must return quickly.
func WithObserver(fn func(Status)) Option {
	return func(c *Controller) { c.observer = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New starts a controller for dev.
func New(dev Device, opts ...Option) *Controller {
	c := &Controller{
		dev:          dev,
		log:          logging.Discard(),
		maxDuration:  DefaultMaxDuration,
		drainTimeout: 2 * time.Second,
		newTicker:    newTimeTicker,
		cmds:         make(chan command),
		opened:       make(chan openResult),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	go c.loop()
	return c
}

// State returns the current session state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Elapsed returns the whole seconds recorded so far in this session.
func (c *Controller) Elapsed() int {
	return int(c.elapsed.Load())
}

// MaxDuration is the recording cap in seconds.
func (c *Controller) MaxDuration() int {
	return c.maxDuration
}

// Start requests the device and begins recording. It returns once the
// device is granted or refused. The future resolves when recording ends.
func (c *Controller) Start(ctx context.Context) (*Future, error) {
	r := c.startSession(ctx, command{kind: cmdStart, ctx: ctx})
	return r.future, r.err
}

// Stop ends recording and returns the artifact. Calling Stop again on a
// stopped session returns the same artifact without touching the device.
func (c *Controller) Stop(ctx context.Context) (*Artifact, error) {
	r := c.do(ctx, command{kind: cmdStop})
	return r.artifact, r.err
}

// Cancel discards the session: a pending device request, a live recording
// or a stopped artifact. Cancel on an idle controller is a no-op.
func (c *Controller) Cancel(ctx context.Context) error {
	return c.do(ctx, command{kind: cmdCancel}).err
}

// Publish hands the stopped artifact to fn. On success, or when fn reports
// common.ErrCaptureEmpty, the session ends. Any other error returns the
// session to Stopped with the artifact retained so the caller may retry.
func (c *Controller) Publish(ctx context.Context, fn PublishFunc) error {
	r := c.do(ctx, command{kind: cmdBeginPublish})
	if r.err != nil {
		return r.err
	}

	err := fn(ctx, r.artifact)

	// Uploading is always left, even when ctx is already done.
	if er := c.do(context.WithoutCancel(ctx), command{kind: cmdEndPublish, err: err}).err; er != nil && err == nil {
		return er
	}
	return err
}

// Close releases any active device and stops the controller.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
	return nil
}

// do delivers cmd to the loop and waits for its reply. ctx only bounds
// delivery: once the loop has the command its reply is always collected,
// so a state change the loop already made is never lost.
func (c *Controller) do(ctx context.Context, cmd command) result {
	cmd.reply = make(chan result, 1)

	select {
	case c.cmds <- cmd:
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-c.done:
		return result{err: ErrClosed}
	}

	select {
	case r := <-cmd.reply:
		return r
	case <-c.done:
		return c.closedReply(cmd)
	}
}

// startSession is do for cmdStart. The device request may outlive ctx, so
// a caller that gives up cancels the request and discards whatever session
// it produced.
func (c *Controller) startSession(ctx context.Context, cmd command) result {
	cmd.reply = make(chan result, 1)

	select {
	case c.cmds <- cmd:
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-c.done:
		return result{err: ErrClosed}
	}

	select {
	case r := <-cmd.reply:
		return r
	case <-c.done:
		return c.closedReply(cmd)
	case <-ctx.Done():
	}

	select {
	case r := <-cmd.reply:
		if r.err != nil {
			return r
		}
		// Granted just as the caller gave up.
		_ = c.do(context.Background(), command{kind: cmdCancel})
		return result{err: ctx.Err()}
	default:
	}

	// The loop handles commands in order, so by the time the cancel is
	// answered the start has been answered too.
	_ = c.do(context.Background(), command{kind: cmdCancel})
	select {
	case r := <-cmd.reply:
		if r.err != nil && !errors.Is(r.err, ErrCanceled) {
			return r
		}
	default:
	}
	return result{err: ctx.Err()}
}

func (c *Controller) closedReply(cmd command) result {
	select {
	case r := <-cmd.reply:
		return r
	default:
		return result{err: ErrClosed}
	}
}

func (c *Controller) loop() {
	defer close(c.done)

	s := &session{}
	for {
		select {
		case <-c.quit:
			c.shutdown(s)
			return
		case cmd := <-c.cmds:
			c.handle(s, cmd)
		case r := <-c.opened:
			c.handleOpened(s, r)
		case b, ok := <-s.chunks:
			if !ok {
				c.streamEnded(s)
				continue
			}
			if len(b) > 0 {
				s.buf = append(s.buf, b)
			}
		case <-s.tick:
			c.handleTick(s)
		}
	}
}

func (c *Controller) handle(s *session, cmd command) {
	switch cmd.kind {
	case cmdStart:
		c.handleStart(s, cmd)
	case cmdStop:
		cmd.reply <- c.handleStop(s)
	case cmdCancel:
		cmd.reply <- result{err: c.handleCancel(s)}
	case cmdBeginPublish:
		if s.state != Stopped {
			cmd.reply <- result{err: common.ErrInvalidState}
			return
		}
		c.setState(s, Uploading)
		cmd.reply <- result{artifact: s.artifact}
	case cmdEndPublish:
		cmd.reply <- result{err: c.handleEndPublish(s, cmd.err)}
	}
}

func (c *Controller) handleStart(s *session, cmd command) {
	if s.state != Idle {
		cmd.reply <- result{err: common.ErrSessionActive}
		return
	}
	if err := c.probe(); err != nil {
		c.setState(s, Requesting)
		c.fail(s)
		cmd.reply <- result{err: err}
		return
	}

	c.setState(s, Requesting)
	s.openID++
	s.pending = cmd.reply

	ctx, cancel := context.WithCancel(cmd.ctx)
	s.openCancel = cancel
	go c.open(ctx, s.openID)
}

func (c *Controller) probe() error {
	if c.dev == nil {
		return common.ErrCaptureUnavailable
	}
	if p, ok := c.dev.(Prober); ok {
		return p.Probe()
	}
	return nil
}

func (c *Controller) open(ctx context.Context, id uint64) {
	st, err := c.dev.Open(ctx)
	select {
	case c.opened <- openResult{id: id, stream: st, err: err}:
	case <-c.done:
		if st != nil {
			discard(st)
		}
	}
}

func (c *Controller) handleOpened(s *session, r openResult) {
	if r.id != s.openID || s.state != Requesting {
		// The request was cancelled while the device was being acquired.
		if r.stream != nil {
			c.log.Debug(context.Background(), "releasing stream granted after cancel")
			discard(r.stream)
		}
		return
	}

	s.openCancel()
	s.openCancel = nil
	reply := s.pending
	s.pending = nil

	if r.err != nil {
		c.log.Warn(context.Background(), "microphone request failed", "err", r.err)
		c.fail(s)
		reply <- result{err: r.err}
		return
	}

	s.stream = r.stream
	s.chunks = r.stream.Chunks()
	s.ticker = c.newTicker(time.Second)
	s.tick = s.ticker.C()
	s.elapsed = 0
	s.buf = nil
	s.future = newFuture()
	c.setState(s, Recording)

	reply <- result{future: s.future}
}

func (c *Controller) handleTick(s *session) {
	if s.state != Recording {
		return
	}
	if s.elapsed < c.maxDuration {
		s.elapsed++
		c.elapsed.Store(int32(s.elapsed))
		c.notify(s)
	}
	if s.elapsed >= c.maxDuration {
		c.log.Info(context.Background(), "duration cap reached, stopping", "seconds", s.elapsed)
		_, _ = c.finish(s)
	}
}

func (c *Controller) handleStop(s *session) result {
	switch s.state {
	case Recording:
		a, err := c.finish(s)
		return result{artifact: a, err: err}
	case Stopped, Uploading:
		return result{artifact: s.artifact}
	default:
		return result{err: common.ErrInvalidState}
	}
}

// streamEnded handles a device that closed its chunk channel on its own.
func (c *Controller) streamEnded(s *session) {
	s.chunks = nil
	if err := s.stream.Err(); err != nil {
		c.log.Warn(context.Background(), "device stream failed", "err", err)
	}
	_, _ = c.finish(s)
}

// finish leaves Recording: it releases the device, collects the remaining
// chunks and resolves the session future.
func (c *Controller) finish(s *session) (*Artifact, error) {
	c.stopTicker(s)

	st := s.stream
	st.Stop()
	c.drain(s)
	s.stream = nil

	fut := s.future
	if len(s.buf) == 0 {
		err := st.Err()
		if err == nil {
			err = common.ErrCaptureEmpty
		}
		c.fail(s)
		fut.resolve(nil, err)
		return nil, err
	}

	data := bytes.Join(s.buf, nil)
	if f, ok := st.(Finalizer); ok {
		data = f.Finalize(data)
	}
	s.artifact = newArtifact(data, st.ContentType(), s.elapsed)
	c.setState(s, Stopped)
	fut.resolve(s.artifact, nil)

	c.log.Info(context.Background(), "recording stopped", "seconds", s.elapsed, "bytes", len(data))
	return s.artifact, nil
}

// drain reads chunks until the producer closes the channel. If it takes
// longer than drainTimeout the rest is discarded in the background.
func (c *Controller) drain(s *session) {
	ch := s.chunks
	s.chunks = nil
	if ch == nil {
		return
	}

	timer := time.NewTimer(c.drainTimeout)
	defer timer.Stop()

	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return
			}
			if len(b) > 0 {
				s.buf = append(s.buf, b)
			}
		case <-timer.C:
			c.log.Warn(context.Background(), "device did not flush in time, discarding tail")
			go drainChunks(ch)
			return
		}
	}
}

func (c *Controller) handleCancel(s *session) error {
	switch s.state {
	case Idle:
		return nil
	case Requesting:
		s.openCancel()
		s.openCancel = nil
		s.pending <- result{err: ErrCanceled}
		s.pending = nil
	case Recording:
		c.stopTicker(s)
		discard(s.stream)
		s.stream, s.chunks = nil, nil
		s.future.resolve(nil, ErrCanceled)
	case Stopped:
	default:
		return common.ErrInvalidState
	}
	c.reset(s)
	return nil
}

func (c *Controller) handleEndPublish(s *session, err error) error {
	if s.state != Uploading {
		return common.ErrInvalidState
	}
	switch {
	case err == nil:
		c.reset(s)
	case errors.Is(err, common.ErrCaptureEmpty):
		c.fail(s)
	default:
		c.setState(s, Stopped)
	}
	return nil
}

func (c *Controller) shutdown(s *session) {
	switch s.state {
	case Requesting:
		s.openCancel()
		s.pending <- result{err: ErrClosed}
	case Recording:
		c.stopTicker(s)
		discard(s.stream)
		s.future.resolve(nil, ErrClosed)
	}
	s.stream, s.chunks, s.pending = nil, nil, nil
	c.reset(s)
}

func (c *Controller) stopTicker(s *session) {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.ticker, s.tick = nil, nil
}

// fail passes through Failed on the way back to Idle.
func (c *Controller) fail(s *session) {
	c.setState(s, Failed)
	c.reset(s)
}

func (c *Controller) reset(s *session) {
	s.buf = nil
	s.artifact = nil
	s.future = nil
	s.elapsed = 0
	c.elapsed.Store(0)
	c.setState(s, Idle)
}

func (c *Controller) setState(s *session, st State) {
	s.state = st
	c.state.Store(int32(st))
	c.notify(s)
}

func (c *Controller) notify(s *session) {
	if c.observer != nil {
		c.observer(Status{State: s.state, Elapsed: s.elapsed, Max: c.maxDuration})
	}
}

// discard stops a stream and throws away whatever it still produces.
func discard(st Stream) {
	st.Stop()
	go drainChunks(st.Chunks())
}

func drainChunks(ch <-chan []byte) {
	for range ch {
	}
}
