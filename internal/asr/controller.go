package asr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// The provider enforces a ~305 s hard stream limit; restarting at 290 s
	// leaves headroom for the handover.
	restartAfter = 290 * time.Second

	maxRestartAttempts = 10
	maxBufferedChunks  = 50
	maxChunkBytes      = 1 << 20

	// Client audio is capped at 2 MB/s.
	audioBytesPerSecond = 2 << 20
)

var (
	ErrChunkTooLarge = errors.New("asr: audio chunk exceeds 1 MB")
	ErrRateLimited   = errors.New("asr: audio rate limit exceeded")
	ErrClosed        = errors.New("asr: controller is closed")
)

// Controller owns the streaming ASR lifecycle for one session: proactive
// restarts before the provider's stream-duration limit, audio buffering
// across the restart gap, and ordered recovery from transient faults. At most
// one stream handle is writable at any time.
type Controller struct {
	factory StreamFactory
	logger  *log.Logger

	results chan TranscriptResult
	errors  chan error

	// onRestart runs after every successful stream handover; the session
	// uses it to reset the committed translation.
	onRestart func()

	limiter *rate.Limiter

	mu              sync.Mutex
	cur             RecognizeStream
	restartTimer    *time.Timer
	restarting      bool
	restartAttempts int
	buffered        [][]byte
	dropLogged      bool
	closed          bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewController(factory StreamFactory, onRestart func(), logger *log.Logger) *Controller {
	return &Controller{
		factory:   factory,
		logger:    logger,
		onRestart: onRestart,
		results:   make(chan TranscriptResult, 100),
		errors:    make(chan error, 10),
		limiter:   rate.NewLimiter(rate.Limit(audioBytesPerSecond), audioBytesPerSecond),
	}
}

// Start opens the first stream.
func (c *Controller) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	s, err := c.factory(c.ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cur = s
	c.scheduleRestartLocked()
	c.mu.Unlock()

	c.watch(s)
	return nil
}

// Results returns the merged transcript stream across restarts.
func (c *Controller) Results() <-chan TranscriptResult { return c.results }

// Errors returns non-recoverable errors that must be surfaced to the client.
func (c *Controller) Errors() <-chan error { return c.errors }

// WriteAudio validates and forwards one audio chunk. During a restart chunks
// are buffered in order; when the buffer is full the newest chunk is dropped.
func (c *Controller) WriteAudio(chunk []byte) error {
	if len(chunk) > maxChunkBytes {
		return ErrChunkTooLarge
	}
	if !c.limiter.AllowN(time.Now(), len(chunk)) {
		return ErrRateLimited
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.restarting || c.cur == nil {
		if len(c.buffered) >= maxBufferedChunks {
			if !c.dropLogged {
				c.logger.Printf("asr: restart buffer full, dropping audio")
				c.dropLogged = true
			}
			c.mu.Unlock()
			return nil
		}
		c.buffered = append(c.buffered, chunk)
		c.mu.Unlock()
		return nil
	}
	s := c.cur
	c.mu.Unlock()

	return s.Send(chunk)
}

// Close tears down the controller and the current stream.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	s := c.cur
	c.cur = nil
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if s != nil {
		return s.Close()
	}
	return nil
}

// watch forwards one stream's results and reacts to its errors.
func (c *Controller) watch(s RecognizeStream) {
	go func() {
		for r := range s.Results() {
			select {
			case c.results <- r:
			case <-c.ctx.Done():
				return
			}
		}
	}()

	go func() {
		for err := range s.Errors() {
			c.handleStreamError(err)
			return
		}
	}()
}

// handleStreamError classifies a stream fault. Silence timeouts restart
// without counting toward the attempt cap; duration faults count; anything
// else is surfaced to the client.
func (c *Controller) handleStreamError(err error) {
	switch classify(err) {
	case faultSilence:
		c.logger.Printf("asr: silence timeout, restarting stream")
		c.restart(false)
	case faultDuration:
		c.logger.Printf("asr: stream duration fault, restarting: %v", err)
		c.restart(true)
	default:
		c.surface(err)
	}
}

type faultKind int

const (
	faultSilence faultKind = iota
	faultDuration
	faultOther
)

func classify(err error) faultKind {
	if err == nil {
		return faultOther
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "without audio") || strings.Contains(msg, "audio timeout") {
		return faultSilence
	}
	if strings.Contains(msg, "maximum allowed stream duration") {
		return faultDuration
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.OutOfRange, codes.DeadlineExceeded:
			return faultDuration
		}
	}
	return faultOther
}

// restart tears down the current stream and opens a replacement. A single
// in-flight restart flag collapses concurrent triggers: the underlying stream
// may report both end and close for one fault.
func (c *Controller) restart(counted bool) {
	c.mu.Lock()
	if c.closed || c.restarting {
		c.mu.Unlock()
		return
	}
	c.restarting = true
	if counted {
		c.restartAttempts++
		if c.restartAttempts > maxRestartAttempts {
			c.mu.Unlock()
			c.surface(fmt.Errorf("asr: exceeded %d restart attempts", maxRestartAttempts))
			return
		}
	}
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	old := c.cur
	c.cur = nil
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	go c.reopen()
}

func (c *Controller) reopen() {
	s, err := c.factory(c.ctx)
	if err != nil {
		c.logger.Printf("asr: reopen failed: %v", err)
		c.surface(fmt.Errorf("asr: reopen stream: %w", err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = s.Close()
		return
	}
	c.cur = s
	buffered := c.buffered
	c.buffered = nil
	c.dropLogged = false
	c.restarting = false
	c.scheduleRestartLocked()
	c.mu.Unlock()

	for _, chunk := range buffered {
		if err := s.Send(chunk); err != nil {
			c.logger.Printf("asr: flush buffered chunk: %v", err)
			break
		}
	}

	c.watch(s)

	if c.onRestart != nil {
		c.onRestart()
	}
}

// scheduleRestartLocked arms the proactive restart timer. Proactive restarts
// never count toward the attempt cap.
func (c *Controller) scheduleRestartLocked() {
	if c.restartTimer != nil {
		c.restartTimer.Stop()
	}
	c.restartTimer = time.AfterFunc(restartAfter, func() {
		c.logger.Printf("asr: proactive restart before stream duration limit")
		c.restart(false)
	})
}

func (c *Controller) surface(err error) {
	select {
	case c.errors <- err:
	default:
	}
}
