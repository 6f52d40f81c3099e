// Package voice turns one spoken utterance into a transcript.
//
// A Capture allows a single listening session at a time. Toggling while a
// session is listening stops it instead of starting another one, and a
// stopped session never delivers a result.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrUnsupported = errors.New("speech recognition is not supported")
	ErrRecognition = errors.New("speech recognition failed")
)

// Recognizer converts one utterance read from audio into final text.
type Recognizer interface {
	Recognize(ctx context.Context, audio io.Reader) (string, error)
}

// Unsupported is the recognizer for platforms without speech capture.
type Unsupported struct{}

func (Unsupported) Recognize(context.Context, io.Reader) (string, error) {
	return "", ErrUnsupported
}

type Result struct {
	Transcript string
	Err        error
}

// Session is one single-shot listening attempt.
type Session struct {
	id      uint64
	results chan Result
	cancel  context.CancelFunc
}

// Result yields at most one Result and is then closed. A stopped session
// closes without a value.
func (s *Session) Result() <-chan Result {
	return s.results
}

// Wait blocks for the session outcome. ok is false when the session was
// stopped before producing a result.
func (s *Session) Wait(ctx context.Context) (Result, bool) {
	select {
	case res, ok := <-s.results:
		return res, ok
	case <-ctx.Done():
		return Result{Err: ctx.Err()}, true
	}
}

type Capture struct {
	recognizer Recognizer
	logger     *zap.Logger

	mu     sync.Mutex
	active *Session
	nextID uint64
	wg     sync.WaitGroup
}

func NewCapture(recognizer Recognizer, logger *zap.Logger) *Capture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capture{recognizer: recognizer, logger: logger}
}

func (c *Capture) Supported() bool {
	if c.recognizer == nil {
		return false
	}
	_, unsupported := c.recognizer.(Unsupported)
	return !unsupported
}

func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Toggle starts a session reading from audio when idle. When a session is
// already listening it is stopped instead and Toggle returns a nil Session.
func (c *Capture) Toggle(ctx context.Context, audio io.Reader) (*Session, error) {
	if !c.Supported() {
		return nil, ErrUnsupported
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		c.stopLocked()
		return nil, nil
	}

	c.nextID++
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		id:      c.nextID,
		results: make(chan Result, 1),
		cancel:  cancel,
	}
	c.active = sess

	c.wg.Add(1)
	go c.listen(sessCtx, sess, audio)

	c.logger.Debug("Voice capture started", zap.Uint64("session", sess.id))
	return sess, nil
}

// Stop cancels the listening session, if any.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Capture) stopLocked() {
	if c.active == nil {
		return
	}
	sess := c.active
	c.active = nil
	sess.cancel()
	close(sess.results)
	c.logger.Debug("Voice capture stopped", zap.Uint64("session", sess.id))
}

// Close stops any session and waits for recognizers to return.
func (c *Capture) Close() {
	c.Stop()
	c.wg.Wait()
}

func (c *Capture) listen(ctx context.Context, sess *Session, audio io.Reader) {
	defer c.wg.Done()

	transcript, err := c.recognizer.Recognize(ctx, audio)
	transcript = strings.TrimSpace(transcript)
	if err == nil && transcript == "" {
		err = fmt.Errorf("%w: no speech detected", ErrRecognition)
	} else if err != nil && !errors.Is(err, ErrRecognition) && !errors.Is(err, ErrUnsupported) {
		err = fmt.Errorf("%w: %w", ErrRecognition, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != sess {
		// stopped while recognizing
		return
	}
	c.active = nil
	sess.cancel()
	if err != nil {
		c.logger.Warn("Voice capture failed", zap.Uint64("session", sess.id), zap.Error(err))
		sess.results <- Result{Err: err}
	} else {
		c.logger.Debug("Voice capture finished", zap.Uint64("session", sess.id), zap.Int("chars", len(transcript)))
		sess.results <- Result{Transcript: transcript}
	}
	close(sess.results)
}
