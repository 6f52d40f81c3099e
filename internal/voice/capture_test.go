package voice

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recognizerFunc func(ctx context.Context, audio io.Reader) (string, error)

func (f recognizerFunc) Recognize(ctx context.Context, audio io.Reader) (string, error) {
	return f(ctx, audio)
}

// blockingRecognizer waits until released or cancelled.
func blockingRecognizer(release <-chan string, started chan<- struct{}) recognizerFunc {
	return func(ctx context.Context, _ io.Reader) (string, error) {
		started <- struct{}{}
		select {
		case text := <-release:
			return text, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func TestToggle_Unsupported(t *testing.T) {
	for _, rec := range []Recognizer{nil, Unsupported{}} {
		c := NewCapture(rec, nil)
		sess, err := c.Toggle(context.Background(), strings.NewReader("hi"))
		assert.ErrorIs(t, err, ErrUnsupported)
		assert.Nil(t, sess)
		assert.False(t, c.Listening())
	}
}

func TestToggle_DeliversOneTranscript(t *testing.T) {
	c := NewCapture(TextRecognizer{}, nil)
	defer c.Close()

	sess, err := c.Toggle(context.Background(), strings.NewReader("  150 grams of apple \nsecond line\n"))
	require.NoError(t, err)
	require.NotNil(t, sess)

	res, ok := sess.Wait(context.Background())
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "150 grams of apple", res.Transcript)

	_, open := <-sess.Result()
	assert.False(t, open, "channel closes after the single result")
	assert.False(t, c.Listening(), "returns to idle automatically")
}

func TestToggle_RecognitionError(t *testing.T) {
	c := NewCapture(recognizerFunc(func(context.Context, io.Reader) (string, error) {
		return "", errors.New("no-speech")
	}), nil)
	defer c.Close()

	sess, err := c.Toggle(context.Background(), nil)
	require.NoError(t, err)

	res, ok := sess.Wait(context.Background())
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, ErrRecognition)
	assert.Contains(t, res.Err.Error(), "no-speech")
	assert.False(t, c.Listening())
}

func TestToggle_EmptyTranscriptIsError(t *testing.T) {
	c := NewCapture(TextRecognizer{}, nil)
	defer c.Close()

	sess, err := c.Toggle(context.Background(), strings.NewReader("   \n"))
	require.NoError(t, err)

	res, ok := sess.Wait(context.Background())
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, ErrRecognition)
}

func TestToggle_WhileListeningCancelsWithoutResult(t *testing.T) {
	release := make(chan string)
	started := make(chan struct{}, 1)
	c := NewCapture(blockingRecognizer(release, started), nil)
	defer c.Close()

	first, err := c.Toggle(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, first)
	<-started
	assert.True(t, c.Listening())

	second, err := c.Toggle(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, second, "second toggle stops instead of starting")
	assert.False(t, c.Listening())

	select {
	case res, ok := <-first.Result():
		assert.False(t, ok, "cancelled session must not deliver %+v", res)
	case <-time.After(time.Second):
		t.Fatal("cancelled session channel was not closed")
	}

	// A fresh session can start after the cancel.
	third, err := c.Toggle(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, third)
	<-started
	release <- "egg 50 grams"

	res, ok := third.Wait(context.Background())
	require.True(t, ok)
	assert.Equal(t, "egg 50 grams", res.Transcript)
}

func TestStop_Idle(t *testing.T) {
	c := NewCapture(TextRecognizer{}, nil)
	c.Stop()
	c.Close()
	assert.False(t, c.Listening())
}

func TestTextRecognizer_NoInput(t *testing.T) {
	_, err := TextRecognizer{}.Recognize(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrRecognition)
}

func TestTextRecognizer_CancelReleasesBlockedRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := TextRecognizer{}.Recognize(ctx, pr)
		done <- err
	}()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	// the reader was closed, so the blocked read has come back
	_, err := pw.Write([]byte("late line\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestWithMIMEType(t *testing.T) {
	r := WithMIMEType(strings.NewReader("abc"), "audio/wav")
	mr, ok := r.(mimeReader)
	require.True(t, ok)
	assert.Equal(t, "audio/wav", mr.mimeType)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestGeminiRecognizer_KeyError(t *testing.T) {
	wantErr := errors.New("no credential")
	r := NewGeminiRecognizer(func() (string, error) { return "", wantErr }, "", nil)
	_, err := r.Recognize(context.Background(), strings.NewReader("audio"))
	assert.ErrorIs(t, err, wantErr)
}

func TestGeminiRecognizer_EmptyAudio(t *testing.T) {
	r := NewGeminiRecognizer(func() (string, error) { return "key", nil }, "en-GB", nil)
	_, err := r.Recognize(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrRecognition)
}

func TestTranscribeInstruction_Locale(t *testing.T) {
	assert.Contains(t, transcribeInstruction("en-US"), "en-US")
}
