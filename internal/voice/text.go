package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// TextRecognizer treats the first line of its input as the final
// transcript. It backs typed "utterances" on the command line.
//
// When ctx ends while the read is blocked, an input that is an io.Closer
// is closed so the reading goroutine can exit.
type TextRecognizer struct{}

func (TextRecognizer) Recognize(ctx context.Context, audio io.Reader) (string, error) {
	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(audio)
		if scanner.Scan() {
			lines <- scanner.Text()
			return
		}
		if err := scanner.Err(); err != nil {
			errs <- err
			return
		}
		errs <- io.EOF
	}()

	select {
	case line := <-lines:
		return strings.TrimSpace(line), nil
	case err := <-errs:
		if err == io.EOF {
			return "", fmt.Errorf("%w: no input", ErrRecognition)
		}
		return "", fmt.Errorf("%w: %w", ErrRecognition, err)
	case <-ctx.Done():
		if c, ok := audio.(io.Closer); ok {
			c.Close()
		}
		return "", ctx.Err()
	}
}
