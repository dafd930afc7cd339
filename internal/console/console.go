// Package console provides a shared line input source so the console-mode
// wake detector and recorder can take turns reading the same terminal
// without competing scanners splitting the stream.
package console

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
)

// Source delivers input lines to one reader at a time.
type Source struct {
	lines chan string
	eof   chan struct{}
}

// NewSource creates a Source over r. One scanning goroutine runs until r is
// exhausted.
func NewSource(r io.Reader) *Source {
	s := &Source{
		lines: make(chan string),
		eof:   make(chan struct{}),
	}
	go func() {
		defer close(s.eof)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			s.lines <- scanner.Text()
		}
	}()
	return s
}

var (
	stdinOnce   sync.Once
	stdinSource *Source
)

// Stdin returns the process-wide Source over os.Stdin.
func Stdin() *Source {
	stdinOnce.Do(func() {
		stdinSource = NewSource(os.Stdin)
	})
	return stdinSource
}

// ReadLine blocks until a line arrives. ok is false when the input is
// exhausted or the context ends; err carries the context error in the
// latter case.
func (s *Source) ReadLine(ctx context.Context) (line string, ok bool, err error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-s.eof:
		return "", false, nil
	case line = <-s.lines:
		return line, true, nil
	}
}
