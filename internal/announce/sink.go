package announce

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Sink receives countdown frames.
type Sink interface {
	Name() string
	Publish(ctx context.Context, f Frame) error
	Close() error
}

// TerminalSink writes each frame's text to w. In live mode the line is
// redrawn in place; otherwise one line is written per frame.
type TerminalSink struct {
	mu   sync.Mutex
	w    io.Writer
	live bool
}

// NewTerminalSink returns a sink writing to w.
func NewTerminalSink(w io.Writer, live bool) *TerminalSink {
	return &TerminalSink{w: w, live: live}
}

func (s *TerminalSink) Name() string { return "terminal" }

func (s *TerminalSink) Publish(_ context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.live {
		_, err = fmt.Fprintf(s.w, "\r\033[K%s", f.Text)
	} else {
		_, err = fmt.Fprintln(s.w, f.Text)
	}
	return err
}

// Close ends a live line with a newline.
func (s *TerminalSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		_, err := fmt.Fprintln(s.w)
		return err
	}
	return nil
}
