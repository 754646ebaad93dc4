package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"time"
)

const sinkFlushEvery = 250 * time.Millisecond

// bufferedSink fans lines out to buffered writers. A background ticker flushes them,
// so a burst of updates costs one syscall per sink and tick instead of one per line.
type bufferedSink struct {
	mu     sync.Mutex
	outs   []*bufio.Writer
	err    error
	closed bool

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newBufferedSink(writers []io.Writer, bufSize int, every time.Duration) *bufferedSink {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	if every <= 0 {
		every = sinkFlushEvery
	}
	s := &bufferedSink{stop: make(chan struct{}), done: make(chan struct{})}
	for _, w := range writers {
		if w != nil {
			s.outs = append(s.outs, bufio.NewWriterSize(w, bufSize))
		}
	}
	go s.tick(every)
	return s
}

func (s *bufferedSink) tick(every time.Duration) {
	defer close(s.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			_ = s.Flush()
		}
	}
}

// Write buffers one line. The first sink error sticks and is returned from then on.
func (s *bufferedSink) Write(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.closed {
		return errSinkClosed
	}
	for _, w := range s.outs {
		if _, err := w.Write(line); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

// Flush pushes buffered lines to every sink.
func (s *bufferedSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, w := range s.outs {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		if s.err == nil {
			s.err = err
		}
		return err
	}
	return s.err
}

// Close stops the ticker and flushes what is left. Later writes fail.
func (s *bufferedSink) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
	err := s.Flush()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

var errSinkClosed = errors.New("logger: sink closed")
