// Package transport owns the pair of pipe file descriptors CDP pipe mode
// hands back once Chromium is launched, and turns them into framed Frame
// traffic in both directions.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pipecdp/pipecdp/internal/wire"
)

// ErrClosed is returned (wrapped) to any caller racing a transport close.
var ErrClosed = errors.New("transport closed")

// MaxFrameSize bounds a single inbound frame. CDP frames are JSON and can
// carry large results (screenshots, snapshots); this is generous headroom,
// not a protocol limit.
const MaxFrameSize = 256 * 1024 * 1024

type writeRequest struct {
	payload []byte
	done    chan error
}

// Transport drives the two raw pipe ends: one long-running reader, one
// long-running writer. It takes exclusive ownership of both
// and closes them exactly once on shutdown.
type Transport struct {
	r io.ReadCloser
	w io.WriteCloser

	onFrame  func(*wire.Frame)
	onClosed func(error)

	writeCh chan writeRequest

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
	closeMu   sync.Mutex

	wg sync.WaitGroup
}

// New constructs a Transport over an already-open read/write pipe pair.
// onFrame is invoked from the reader goroutine for every successfully
// decoded frame — callers (the session multiplexer) must not block in it.
// onClosed is invoked exactly once, with the reason the transport stopped.
func New(r io.ReadCloser, w io.WriteCloser, onFrame func(*wire.Frame), onClosed func(error)) *Transport {
	t := &Transport{
		r:        r,
		w:        w,
		onFrame:  onFrame,
		onClosed: onClosed,
		writeCh:  make(chan writeRequest),
		closed:   make(chan struct{}),
	}
	t.wg.Add(2)
	go t.readLoop()
	go t.writeLoop()
	return t
}

// Send enqueues a frame for the single writer goroutine and waits for it to
// reach the kernel. Back-pressure from a full pipe buffer is absorbed here;
// Send only returns an error if the write itself failed or the transport is
// already closed — callers time out at the command-deadline level, not here.
func (t *Transport) Send(f *wire.Frame) error {
	payload, err := wire.Encode(f)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	select {
	case t.writeCh <- writeRequest{payload: payload, done: done}:
	case <-t.closed:
		return fmt.Errorf("send %s: %w", f.Method, ErrClosed)
	}

	select {
	case err := <-done:
		return err
	case <-t.closed:
		return fmt.Errorf("send %s: %w", f.Method, ErrClosed)
	}
}

func (t *Transport) writeLoop() {
	defer t.wg.Done()
	for {
		select {
		case req := <-t.writeCh:
			_, err := t.w.Write(req.payload)
			if err != nil {
				err = fmt.Errorf("writing frame: %w", err)
			}
			req.done <- err
			if err != nil {
				t.shutdown(err)
				return
			}
		case <-t.closed:
			return
		}
	}
}

func (t *Transport) readLoop() {
	defer t.wg.Done()

	scanner := bufio.NewScanner(t.r)
	scanner.Buffer(make([]byte, 4096), MaxFrameSize)
	scanner.Split(wire.SplitNUL)

	for scanner.Scan() {
		chunk := scanner.Bytes()
		if len(chunk) == 0 {
			continue
		}
		f, err := wire.Decode(chunk)
		if err != nil {
			// A single malformed frame is recoverable: drop it and keep
			// reading. The dropped frame is not logged. The loop only
			// terminates on a genuine read error or EOF.
			continue
		}
		t.onFrame(f)
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	t.shutdown(fmt.Errorf("pipe read loop ended: %w", err))
}

// shutdown performs the one-time close sequence: close both fds, mark the
// transport closed, and notify the owner exactly once, regardless of which
// goroutine (reader or writer) detected the failure first.
func (t *Transport) shutdown(reason error) {
	t.closeOnce.Do(func() {
		t.closeMu.Lock()
		t.closeErr = reason
		t.closeMu.Unlock()

		close(t.closed)
		t.r.Close()
		t.w.Close()

		if t.onClosed != nil {
			t.onClosed(reason)
		}
	})
}

// Close shuts the transport down explicitly. Idempotent: a second call is a
// no-op.
func (t *Transport) Close() error {
	t.shutdown(fmt.Errorf("closed by caller: %w", ErrClosed))
	t.wg.Wait()
	return nil
}

// Closed returns a channel that is closed once the transport has shut down.
func (t *Transport) Closed() <-chan struct{} {
	return t.closed
}

// Err returns the reason the transport closed, or nil while still open.
func (t *Transport) Err() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	return t.closeErr
}
