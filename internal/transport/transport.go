// Package transport frames MCP messages as newline-delimited JSON.
// file: internal/transport/transport.go
package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
)

// MaxMessageSize is the largest accepted message in bytes.
const MaxMessageSize = 1024 * 1024

// Transport reads and writes whole JSON-RPC messages. Implementations must be
// safe for one reader and concurrent writers.
type Transport interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, message []byte) error
	Close() error
}

// NDJSONTransport reads one message per line and writes each message followed by '\n'.
// It does not interpret message contents.
type NDJSONTransport struct {
	reader    *bufio.Reader
	writer    io.Writer
	closer    io.Closer
	maxSize   int
	logger    logging.Logger
	writeLock sync.Mutex
	closed    bool
	// readAbandoned is set when a read was cancelled while its goroutine still owns
	// reader. No later read may touch reader.
	readAbandoned bool
	closeLock     sync.RWMutex
}

// NewNDJSONTransport wraps r and w. closer may be nil.
func NewNDJSONTransport(r io.Reader, w io.Writer, closer io.Closer, logger logging.Logger) *NDJSONTransport {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &NDJSONTransport{
		reader:  bufio.NewReader(r),
		writer:  w,
		closer:  closer,
		maxSize: MaxMessageSize,
		logger:  logger.WithField("component", "ndjson_transport"),
	}
}

func (t *NDJSONTransport) isClosed() bool {
	t.closeLock.RLock()
	defer t.closeLock.RUnlock()
	return t.closed
}

func (t *NDJSONTransport) isReadAbandoned() bool {
	t.closeLock.RLock()
	defer t.closeLock.RUnlock()
	return t.readAbandoned
}

func (t *NDJSONTransport) abandonRead() {
	t.closeLock.Lock()
	defer t.closeLock.Unlock()
	if !t.readAbandoned {
		t.readAbandoned = true
		t.logger.Debug("Read cancelled, transport accepts no further reads.")
	}
}

// ReadMessage returns the next non-blank line. An oversized line is consumed and
// reported with a message size error; the next call reads the following line.
// Once a read is cancelled through ctx, every later read fails with a closed error.
func (t *NDJSONTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	if t.isClosed() || t.isReadAbandoned() {
		return nil, NewClosedError("read")
	}

	type readResult struct {
		data []byte
		err  error
	}
	resultCh := make(chan readResult, 1)

	go func() {
		for {
			line, err := t.readLine()
			if err != nil {
				resultCh <- readResult{nil, err}
				return
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			resultCh <- readResult{line, nil}
			return
		}
	}()

	select {
	case <-ctx.Done():
		t.abandonRead()
		return nil, NewTimeoutError("read", ctx.Err())
	case res := <-resultCh:
		if res.err == nil {
			t.logger.Debug("Received raw message.", "size", len(res.data))
		}
		return res.data, res.err
	}
}

func (t *NDJSONTransport) readLine() ([]byte, error) {
	var buf bytes.Buffer
	total := 0
	for {
		chunk, isPrefix, err := t.reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, NewError(ErrTransportClosed, "connection closed by peer", io.EOF)
			}
			return nil, NewError(ErrGeneric, "failed to read message line", err)
		}
		total += len(chunk)
		if total <= t.maxSize {
			buf.Write(chunk)
		}
		if !isPrefix {
			break
		}
	}
	if total > t.maxSize {
		return nil, NewMessageSizeError(total, t.maxSize)
	}
	return buf.Bytes(), nil
}

// WriteMessage writes message followed by a newline.
func (t *NDJSONTransport) WriteMessage(ctx context.Context, message []byte) error {
	if t.isClosed() {
		return NewClosedError("write")
	}
	if len(message) > t.maxSize {
		return NewMessageSizeError(len(message), t.maxSize)
	}

	t.writeLock.Lock()
	defer t.writeLock.Unlock()

	resultCh := make(chan error, 1)
	go func() {
		buf := make([]byte, len(message)+1)
		copy(buf, message)
		buf[len(message)] = '\n'
		n, err := t.writer.Write(buf)
		if err == nil && n < len(buf) {
			err = io.ErrShortWrite
		}
		resultCh <- err
	}()

	select {
	case <-ctx.Done():
		return NewTimeoutError("write", ctx.Err())
	case err := <-resultCh:
		if err != nil {
			t.logger.Error("Failed to write message.", "error", err)
			return NewError(ErrGeneric, "failed to write message", err)
		}
		return nil
	}
}

// Close marks the transport closed and closes the underlying closer, if any.
func (t *NDJSONTransport) Close() error {
	t.closeLock.Lock()
	defer t.closeLock.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.logger.Info("Closing NDJSON transport.")
	if t.closer != nil {
		if err := t.closer.Close(); err != nil {
			return NewError(ErrTransportClosed, "failed to close underlying stream", err)
		}
	}
	return nil
}
