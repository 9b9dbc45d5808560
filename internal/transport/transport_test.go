// file: internal/transport/transport_test.go
package transport

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNDJSONTransport_ReadsLinesAndSkipsBlank(t *testing.T) {
	in := strings.NewReader("{\"a\":1}\n\n   \n{\"b\":2}\n")
	tr := NewNDJSONTransport(in, &bytes.Buffer{}, nil, nil)
	ctx := context.Background()

	msg, err := tr.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(msg))

	msg, err = tr.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(msg), "Blank lines should be skipped.")

	_, err = tr.ReadMessage(ctx)
	require.Error(t, err)
	assert.True(t, IsClosedError(err), "EOF should surface as a closed error, got %v.", err)
}

func TestNDJSONTransport_OversizedLineIsSkipped(t *testing.T) {
	in := strings.NewReader(strings.Repeat("x", 64) + "\n{\"ok\":true}\n")
	tr := NewNDJSONTransport(in, &bytes.Buffer{}, nil, nil)
	tr.maxSize = 16
	ctx := context.Background()

	_, err := tr.ReadMessage(ctx)
	require.Error(t, err)
	assert.True(t, IsMessageSizeError(err))
	assert.False(t, IsClosedError(err))

	msg, err := tr.ReadMessage(ctx)
	require.NoError(t, err, "Reading should resume at the next line.")
	assert.Equal(t, `{"ok":true}`, string(msg))
}

func TestNDJSONTransport_WriteAppendsNewline(t *testing.T) {
	var out bytes.Buffer
	tr := NewNDJSONTransport(strings.NewReader(""), &out, nil, nil)

	require.NoError(t, tr.WriteMessage(context.Background(), []byte(`{"id":1}`)))
	require.NoError(t, tr.WriteMessage(context.Background(), []byte(`{"id":2}`)))
	assert.Equal(t, "{\"id\":1}\n{\"id\":2}\n", out.String())
}

func TestNDJSONTransport_ClosedRejectsIO(t *testing.T) {
	tr := NewNDJSONTransport(strings.NewReader("{}\n"), &bytes.Buffer{}, nil, nil)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close(), "Close should be idempotent.")

	_, err := tr.ReadMessage(context.Background())
	assert.True(t, IsClosedError(err))
	assert.True(t, IsClosedError(tr.WriteMessage(context.Background(), []byte("{}"))))
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	time.Sleep(time.Hour)
	return 0, nil
}

func TestNDJSONTransport_ReadHonorsContext(t *testing.T) {
	tr := NewNDJSONTransport(blockingReader{}, &bytes.Buffer{}, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.ReadMessage(ctx)
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ErrReadTimeout, te.Code)
}

func TestNDJSONTransport_CancelledReadBlocksLaterReads(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	tr := NewNDJSONTransport(pr, &bytes.Buffer{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.ReadMessage(ctx)
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ErrReadTimeout, te.Code)

	_, err = tr.ReadMessage(context.Background())
	assert.True(t, IsClosedError(err), "A read after cancellation must not share the reader, got %v.", err)

	assert.NoError(t, tr.WriteMessage(context.Background(), []byte(`{}`)), "Writes are unaffected.")
}
