package streaming

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.WriteTimeout != 30*time.Second {
		t.Errorf("Expected WriteTimeout=30s, got %v", config.WriteTimeout)
	}
	if config.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout=60s, got %v", config.IdleTimeout)
	}
	if config.ChunkSize != 64*1024 {
		t.Errorf("Expected ChunkSize=64KB, got %d", config.ChunkSize)
	}
}

func TestTimeoutWriterBasicWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), rec, DefaultConfig())
	defer tw.Close()

	payload := []byte("hello stream")
	n, err := tw.Write(payload)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(payload) {
		t.Errorf("wrote %d bytes, want %d", n, len(payload))
	}
	if rec.Body.String() != "hello stream" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "hello stream")
	}

	bytesWritten, _ := tw.Stats()
	if bytesWritten != int64(len(payload)) {
		t.Errorf("Stats reported %d bytes, want %d", bytesWritten, len(payload))
	}
}

func TestTimeoutWriterChunking(t *testing.T) {
	rec := httptest.NewRecorder()
	config := DefaultConfig()
	config.ChunkSize = 8

	tw := NewTimeoutWriter(context.Background(), rec, config)
	defer tw.Close()

	payload := []byte(strings.Repeat("x", 100))
	n, err := tw.Write(payload)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 100 {
		t.Errorf("wrote %d bytes, want 100", n)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Error("chunked write corrupted payload")
	}
}

func TestTimeoutWriterClosed(t *testing.T) {
	rec := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), rec, DefaultConfig())

	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Double close is a no-op.
	if err := tw.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := tw.Write([]byte("after close")); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("write after close: got %v, want ErrStreamCanceled", err)
	}
}

func TestTimeoutWriterClientGone(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())

	tw := NewTimeoutWriter(ctx, rec, DefaultConfig())
	defer tw.Close()

	cancel()

	if _, err := tw.Write([]byte("too late")); !errors.Is(err, ErrClientGone) {
		t.Errorf("write after disconnect: got %v, want ErrClientGone", err)
	}
}

func TestCopy(t *testing.T) {
	rec := httptest.NewRecorder()
	payload := strings.Repeat("abc", 1000)

	n, err := Copy(context.Background(), rec, strings.NewReader(payload), DefaultConfig())
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("copied %d bytes, want %d", n, len(payload))
	}
	if rec.Body.String() != payload {
		t.Error("copied payload does not match source")
	}
}
