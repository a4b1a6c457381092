package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runWorker(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWorker_DeliversSignedEvent(t *testing.T) {
	const secret = "shh"
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	worker := NewWorker(NewService(Endpoint{URL: server.URL, Secret: secret}), discardLogger())
	runWorker(t, worker)

	worker.Notify("attendance.login", map[string]interface{}{"student_id": 7, "name": "Bruno"})

	var r *http.Request
	select {
	case r = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}
	body := <-bodies

	assert.Equal(t, http.MethodPost, r.Method)
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	assert.Equal(t, "attendance.login", r.Header.Get(HeaderEvent))
	assert.NotEmpty(t, r.Header.Get(HeaderDelivery))

	ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
	require.NoError(t, err)
	assert.True(t, Verify(secret, ts, body, r.Header.Get(HeaderSignature)))

	var event EventPayload
	require.NoError(t, json.Unmarshal(body, &event))
	assert.Equal(t, "attendance.login", event.Type)
	assert.Equal(t, r.Header.Get(HeaderDelivery), event.ID.String())
}

func TestWorker_RetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	delivered := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		close(delivered)
	}))
	defer server.Close()

	worker := NewWorker(NewService(Endpoint{URL: server.URL, Secret: "s"}), discardLogger(),
		WithBaseDelay(time.Millisecond))
	runWorker(t, worker)

	worker.Notify("attendance.logout", nil)

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never succeeded")
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	worker := NewWorker(NewService(Endpoint{URL: server.URL, Secret: "s"}), discardLogger(),
		WithBaseDelay(time.Millisecond), WithMaxAttempts(2))
	runWorker(t, worker)

	worker.Notify("attendance.login", nil)

	require.Eventually(t, func() bool { return attempts.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestWorker_NotifyDoesNotBlockWhenFull(t *testing.T) {
	worker := NewWorker(NewService(Endpoint{URL: "http://127.0.0.1:1"}), discardLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultQueueSize+10; i++ {
			worker.Notify("attendance.login", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	assert.Len(t, worker.queue, defaultQueueSize)
}
