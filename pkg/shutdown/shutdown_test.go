package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_RunsHooksInPriorityOrder(t *testing.T) {
	h := NewHandler(Config{})

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	h.RegisterFunc("flush", PriorityLast, record("flush"))
	h.RegisterFunc("live", PriorityLive, record("live"))
	h.RegisterFunc("http", PriorityHTTP, record("http"))
	h.RegisterFunc("live-2", PriorityLive, record("live-2"))

	require.NoError(t, h.Shutdown())
	assert.Equal(t, []string{"http", "live", "live-2", "flush"}, order)
	assert.True(t, h.IsClosed())

	select {
	case <-h.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdown_CollectsErrors(t *testing.T) {
	h := NewHandler(Config{})
	boom := errors.New("boom")
	ran := false

	h.RegisterFunc("failing", PriorityFirst, func(context.Context) error { return boom })
	h.RegisterFunc("after", PriorityLast, func(context.Context) error {
		ran = true
		return nil
	})

	err := h.Shutdown()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.True(t, ran, "hooks after a failure still run")
}

func TestShutdown_Timeout(t *testing.T) {
	h := NewHandler(Config{Timeout: 20 * time.Millisecond})
	ran := false

	h.RegisterFunc("slow", PriorityFirst, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.RegisterFunc("skipped", PriorityLast, func(context.Context) error {
		ran = true
		return nil
	})

	err := h.Shutdown()
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.False(t, ran)
}

func TestShutdown_OnlyOnce(t *testing.T) {
	h := NewHandler(Config{})
	require.NoError(t, h.Shutdown())
	assert.ErrorIs(t, h.Shutdown(), ErrAlreadyClosed)
}

func TestWait_ContextCancelled(t *testing.T) {
	h := NewHandler(Config{})
	called := make(chan struct{})
	h.RegisterFunc("hook", PriorityFirst, func(context.Context) error {
		close(called)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.Wait(ctx) }()
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
	<-called
}

func TestWait_ReturnsAfterExternalShutdown(t *testing.T) {
	h := NewHandler(Config{})
	errc := make(chan error, 1)
	go func() { errc <- h.Wait(context.Background()) }()

	require.NoError(t, h.Shutdown())
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestHTTPServerHook(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.NotFoundHandler())
	srv.Start()
	defer srv.Close()

	hook := HTTPServerHook("http", srv.Config)
	assert.Equal(t, PriorityHTTP, hook.Priority)
	require.NoError(t, hook.Fn(context.Background()))

	_, err := http.Get(srv.URL)
	assert.Error(t, err)
}
