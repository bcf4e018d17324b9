package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/intake/internal/config"
	"github.com/ManuGH/intake/internal/log"
)

func testDeps(h http.Handler) Deps {
	return Deps{
		Logger: log.WithComponent("test"),
		Server: config.ServerConfig{
			Listen:          "127.0.0.1:0",
			ShutdownTimeout: 2 * time.Second,
		},
		APIHandler: h,
	}
}

func TestNewManagerValidatesDeps(t *testing.T) {
	_, err := NewManager(Deps{Logger: log.WithComponent("test")})
	assert.ErrorIs(t, err, ErrMissingAPIHandler)

	_, err = NewManager(Deps{Logger: zerolog.New(nil).Level(zerolog.Disabled), APIHandler: http.NotFoundHandler()})
	assert.ErrorIs(t, err, ErrMissingLogger)
}

func TestShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testDeps(http.NotFoundHandler()))
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestStartServesAndRunsHooksInReverse(t *testing.T) {
	mgr, err := NewManager(testDeps(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		mgr.RegisterShutdownHook(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	require.Eventually(t, func() bool { return mgr.APIAddr() != "" }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + mgr.APIAddr() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	assert.ErrorIs(t, mgr.Start(ctx), ErrManagerStarted)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestShutdownJoinsHookErrors(t *testing.T) {
	mgr, err := NewManager(testDeps(http.NotFoundHandler()))
	require.NoError(t, err)

	errA := errors.New("flush failed")
	errB := errors.New("close failed")
	mgr.RegisterShutdownHook("a", func(context.Context) error { return errA })
	mgr.RegisterShutdownHook("b", func(context.Context) error { return errB })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = mgr.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestStartReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	deps := testDeps(http.NotFoundHandler())
	deps.Server.Listen = ln.Addr().String()
	mgr, err := NewManager(deps)
	require.NoError(t, err)

	hookRan := false
	mgr.RegisterShutdownHook("cleanup", func(context.Context) error {
		hookRan = true
		return nil
	})

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api server")
	assert.True(t, hookRan)
}
