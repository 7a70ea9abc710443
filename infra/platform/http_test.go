package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/shiftd/core/model"
	coreplatform "github.com/fleetops/shiftd/core/platform"
)

func testClient(baseURL string) *HTTPClient {
	return NewHTTPClient(Config{
		BaseURL:    baseURL,
		Token:      "secret",
		MaxRetries: 2,
	})
}

func TestSendCommandExecuted(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"executed":true}`)
	}))
	defer srv.Close()

	err := testClient(srv.URL).SendCommand(context.Background(), "dev1", "setdigout 1")
	require.NoError(t, err)
	assert.Equal(t, "FlespiToken secret", gotAuth)
	assert.Equal(t, "/devices/dev1/commands", gotPath)
}

func TestSendCommandRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"executed":false}`)
	}))
	defer srv.Close()

	err := testClient(srv.URL).SendCommand(context.Background(), "dev1", "setdigout 1")
	assert.ErrorIs(t, err, coreplatform.ErrCommandRejected)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := testClient(srv.URL).SendCommand(context.Background(), "dev1", "setdigout 1")
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestServerErrorIsRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"executed":true}`)
	}))
	defer srv.Close()

	err := testClient(srv.URL).SendCommand(context.Background(), "dev1", "setdigout 1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestReadIgnition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/devices/dev1/telemetry/ignition", r.URL.Path)
		fmt.Fprint(w, `{"value":"1"}`)
	}))
	defer srv.Close()

	state, err := testClient(srv.URL).ReadIgnition(context.Background(), "dev1")
	require.NoError(t, err)
	assert.Equal(t, model.IgnitionOn, state)
}

func TestReadIgnitionUnknownValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":"garbage"}`)
	}))
	defer srv.Close()

	state, err := testClient(srv.URL).ReadIgnition(context.Background(), "dev1")
	require.NoError(t, err)
	assert.Equal(t, model.IgnitionUnknown, state)
}

func TestReadOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/devices/dev1/telemetry/dout", r.URL.Path)
		fmt.Fprint(w, `{"value":1}`)
	}))
	defer srv.Close()

	v, err := testClient(srv.URL).ReadOutput(context.Background(), "dev1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL, MaxRetries: 1, BreakerFailures: 2})

	// Two failing calls trip the breaker, the third fails without
	// touching the server.
	_ = c.SendCommand(context.Background(), "dev1", "x")
	_ = c.SendCommand(context.Background(), "dev1", "x")
	before := attempts.Load()
	err := c.SendCommand(context.Background(), "dev1", "x")
	require.Error(t, err)
	assert.Equal(t, before, attempts.Load())
}

func TestDecodeErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ReadIgnition(context.Background(), "dev1")
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}
