package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgrid/internal/infrastructure/storage/tensor"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 5*time.Millisecond)}, opts...)
	client, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return client
}

type testLogger struct {
	lastMsg atomic.Value
	count   int32
}

func (l *testLogger) Debugf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) log(format string, args ...interface{}) {
	atomic.AddInt32(&l.count, 1)
	l.lastMsg.Store(fmt.Sprintf(format, args...))
}

var oneAtom = &mtypes.GridRequest{
	Ligand: []mtypes.TypedAtom{{Type: "AliphaticCarbonXSHydrophobe", X: 1}},
}

// ---------------------------------------------------------------------------
// Constructor Tests
// ---------------------------------------------------------------------------

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://molgrid.local:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://molgrid.local:8080", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "molgrid-go-sdk/")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "no-scheme"} {
		_, err := NewClient(u)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig), "%q: %v", u, err)
	}
}

// ---------------------------------------------------------------------------
// Endpoint Tests
// ---------------------------------------------------------------------------

func TestClient_Shape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/shape", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Contains(t, r.Header.Get("User-Agent"), "molgrid-go-sdk/")
		_ = json.NewEncoder(w).Encode(mtypes.ShapeResponse{GridShape: []int{4, 28, 48, 48, 48}, PointsPerSide: 48})
	})

	shape, err := c.Shape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 48, shape.PointsPerSide)
	assert.Equal(t, []int{4, 28, 48, 48, 48}, shape.GridShape)
}

func TestClient_Grid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req mtypes.GridRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, oneAtom.Ligand, req.Ligand)
		_ = json.NewEncoder(w).Encode(mtypes.GridResponse{BatchID: "b", Shape: []int{1, 1, 1, 2}, Data: []float32{0, 1}})
	})

	resp, err := c.Grid(context.Background(), oneAtom)
	require.NoError(t, err)
	assert.Equal(t, "b", resp.BatchID)
	assert.Equal(t, []float32{0, 1}, resp.Data)
}

func TestClient_GridTensor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tensor.ContentType, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", tensor.ContentType)
		w.Header().Set("X-Batch-ID", "npy")
		require.NoError(t, tensor.Write(w, []int{1, 2, 1, 1}, []float32{0.5, 0.25}))
	})

	resp, err := c.GridTensor(context.Background(), oneAtom)
	require.NoError(t, err)
	assert.Equal(t, "npy", resp.BatchID)
	assert.Equal(t, []int{1, 2, 1, 1}, resp.Shape)
	assert.Equal(t, []float32{0.5, 0.25}, resp.Data)
}

func TestClient_Grid_EmptyLigand(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&calls, 1) })

	_, err := c.Grid(context.Background(), &mtypes.GridRequest{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	_, err = c.GridTensor(context.Background(), nil)
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

// ---------------------------------------------------------------------------
// Error and Retry Tests
// ---------------------------------------------------------------------------

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"PARSE_005","message":"unknown atom type"}`))
	})

	_, err := c.Grid(context.Background(), oneAtom)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrCodeAtomTypeOutOfRange, apiErr.Code)
	assert.True(t, apiErr.IsClientError())
	assert.NotEmpty(t, apiErr.RequestID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ServerErrorRetried(t *testing.T) {
	var calls int32
	logger := &testLogger{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
			return
		}
		_ = json.NewEncoder(w).Encode(mtypes.ShapeResponse{PointsPerSide: 3})
	}, WithLogger(logger))

	shape, err := c.Shape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, shape.PointsPerSide)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Positive(t, atomic.LoadInt32(&logger.count))
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, WithRetryMax(2))

	err := c.Ready(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryWait(time.Second, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Ready(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalculateBackoff(t *testing.T) {
	c := &Client{retryWaitMin: 100 * time.Millisecond, retryWaitMax: 300 * time.Millisecond}
	for attempt, base := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 300 * time.Millisecond, 6: 300 * time.Millisecond} {
		got := c.calculateBackoff(attempt)
		assert.GreaterOrEqual(t, got, base)
		assert.Less(t, got, base+base/4+time.Nanosecond)
	}
}

//Personal.AI order the ending
