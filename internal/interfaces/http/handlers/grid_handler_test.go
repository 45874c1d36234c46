package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/storage/tensor"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) GridShape() []int  { return m.Called().Get(0).([]int) }
func (m *mockService) LabelShape() []int { return m.Called().Get(0).([]int) }
func (m *mockService) Forward(ctx context.Context, grids, labels []float32) error {
	return m.Called(ctx, grids, labels).Error(0)
}
func (m *mockService) SetReceptor(atoms []mtypes.AtomRecord) error {
	return m.Called(atoms).Error(0)
}
func (m *mockService) SetLigand(atoms []mtypes.AtomRecord, coords []mtypes.Vec3) error {
	return m.Called(atoms, coords).Error(0)
}
func (m *mockService) ResetRotation() { m.Called() }
func (m *mockService) Single(ctx context.Context, req *mtypes.GridRequest) (*mtypes.GridResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*mtypes.GridResponse)
	return resp, args.Error(1)
}
func (m *mockService) Shape() *mtypes.ShapeResponse {
	return m.Called().Get(0).(*mtypes.ShapeResponse)
}
func (m *mockService) Close() error { return m.Called().Error(0) }

func newEngine(svc *mockService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewGridHandler(svc, logging.NewNopLogger()).RegisterRoutes(r)
	return r
}

func postGrid(t *testing.T, r http.Handler, body interface{}, accept string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/grid", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var ligandOnly = mtypes.GridRequest{
	Ligand: []mtypes.TypedAtom{{Type: "AliphaticCarbonXSHydrophobe", X: 1, Y: 2, Z: 3}},
}

func TestGridHandler_Shape(t *testing.T) {
	svc := new(mockService)
	svc.On("Shape").Return(&mtypes.ShapeResponse{GridShape: []int{2, 3, 4, 4, 4}, PointsPerSide: 4})

	w := httptest.NewRecorder()
	newEngine(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shape", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got mtypes.ShapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []int{2, 3, 4, 4, 4}, got.GridShape)
	assert.Equal(t, 4, got.PointsPerSide)
}

func TestGridHandler_GridJSON(t *testing.T) {
	svc := new(mockService)
	resp := &mtypes.GridResponse{BatchID: "b1", Shape: []int{1, 2, 1, 1}, Data: []float32{0, 0.5}}
	svc.On("Single", mock.Anything, mock.MatchedBy(func(r *mtypes.GridRequest) bool {
		return len(r.Ligand) == 1 && r.Ligand[0].Z == 3
	})).Return(resp, nil)

	w := postGrid(t, newEngine(svc), ligandOnly, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got mtypes.GridResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, *resp, got)
	svc.AssertExpectations(t)
}

func TestGridHandler_GridNpy(t *testing.T) {
	svc := new(mockService)
	resp := &mtypes.GridResponse{BatchID: "b2", Shape: []int{1, 2, 1, 1}, Data: []float32{0.25, 1}}
	svc.On("Single", mock.Anything, mock.Anything).Return(resp, nil)

	w := postGrid(t, newEngine(svc), ligandOnly, tensor.ContentType)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tensor.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "b2", w.Header().Get("X-Batch-ID"))

	shape, data, err := tensor.Read(w.Body)
	require.NoError(t, err)
	assert.Equal(t, resp.Shape, shape)
	assert.Equal(t, resp.Data, data)
}

func TestGridHandler_BadBody(t *testing.T) {
	svc := new(mockService)
	w := postGrid(t, newEngine(svc), map[string]interface{}{"receptor": []interface{}{}}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, string(errors.ErrCodeBadRequest), got.Code)
	svc.AssertNotCalled(t, "Single", mock.Anything, mock.Anything)
}

func TestGridHandler_ServiceErrorMapsStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errors.New(errors.ErrCodeAtomTypeOutOfRange, "unknown atom type"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeAcceleratorUnavailable, "no accelerator"), http.StatusServiceUnavailable},
		{errors.Wrap(assert.AnError, errors.CodeUnknown, "boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		svc := new(mockService)
		svc.On("Single", mock.Anything, mock.Anything).Return(nil, c.err)
		w := postGrid(t, newEngine(svc), ligandOnly, "")
		assert.Equal(t, c.status, w.Code, "%v", c.err)
	}
}
