package e2e_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgrid/internal/application/molgrid"
	"github.com/turtacn/molgrid/internal/infrastructure/database/redis"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/structure"
	"github.com/turtacn/molgrid/internal/interfaces/cli"
	"github.com/turtacn/molgrid/pkg/client"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

func sum(data []float32) float32 {
	var s float32
	for _, v := range data {
		s += v
	}
	return s
}

func TestE2E_ReadyAndShape(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, env.sdk.Ready(ctx))

	shape, err := env.sdk.Shape(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, shape.PointsPerSide)
	assert.Equal(t, env.runtime.Layer.GridShape(), shape.GridShape)
	assert.Equal(t, []int{2}, shape.LabelShape)
}

func TestE2E_GridJSONAndTensorAgree(t *testing.T) {
	ctx := context.Background()
	req := &mtypes.GridRequest{
		Receptor: []mtypes.TypedAtom{{Type: "AliphaticCarbonXSHydrophobe", X: 1.5}},
		Ligand: []mtypes.TypedAtom{
			{Type: "AliphaticCarbonXSHydrophobe"},
			{Type: "AliphaticCarbonXSHydrophobe", Y: 1},
		},
	}

	asJSON, err := env.sdk.Grid(ctx, req)
	require.NoError(t, err)
	asNpy, err := env.sdk.GridTensor(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, asJSON.Shape, asNpy.Shape)
	assert.Equal(t, asJSON.Data, asNpy.Data)
	assert.Positive(t, sum(asJSON.Data))
	assert.NotEqual(t, asJSON.BatchID, asNpy.BatchID)
}

func TestE2E_UnknownTypeIsClientError(t *testing.T) {
	_, err := env.sdk.Grid(context.Background(), &mtypes.GridRequest{
		Ligand: []mtypes.TypedAtom{{Type: "Unobtainium"}},
	})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, errors.ErrCodeAtomTypeOutOfRange, apiErr.Code)
}

func TestE2E_ForwardPopulatesGeometryTier(t *testing.T) {
	layer := env.runtime.Layer
	n := 1
	for _, d := range layer.GridShape() {
		n *= d
	}
	grids, labels := make([]float32, n), make([]float32, 2)
	require.NoError(t, layer.Forward(context.Background(), grids, labels))
	assert.Equal(t, []float32{1, 0}, labels)
	assert.Positive(t, sum(grids))

	var geom []string
	for _, k := range env.redis.Keys() {
		if strings.HasPrefix(k, env.runtime.Config.Cache.Redis.KeyPrefix) {
			geom = append(geom, k)
		}
	}
	// one receptor and two ligands
	assert.Len(t, geom, 3)

	// A second layer over the same root that may only read the list builds
	// the same batch from the shared tier.
	src := listOnlySource{Source: structure.NewDirSource(env.root)}

	rc, err := redis.NewClient(&redis.RedisConfig{Addr: env.redis.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	store := redis.NewGeometryStore(rc, logging.NewNopLogger(),
		redis.WithPrefix(env.runtime.Config.Cache.Redis.KeyPrefix))

	opts := cli.LayerOptions(env.runtime.Config)
	second, err := molgrid.NewLayer(context.Background(), opts,
		molgrid.WithSource(src),
		molgrid.WithGeometryStore(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	again, againLabels := make([]float32, n), make([]float32, 2)
	require.NoError(t, second.Forward(context.Background(), again, againLabels))
	assert.Equal(t, labels, againLabels)
	assert.Equal(t, grids, again)
	assert.Zero(t, second.Cache().Parses())

	// The same files under a different channel assignment are parsed again.
	opts.ReceptorTypes = []string{"Nitrogen", "AliphaticCarbonXSHydrophobe"}
	remapped, err := molgrid.NewLayer(context.Background(), opts,
		molgrid.WithSource(structure.NewDirSource(env.root)),
		molgrid.WithGeometryStore(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = remapped.Close() })

	m := 1
	for _, d := range remapped.GridShape() {
		m *= d
	}
	require.NoError(t, remapped.Forward(context.Background(), make([]float32, m), make([]float32, 2)))
	assert.EqualValues(t, 3, remapped.Cache().Parses())
}

// listOnlySource serves example lists and refuses structure files.
type listOnlySource struct {
	structure.Source
}

func (s listOnlySource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !strings.HasSuffix(name, ".types") {
		return nil, fmt.Errorf("unexpected structure read: %s", name)
	}
	return s.Source.Open(ctx, name)
}

func TestE2E_MetricsExposed(t *testing.T) {
	_, err := env.sdk.Shape(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "molgrid_e2e_http_requests_total")
}

//Personal.AI order the ending
