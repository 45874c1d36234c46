package client

import (
	"bytes"
	"context"
	"net/http"

	"github.com/turtacn/molgrid/internal/infrastructure/storage/tensor"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

const apiPrefix = "/api/v1"

// Shape returns the tensor shapes the server is configured for.
func (c *Client) Shape(ctx context.Context) (*mtypes.ShapeResponse, error) {
	var out mtypes.ShapeResponse
	if err := c.getJSON(ctx, apiPrefix+"/shape", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Grid rasterizes one receptor/ligand pair and returns it as JSON.
func (c *Client) Grid(ctx context.Context, req *mtypes.GridRequest) (*mtypes.GridResponse, error) {
	if req == nil || len(req.Ligand) == 0 {
		return nil, errors.InvalidParam("grid request needs at least one ligand atom")
	}
	var out mtypes.GridResponse
	if err := c.postJSON(ctx, apiPrefix+"/grid", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GridTensor is Grid with a .npy body, which is smaller and faster to decode
// for large grids. The center is not reported in this form.
func (c *Client) GridTensor(ctx context.Context, req *mtypes.GridRequest) (*mtypes.GridResponse, error) {
	if req == nil || len(req.Ligand) == 0 {
		return nil, errors.InvalidParam("grid request needs at least one ligand atom")
	}
	resp, err := c.do(ctx, http.MethodPost, apiPrefix+"/grid", tensor.ContentType, req)
	if err != nil {
		return nil, err
	}
	shape, data, err := tensor.Read(bytes.NewReader(resp.body))
	if err != nil {
		return nil, err
	}
	return &mtypes.GridResponse{
		BatchID: resp.header.Get("X-Batch-ID"),
		Shape:   shape,
		Data:    data,
	}, nil
}

// Ready reports whether the server's readiness probe passes.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/readyz", "application/json", nil)
	return err
}

//Personal.AI order the ending
