package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molgrid/internal/application/molgrid"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/storage/tensor"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// GridHandler serves shape queries and single-pair rasterization.
type GridHandler struct {
	svc    molgrid.Service
	logger logging.Logger
}

// NewGridHandler creates a GridHandler.
func NewGridHandler(svc molgrid.Service, logger logging.Logger) *GridHandler {
	return &GridHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the grid routes on r.
func (h *GridHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/shape", h.Shape)
	r.POST("/grid", h.Grid)
}

// Shape handles GET /shape.
func (h *GridHandler) Shape(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Shape())
}

// Grid handles POST /grid. The grid is returned as JSON unless the client
// accepts application/octet-stream, in which case it is a .npy file with the
// response shape.
func (h *GridHandler) Grid(c *gin.Context) {
	var req mtypes.GridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "parse grid request"))
		return
	}
	resp, err := h.svc.Single(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("grid request failed", logging.Err(err),
			logging.Int("receptor_atoms", len(req.Receptor)),
			logging.Int("ligand_atoms", len(req.Ligand)))
		writeError(c, err)
		return
	}

	if strings.Contains(c.GetHeader("Accept"), tensor.ContentType) {
		body, err := tensor.Encode(resp.Shape, resp.Data)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("X-Batch-ID", resp.BatchID)
		c.Data(http.StatusOK, tensor.ContentType, body)
		return
	}
	c.JSON(http.StatusOK, resp)
}

//Personal.AI order the ending
