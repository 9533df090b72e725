package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"

	"github.com/fyrsmithlabs/chunkopt/internal/logging"
	"github.com/fyrsmithlabs/chunkopt/internal/optimizer"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, v1.HealthResponse{Status: "ok", Version: s.config.Version})
}

// handleReady reports readiness. Degraded telemetry is reported but does not
// make the service unready.
func (s *Server) handleReady(c echo.Context) error {
	resp := v1.ReadyResponse{
		Status:   "ready",
		Profiles: len(s.engine.Profiles()),
		Checks:   map[string]string{"engine": "ok"},
	}

	switch h := s.tel.Health(); {
	case !s.tel.IsEnabled():
		resp.Checks["telemetry"] = "disabled"
	case h.Degraded:
		resp.Checks["telemetry"] = "degraded: " + h.Reason
	default:
		resp.Checks["telemetry"] = "ok"
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAnalyzeChunk(c echo.Context) error {
	var req v1.AnalyzeChunkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	chunk := optimizer.Chunk{ID: req.ChunkID, Content: req.Content, Metadata: req.Metadata}
	res, err := s.engine.AnalyzeChunk(c.Request().Context(), chunk, req.Domain, optimizer.OptionsFromAPI(req.Options))
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res.API())
}

func (s *Server) handleAnalyzeDocument(c echo.Context) error {
	var req v1.AnalyzeDocumentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if logging.ValidID(req.DocumentID) {
		ctx = logging.WithDocumentID(ctx, req.DocumentID)
	}

	res, err := s.engine.AnalyzeDocument(ctx, req.DocumentID, optimizer.ChunksFromAPI(req.Chunks), req.Domain, optimizer.OptionsFromAPI(req.Options))
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res.API())
}

func (s *Server) handleAnalyzeBatch(c echo.Context) error {
	var req v1.AnalyzeBatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if logging.ValidID(req.BatchID) {
		ctx = logging.WithBatchID(ctx, req.BatchID)
	}

	res, err := s.engine.AnalyzeBatch(ctx, req.BatchID, optimizer.ChunksFromAPI(req.Items), req.Domain, optimizer.OptionsFromAPI(req.Options))
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res.API())
}

func (s *Server) handleSimilarity(c echo.Context) error {
	var req v1.SimilarityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sim, err := s.engine.Compare(c.Request().Context(), req.A, req.B)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, v1.SimilarityResponse{Similarity: sim})
}

func (s *Server) handleProfiles(c echo.Context) error {
	profiles := s.engine.Profiles()
	resp := v1.ProfilesResponse{Profiles: make([]v1.Profile, len(profiles))}
	for i, p := range profiles {
		resp.Profiles[i] = optimizer.ProfileAPI(p)
	}
	return c.JSON(http.StatusOK, resp)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	return c.Validate(req)
}

// engineError maps engine failures to HTTP errors. Messages of internal
// failures are not exposed.
func engineError(err error) error {
	status := http.StatusInternalServerError
	msg := http.StatusText(status)

	switch {
	case errors.Is(err, optimizer.ErrEmptyChunkID),
		errors.Is(err, optimizer.ErrContentTooLarge),
		errors.Is(err, optimizer.ErrInvalidMetadata):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusServiceUnavailable, v1.ErrTimeout.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, optimizer.ErrCancelled):
		status, msg = http.StatusServiceUnavailable, v1.ErrUnavailable.Error()
	}

	return echo.NewHTTPError(status, msg).SetInternal(err)
}
