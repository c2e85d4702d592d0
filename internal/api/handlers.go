package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/adpilot/internal/domain"
	"github.com/ignite/adpilot/internal/pipeline"
	"github.com/ignite/adpilot/internal/pkg/httputil"
)

// Handlers holds the dependencies for all API endpoints.
type Handlers struct {
	orchestrator *pipeline.Orchestrator
}

// NewHandlers creates the handler set.
func NewHandlers(orchestrator *pipeline.Orchestrator) *Handlers {
	return &Handlers{orchestrator: orchestrator}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// runRequest is the body of POST /api/v1/pipeline/run.
type runRequest struct {
	OrganizationID string `json:"organization_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}

// RunPipeline executes the full attribution → risk → recommendation chain
// and returns the combined result.
func (h *Handlers) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	window, ok := parseWindow(w, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	result, err := h.orchestrator.Run(r.Context(), req.OrganizationID, window)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	httputil.OK(w, result)
}

// Attribution returns only the truth-layer view of a run.
func (h *Handlers) Attribution(w http.ResponseWriter, r *http.Request) {
	h.layer(w, r, func(res *domain.PipelineResult) any { return res.Attribution })
}

// Risk returns only the prediction-layer view of a run.
func (h *Handlers) Risk(w http.ResponseWriter, r *http.Request) {
	h.layer(w, r, func(res *domain.PipelineResult) any { return res.Risk })
}

// Recommendations returns only the decision-layer view of a run.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	h.layer(w, r, func(res *domain.PipelineResult) any { return res.Recommendations })
}

// layer runs (or serves from cache) the full pipeline and projects one layer
// of the result. Single-layer views still execute the whole chain: partial
// pipelines are never computed.
func (h *Handlers) layer(w http.ResponseWriter, r *http.Request, project func(*domain.PipelineResult) any) {
	orgID := chi.URLParam(r, "orgID")
	q := r.URL.Query()

	window, ok := parseWindow(w, q.Get("start"), q.Get("end"))
	if !ok {
		return
	}

	result, err := h.orchestrator.Run(r.Context(), orgID, window)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	httputil.OK(w, project(result))
}

func parseWindow(w http.ResponseWriter, start, end string) (domain.DateRange, bool) {
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		httputil.BadRequest(w, "start date must be YYYY-MM-DD")
		return domain.DateRange{}, false
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		httputil.BadRequest(w, "end date must be YYYY-MM-DD")
		return domain.DateRange{}, false
	}

	window := domain.DateRange{Start: startDate, End: endDate}
	if err := window.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return domain.DateRange{}, false
	}
	return window, true
}

// writePipelineError maps the pipeline error taxonomy onto HTTP statuses:
// validation → 400, insufficient data → 422, stage timeout → 504 retriable.
func writePipelineError(w http.ResponseWriter, err error) {
	var insufficient *pipeline.InsufficientDataError
	var timeout *pipeline.StageTimeoutError

	switch {
	case errors.Is(err, pipeline.ErrMissingOrganization):
		httputil.BadRequest(w, err.Error())
	case errors.As(err, &insufficient):
		httputil.UnprocessableEntity(w, insufficient.Error())
	case errors.As(err, &timeout):
		httputil.GatewayTimeout(w, timeout.Error())
	default:
		httputil.InternalError(w, err)
	}
}
