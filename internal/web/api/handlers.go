// Package api implements the JSON endpoints of the scan server.
package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/buemura/zapscan/internal/output"
	"github.com/buemura/zapscan/internal/policy"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/internal/web/jobs"
	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/go-chi/chi/v5"
)

// Handlers holds dependencies for the REST API handlers.
type Handlers struct {
	Manager  *jobs.Manager
	Policies *policy.Manager
	// Defaults are applied before the per-request options.
	Defaults []scanner.ScanOption
}

// NewHandlers creates API handlers with the given dependencies.
func NewHandlers(manager *jobs.Manager, policies *policy.Manager, defaults ...scanner.ScanOption) *Handlers {
	return &Handlers{Manager: manager, Policies: policies, Defaults: defaults}
}

// CreateScan handles POST /api/v1/scans.
func (h *Handlers) CreateScan(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateScanRequest(r)
	if err != nil {
		writeConfigError(w, err)
		return
	}

	reqOpts, err := req.options(h.Policies)
	if err != nil {
		writeConfigError(w, err)
		return
	}
	opts := append(append([]scanner.ScanOption(nil), h.Defaults...), reqOpts...)
	cfg, err := scanner.NewScanConfig(req.Target, opts...)
	if err != nil {
		writeConfigError(w, err)
		return
	}

	job := h.Manager.Create(cfg)
	if err := h.Manager.Start(job.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start scan: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     job.ID,
		"status": job.Status,
	})
}

// ListScans handles GET /api/v1/scans.
func (h *Handlers) ListScans(w http.ResponseWriter, r *http.Request) {
	jobList := h.Manager.List()

	type scanSummary struct {
		ID         string         `json:"id"`
		Target     string         `json:"target"`
		Status     jobs.JobStatus `json:"status"`
		State      string         `json:"state"`
		CreatedAt  time.Time      `json:"created_at"`
		AlertCount int            `json:"alert_count"`
	}

	summaries := make([]scanSummary, len(jobList))
	for i, j := range jobList {
		summaries[i] = scanSummary{
			ID:         j.ID,
			Target:     j.Target,
			Status:     j.Status,
			State:      j.State,
			CreatedAt:  j.CreatedAt,
			AlertCount: j.AlertCount(),
		}
	}

	writeJSON(w, http.StatusOK, summaries)
}

// GetScan handles GET /api/v1/scans/{id}.
func (h *Handlers) GetScan(w http.ResponseWriter, r *http.Request) {
	job, ok := h.job(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetRemediation handles GET /api/v1/scans/{id}/remediation.
func (h *Handlers) GetRemediation(w http.ResponseWriter, r *http.Request) {
	job, ok := h.completedJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job.Suggestions)
}

// GetScanReport handles GET /api/v1/scans/{id}/report?format=html.
func (h *Handlers) GetScanReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	formatter, err := output.GetFormatter(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, ok := h.completedJob(w, r)
	if !ok {
		return
	}

	report := output.Report{Result: job.Result, Suggestions: job.Suggestions, GeneratedAt: time.Now().UTC()}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render report: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", output.ContentType(format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// DeleteScan handles DELETE /api/v1/scans/{id}. A running scan is
// cancelled and unwinds in the background.
func (h *Handlers) DeleteScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Manager.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPolicies handles GET /api/v1/policies.
func (h *Handlers) ListPolicies(w http.ResponseWriter, r *http.Request) {
	type policySummary struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Strength    string `json:"strength"`
		Threshold   string `json:"threshold"`
		Rules       []int  `json:"rules"`
	}

	names := h.Policies.Names()
	out := make([]policySummary, 0, len(names))
	for _, name := range names {
		p, err := h.Policies.Get(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out = append(out, policySummary{
			Name:        p.Name,
			Description: p.Description,
			Strength:    string(p.Strength),
			Threshold:   string(p.Threshold),
			Rules:       p.EnabledRules(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) job(w http.ResponseWriter, r *http.Request) (jobs.Job, bool) {
	job, err := h.Manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return jobs.Job{}, false
	}
	return job, true
}

func (h *Handlers) completedJob(w http.ResponseWriter, r *http.Request) (jobs.Job, bool) {
	job, ok := h.job(w, r)
	if !ok {
		return job, false
	}
	if job.Status != jobs.StatusCompleted {
		writeError(w, http.StatusConflict, "scan is not completed (status "+string(job.Status)+")")
		return job, false
	}
	return job, true
}

func writeConfigError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest}
	var cfgErr *scanerr.ConfigurationError
	if errors.As(err, &cfgErr) {
		resp.Kind = scanerr.Kind(err)
	}
	writeJSON(w, http.StatusBadRequest, resp)
}
