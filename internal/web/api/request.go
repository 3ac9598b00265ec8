package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/buemura/zapscan/internal/auth"
	"github.com/buemura/zapscan/internal/policy"
	"github.com/buemura/zapscan/internal/scanner"
)

// CreateScanRequest is the JSON body for POST /api/v1/scans. Unset fields
// keep the server's configured defaults.
type CreateScanRequest struct {
	Target          string       `json:"target"`
	ContextName     string       `json:"context_name,omitempty"`
	ResetContext    bool         `json:"reset_context,omitempty"`
	Auth            *auth.Config `json:"auth,omitempty"`
	Policy          string       `json:"policy,omitempty"`
	Include         []string     `json:"include,omitempty"`
	Exclude         []string     `json:"exclude,omitempty"`
	SpiderDepth     *int         `json:"spider_depth,omitempty"`
	SpiderDuration  string       `json:"spider_duration,omitempty"`
	PassiveDuration string       `json:"passive_duration,omitempty"`
	ActiveDuration  string       `json:"active_duration,omitempty"`
	Active          *bool        `json:"active,omitempty"`
	Threads         *int         `json:"threads,omitempty"`
}

// decodeCreateScanRequest reads and validates the request body.
func decodeCreateScanRequest(r *http.Request) (*CreateScanRequest, error) {
	var req CreateScanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if req.Target == "" {
		return nil, fmt.Errorf("target is required")
	}
	if req.Auth != nil {
		t, err := auth.ParseType(string(req.Auth.Type))
		if err != nil {
			return nil, err
		}
		req.Auth.Type = t
	}
	return &req, nil
}

// options converts the request into scan options applied after the
// server defaults.
func (req *CreateScanRequest) options(policies *policy.Manager) ([]scanner.ScanOption, error) {
	var opts []scanner.ScanOption
	if req.ContextName != "" {
		opts = append(opts, scanner.WithContextName(req.ContextName))
	}
	if req.ResetContext {
		opts = append(opts, scanner.WithResetContext(true))
	}
	if req.Auth != nil {
		opts = append(opts, scanner.WithAuth(*req.Auth))
	}
	if req.Policy != "" {
		p, err := policies.Get(req.Policy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scanner.WithPolicy(p))
	}
	if len(req.Include) > 0 {
		opts = append(opts, scanner.WithIncludePatterns(req.Include...))
	}
	if len(req.Exclude) > 0 {
		opts = append(opts, scanner.WithExcludePatterns(req.Exclude...))
	}
	if req.SpiderDepth != nil {
		opts = append(opts, scanner.WithSpiderDepth(*req.SpiderDepth))
	}
	if req.Threads != nil {
		opts = append(opts, scanner.WithThreads(*req.Threads))
	}
	if req.Active != nil {
		opts = append(opts, scanner.WithActiveScan(*req.Active))
	}

	durations := []struct {
		name  string
		raw   string
		apply func(time.Duration) scanner.ScanOption
	}{
		{"spider_duration", req.SpiderDuration, scanner.WithSpiderDuration},
		{"passive_duration", req.PassiveDuration, scanner.WithPassiveDuration},
		{"active_duration", req.ActiveDuration, scanner.WithActiveDuration},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		opts = append(opts, d.apply(v))
	}
	return opts, nil
}
