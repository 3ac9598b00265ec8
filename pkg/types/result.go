package types

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ScanResult accumulates the alerts of one scan. The per-severity counters
// are derived state: they only change through AddAlert, which updates the
// list and the counter under the same lock.
type ScanResult struct {
	mu        sync.RWMutex
	targetURL string
	startedAt time.Time
	duration  time.Duration
	counts    map[Severity]int
	alerts    []Alert
}

// NewScanResult creates an empty result for target started at startedAt.
func NewScanResult(targetURL string, startedAt time.Time) *ScanResult {
	return &ScanResult{
		targetURL: targetURL,
		startedAt: startedAt,
		counts:    make(map[Severity]int),
	}
}

// AddAlert appends a copy of alert and bumps its severity counter.
func (r *ScanResult) AddAlert(alert Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[Severity]int)
	}
	r.alerts = append(r.alerts, alert.clone())
	r.counts[alert.Severity]++
}

// SetDuration records the wall-clock duration of the scan.
func (r *ScanResult) SetDuration(d time.Duration) {
	r.mu.Lock()
	r.duration = d
	r.mu.Unlock()
}

func (r *ScanResult) TargetURL() string { return r.targetURL }

func (r *ScanResult) StartedAt() time.Time { return r.startedAt }

func (r *ScanResult) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.duration
}

// Alerts returns a copy of the alerts in insertion order.
func (r *ScanResult) Alerts() []Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Alert, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = a.clone()
	}
	return out
}

// Count returns the number of alerts with severity s.
func (r *ScanResult) Count(s Severity) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[s]
}

// Counts returns a copy of the per-severity counters.
func (r *ScanResult) Counts() map[Severity]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Severity]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// TotalAlerts returns the number of alerts recorded.
func (r *ScanResult) TotalAlerts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alerts)
}

type scanResultJSON struct {
	TargetURL   string           `json:"target_url"`
	StartedAt   time.Time        `json:"started_at"`
	DurationMS  int64            `json:"duration_ms"`
	Counts      map[Severity]int `json:"counts"`
	TotalAlerts int              `json:"total_alerts"`
	Alerts      []Alert          `json:"alerts"`
}

func (r *ScanResult) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		counts[s] = r.counts[s]
	}
	alerts := r.alerts
	if alerts == nil {
		alerts = []Alert{}
	}
	return json.Marshal(scanResultJSON{
		TargetURL:   r.targetURL,
		StartedAt:   r.startedAt,
		DurationMS:  r.duration.Milliseconds(),
		Counts:      counts,
		TotalAlerts: len(r.alerts),
		Alerts:      alerts,
	})
}

// UnmarshalJSON rebuilds the result through AddAlert; serialized counters
// are ignored and recomputed from the alert list.
func (r *ScanResult) UnmarshalJSON(data []byte) error {
	var raw scanResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding scan result: %w", err)
	}
	fresh := NewScanResult(raw.TargetURL, raw.StartedAt)
	fresh.duration = time.Duration(raw.DurationMS) * time.Millisecond
	for _, a := range raw.Alerts {
		fresh.AddAlert(a)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.targetURL = fresh.targetURL
	r.startedAt = fresh.startedAt
	r.duration = fresh.duration
	r.counts = fresh.counts
	r.alerts = fresh.alerts
	return nil
}
