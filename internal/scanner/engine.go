package scanner

import (
	"context"
	"time"

	"github.com/buemura/zapscan/internal/auth"
	"github.com/buemura/zapscan/internal/policy"
	"github.com/buemura/zapscan/internal/zap"
	"github.com/buemura/zapscan/pkg/types"
)

// Engine is the control API surface a scan drives. *zap.Client implements it.
type Engine interface {
	auth.Engine
	policy.Engine

	RemoveContext(ctx context.Context, name string) error
	IncludeInContext(ctx context.Context, contextName, regex string) error
	ExcludeFromContext(ctx context.Context, contextName, regex string) error

	SetSpiderOptions(ctx context.Context, maxDepth, maxDurationMinutes, threads int) error
	SpiderScan(ctx context.Context, r zap.SpiderRequest) (string, error)
	SpiderStatus(ctx context.Context, scanID string) (int, error)
	SpiderStop(ctx context.Context, scanID string) error

	PassiveRecordsToScan(ctx context.Context) (int, error)
	PassiveClearQueue(ctx context.Context) error

	SetActiveScanThreads(ctx context.Context, threads int) error
	ActiveScan(ctx context.Context, r zap.ActiveScanRequest) (string, error)
	ActiveScanStatus(ctx context.Context, scanID string) (int, error)
	ActiveScanStop(ctx context.Context, scanID string) error

	Alerts(ctx context.Context, baseURL string, start, count int) ([]types.Alert, error)
}

var _ Engine = (*zap.Client)(nil)

// Recorder receives scan measurements. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	ObservePhase(phase string, d time.Duration, err error)
	ObserveScan(d time.Duration, err error)
	ObserveAlert(severity types.Severity)
	ObserveCleanupFailure(resource string)
}

type nopRecorder struct{}

func (nopRecorder) ObservePhase(string, time.Duration, error) {}
func (nopRecorder) ObserveScan(time.Duration, error)          {}
func (nopRecorder) ObserveAlert(types.Severity)               {}
func (nopRecorder) ObserveCleanupFailure(string)              {}
