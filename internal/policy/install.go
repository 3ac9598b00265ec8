package policy

import (
	"context"
	"fmt"
	"log/slog"
)

// Engine is the part of the control API that manages scan policies.
type Engine interface {
	AddScanPolicy(ctx context.Context, name, threshold, strength string) error
	RemoveScanPolicy(ctx context.Context, name string) error
	DisableAllScanners(ctx context.Context, policyName string) error
	EnableScanners(ctx context.Context, policyName string, ids []int) error
	DisableScanners(ctx context.Context, policyName string, ids []int) error
}

// Installation is a policy registered with the engine.
type Installation struct {
	Name   string
	engine Engine
	active bool
}

// Install locks p and registers it with the engine. If any step after the
// policy is created fails, the policy is removed again before returning.
func Install(ctx context.Context, engine Engine, p *ScanPolicy, logger *slog.Logger) (*Installation, error) {
	p.Lock()
	if err := engine.AddScanPolicy(ctx, p.Name, string(p.Threshold), string(p.Strength)); err != nil {
		return nil, fmt.Errorf("adding policy %q: %w", p.Name, err)
	}
	inst := &Installation{Name: p.Name, engine: engine, active: true}

	if err := inst.configure(ctx, p); err != nil {
		if rerr := inst.Release(ctx); rerr != nil {
			logger.Warn("removing partially installed policy failed", "policy", p.Name, "error", rerr)
		}
		return nil, err
	}
	logger.Info("scan policy installed", "policy", p.Name,
		"enabled", len(p.enabled), "disabled", len(p.disabled),
		"strength", p.Strength, "threshold", p.Threshold)
	return inst, nil
}

func (i *Installation) configure(ctx context.Context, p *ScanPolicy) error {
	if enabled := p.EnabledRules(); len(enabled) > 0 {
		if err := i.engine.DisableAllScanners(ctx, p.Name); err != nil {
			return fmt.Errorf("resetting rules of %q: %w", p.Name, err)
		}
		if err := i.engine.EnableScanners(ctx, p.Name, enabled); err != nil {
			return fmt.Errorf("enabling rules of %q: %w", p.Name, err)
		}
	}
	if disabled := p.DisabledRules(); len(disabled) > 0 {
		if err := i.engine.DisableScanners(ctx, p.Name, disabled); err != nil {
			return fmt.Errorf("disabling rules of %q: %w", p.Name, err)
		}
	}
	return nil
}

// Release removes the policy from the engine. Calling it again, or on a
// nil Installation, does nothing.
func (i *Installation) Release(ctx context.Context) error {
	if i == nil || !i.active {
		return nil
	}
	i.active = false
	if err := i.engine.RemoveScanPolicy(ctx, i.Name); err != nil {
		return fmt.Errorf("removing policy %q: %w", i.Name, err)
	}
	return nil
}
