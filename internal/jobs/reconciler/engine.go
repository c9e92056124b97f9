// Package reconciler keeps the media relay, DNS and running service in step
// with the host's WAN address.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"essops/internal/dns"
	"essops/internal/orchestration"
	"essops/internal/relayconfig"
)

const (
	DefaultReadyTimeout  = 60 * time.Second
	DefaultReadyInterval = time.Second
)

// State is the reconciler memory carried between cycles.
type State struct {
	Observed  string
	LastCheck time.Time
}

type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

type ConfigWriter interface {
	SetNodeIP(path, ip string) (relayconfig.Result, error)
}

type RecordSyncer interface {
	Sync(ctx context.Context, ip string) dns.Report
}

// ServiceRestarter is the part of orchestration.Controller the engine uses.
type ServiceRestarter interface {
	Restart(ctx context.Context, service string) error
	Probe(ctx context.Context) error
}

// Engine runs reconciliation cycles. All fields except DNS are required.
type Engine struct {
	Resolver   AddressResolver
	Config     ConfigWriter
	ConfigPath string
	DNS        RecordSyncer
	Services   ServiceRestarter
	Service    string

	ReadyTimeout  time.Duration
	ReadyInterval time.Duration

	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// RunCycle performs one resolve, compare and propagate pass. state is only
// committed once the config rewrite and the restart succeeded.
func (e *Engine) RunCycle(ctx context.Context, state *State) Outcome {
	start := e.now()
	out := Outcome{Previous: state.Observed}
	finish := func() Outcome {
		out.Duration = e.now().Sub(start)
		return out
	}

	address, err := e.Resolver.Resolve(ctx)
	if err != nil {
		out.Kind, out.Stage, out.Err = KindFailed, StageResolve, err
		return finish()
	}
	out.Address = address

	if address == state.Observed {
		state.LastCheck = e.now()
		out.Kind = KindUnchanged
		return finish()
	}

	out.Config, err = e.Config.SetNodeIP(e.ConfigPath, address)
	if err != nil {
		out.Kind, out.Stage, out.Err = KindFailed, StageConfig, err
		return finish()
	}

	if e.DNS != nil {
		out.DNS = e.DNS.Sync(ctx, address)
	} else {
		out.DNS = dns.Report{Skipped: true}
	}

	if err := e.Services.Restart(ctx, e.Service); err != nil {
		out.Kind, out.Stage, out.Err = KindFailed, StageRestart, err
		return finish()
	}

	timeout := e.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	interval := e.ReadyInterval
	if interval <= 0 {
		interval = DefaultReadyInterval
	}
	out.Waited, out.ReadyErr = orchestration.WaitReady(ctx, e.Services.Probe, timeout, interval)
	out.Ready = out.ReadyErr == nil

	switch {
	case !out.DNS.OK():
		out.Stage = StageDNS
	case !out.Ready:
		out.Stage = StageReadiness
	}

	// Committed even when DNS or readiness failed; the config already carries
	// the new address and the next cycle compares against it.
	state.Observed = address
	state.LastCheck = e.now()
	out.Kind = KindUpdated
	return finish()
}

func (e *Engine) validate() error {
	switch {
	case e.Resolver == nil:
		return fmt.Errorf("reconciler: resolver is required")
	case e.Config == nil || e.ConfigPath == "":
		return fmt.Errorf("reconciler: relay config writer and path are required")
	case e.Services == nil || e.Service == "":
		return fmt.Errorf("reconciler: service controller and name are required")
	}
	return nil
}
