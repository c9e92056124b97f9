package reconciler

import (
	"time"

	"github.com/charmbracelet/log"

	"essops/internal/dns"
	"essops/internal/relayconfig"
)

// Kind classifies a finished cycle.
type Kind string

const (
	KindUnchanged Kind = "unchanged"
	KindUpdated   Kind = "updated"
	KindFailed    Kind = "failed"
)

// Stage names a step of the propagation pipeline.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageConfig    Stage = "config"
	StageDNS       Stage = "dns"
	StageRestart   Stage = "restart"
	StageReadiness Stage = "readiness"
)

// Outcome is the aggregated result of one cycle. Err is set only for a
// Failed cycle. DNS and readiness problems never fail the cycle; they are
// reported in their own fields and Stage names the first one that went wrong.
type Outcome struct {
	Kind     Kind
	Stage    Stage
	Err      error
	Previous string
	Address  string
	Config   relayconfig.Result
	DNS      dns.Report
	Ready    bool
	ReadyErr error
	Waited   time.Duration
	Duration time.Duration
}

// Degraded reports an Updated cycle whose DNS sync or readiness poll failed.
func (o Outcome) Degraded() bool {
	return o.Kind == KindUpdated && (!o.DNS.OK() || !o.Ready)
}

// Log writes the outcome as a single structured line.
func (o Outcome) Log() {
	switch o.Kind {
	case KindUnchanged:
		log.Debug("WAN address unchanged", "address", o.Address)
	case KindFailed:
		log.Error("Reconciliation cycle failed", "stage", o.Stage, "previous", o.Previous, "address", o.Address, "error", o.Err)
	case KindUpdated:
		fields := []interface{}{
			"previous", o.Previous,
			"address", o.Address,
			"config_changed", o.Config.Changed,
			"backup", o.Config.BackupPath,
			"dns_skipped", o.DNS.Skipped,
			"dns_updated", o.DNS.Count(dns.ActionUpdated),
			"dns_created", o.DNS.Count(dns.ActionCreated),
			"dns_failed", o.DNS.Count(dns.ActionFailed),
			"ready", o.Ready,
			"waited", o.Waited.Round(time.Millisecond),
			"took", o.Duration.Round(time.Millisecond),
		}
		if err := o.DNS.Err(); err != nil {
			fields = append(fields, "dns_error", err)
		}
		if o.ReadyErr != nil {
			fields = append(fields, "ready_error", o.ReadyErr)
		}
		if o.Degraded() {
			fields = append(fields, "stage", o.Stage)
			log.Warn("WAN address propagated with errors", fields...)
			return
		}
		log.Info("WAN address propagated", fields...)
	}
}
