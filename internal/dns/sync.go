// Package dns keeps the A records of the deployment's domains pointed at the
// current WAN address.
package dns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

const DefaultTTL = 300

// Action is what happened to a single domain during a sync.
type Action string

const (
	ActionUnchanged Action = "unchanged"
	ActionUpdated   Action = "updated"
	ActionCreated   Action = "created"
	ActionFailed    Action = "failed"
)

// Provider is the subset of the DNS API the synchronizer needs.
type Provider interface {
	ZoneID(ctx context.Context, name string) (string, error)
	ARecords(ctx context.Context, zoneID, name string) ([]Record, error)
	UpdateRecord(ctx context.Context, zoneID, recordID string, record Record) error
	CreateRecord(ctx context.Context, zoneID string, record Record) error
}

// DomainResult is the outcome for one domain.
type DomainResult struct {
	Domain string
	Action Action
	Err    error
}

// Report aggregates the per-domain results of one sync.
type Report struct {
	Skipped bool
	Results []DomainResult
}

// OK reports whether every domain was synchronized.
func (r Report) OK() bool {
	return r.Err() == nil
}

// Err joins the errors of the failed domains, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Domain, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Count returns how many domains ended with action.
func (r Report) Count(action Action) int {
	n := 0
	for _, res := range r.Results {
		if res.Action == action {
			n++
		}
	}
	return n
}

// Synchronizer points each configured domain at a new address.
type Synchronizer struct {
	provider Provider
	domains  []string
	ttl      int
}

// NewSynchronizer returns a synchronizer for domains. A nil provider disables
// the synchronizer, every sync reports Skipped.
func NewSynchronizer(provider Provider, domains []string, ttl int) *Synchronizer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Synchronizer{provider: provider, domains: domains, ttl: ttl}
}

// Sync handles every domain independently; a failure never stops the others.
func (s *Synchronizer) Sync(ctx context.Context, ip string) Report {
	if s.provider == nil || len(s.domains) == 0 {
		log.Debug("dns provider not configured, skipping record sync")
		return Report{Skipped: true}
	}

	report := Report{}
	for _, domain := range s.domains {
		domain = strings.TrimSpace(domain)
		if domain == "" {
			continue
		}

		action, err := s.syncDomain(ctx, domain, ip)
		if err != nil {
			log.Error("dns record sync failed", "domain", domain, "error", err)
			report.Results = append(report.Results, DomainResult{Domain: domain, Action: ActionFailed, Err: err})
			continue
		}

		switch action {
		case ActionUnchanged:
			log.Debug("dns record already current", "domain", domain)
		default:
			log.Info("dns record synced", "domain", domain, "action", action, "ip", ip)
		}
		report.Results = append(report.Results, DomainResult{Domain: domain, Action: action})
	}
	return report
}

func (s *Synchronizer) syncDomain(ctx context.Context, domain, ip string) (Action, error) {
	zoneID, err := s.provider.ZoneID(ctx, ZoneName(domain))
	if err != nil {
		return ActionFailed, err
	}

	records, err := s.provider.ARecords(ctx, zoneID, domain)
	if err != nil {
		return ActionFailed, err
	}

	desired := Record{Type: "A", Name: domain, Content: ip, TTL: s.ttl}

	if len(records) == 0 {
		if err := s.provider.CreateRecord(ctx, zoneID, desired); err != nil {
			return ActionFailed, err
		}
		return ActionCreated, nil
	}

	existing := records[0]
	if existing.Content == ip {
		return ActionUnchanged, nil
	}
	if err := s.provider.UpdateRecord(ctx, zoneID, existing.ID, desired); err != nil {
		return ActionFailed, err
	}
	return ActionUpdated, nil
}

// ZoneName returns the registrable zone of domain, taken as its last two labels.
func ZoneName(domain string) string {
	labels := strings.Split(strings.Trim(domain, "."), ".")
	if len(labels) <= 2 {
		return strings.Join(labels, ".")
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
