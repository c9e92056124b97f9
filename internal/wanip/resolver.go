// Package wanip determines the externally visible IPv4 address of the host.
package wanip

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

var (
	// ErrUnavailable is returned by a source that cannot answer at all.
	ErrUnavailable = errors.New("wanip: source unavailable")
	// ErrUnresolved is returned by Resolver when every source failed.
	ErrUnresolved = errors.New("wanip: address could not be resolved")
)

// Source yields a candidate public IPv4 address.
type Source interface {
	Name() string
	Lookup(ctx context.Context) (string, error)
}

// Resolver consults its sources in order and returns the first public IPv4.
type Resolver struct {
	sources []Source
}

func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// Sources returns the source names in lookup order.
func (r *Resolver) Sources() []string {
	names := make([]string, 0, len(r.sources))
	for _, source := range r.sources {
		names = append(names, source.Name())
	}
	return names
}

func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	var errs []error
	for _, source := range r.sources {
		ip, err := source.Lookup(ctx)
		if err != nil {
			if !errors.Is(err, ErrUnavailable) {
				log.Debug("address source failed", "source", source.Name(), "error", err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
			continue
		}
		if !IsPublicIPv4(ip) {
			log.Debug("address source returned non-public address", "source", source.Name(), "ip", ip)
			errs = append(errs, fmt.Errorf("%s: non-public address %q", source.Name(), ip))
			continue
		}

		log.Debug("resolved WAN IP", "source", source.Name(), "ip", ip)
		return ip, nil
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if len(errs) == 0 {
		return "", ErrUnresolved
	}
	return "", fmt.Errorf("%w: %w", ErrUnresolved, errors.Join(errs...))
}
