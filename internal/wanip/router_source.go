package wanip

import (
	"context"

	"github.com/charmbracelet/log"
)

// RouterSource queries the edge router for its WAN address.
//
// The router API is not implemented yet; Lookup always reports
// ErrUnavailable so the resolver falls through to the public services. Only
// add it to a resolver when all credentials are set.
type RouterSource struct {
	Address  string
	Username string
	Password string
}

func (s RouterSource) Name() string { return "router" }

func (s RouterSource) Lookup(_ context.Context) (string, error) {
	log.Debug("router API lookup not implemented, using public services", "router", s.Address)
	return "", ErrUnavailable
}
