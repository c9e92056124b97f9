package wanip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pion/stun/v3"
)

const stunTimeout = 5 * time.Second

// STUNSource reads the mapped address from a STUN binding response. It is
// used after the HTTP services when the host can reach a STUN server but not
// the plain-text lookup endpoints.
type STUNSource struct {
	servers []string
	timeout time.Duration
}

func NewSTUNSource(servers []string) *STUNSource {
	return &STUNSource{servers: servers, timeout: stunTimeout}
}

func (s *STUNSource) Name() string { return "stun" }

func (s *STUNSource) Lookup(ctx context.Context) (string, error) {
	if len(s.servers) == 0 {
		return "", ErrUnavailable
	}

	var errs []error
	for _, server := range s.servers {
		ip, err := probeSTUN(ctx, server, s.timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", server, err))
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if IsPublicIPv4(ip) {
			return ip, nil
		}
		errs = append(errs, fmt.Errorf("%s: non-public mapped address %q", server, ip))
	}
	return "", errors.Join(errs...)
}

func probeSTUN(ctx context.Context, server string, timeout time.Duration) (string, error) {
	uriStr := strings.TrimSpace(server)
	if !strings.HasPrefix(uriStr, "stun:") {
		uriStr = "stun:" + uriStr
	}

	uri, err := stun.ParseURI(uriStr)
	if err != nil {
		return "", err
	}

	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", err
	}
	defer client.Close()

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	result := make(chan net.IP, 1)
	fail := make(chan error, 1)

	go func() {
		var addr stun.XORMappedAddress
		err := client.Do(msg, func(res stun.Event) {
			if res.Error != nil {
				fail <- res.Error
				return
			}
			if err := addr.GetFrom(res.Message); err != nil {
				fail <- err
				return
			}
			result <- addr.IP
		})
		if err != nil {
			fail <- err
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case ip := <-result:
		return ip.String(), nil
	case err := <-fail:
		return "", err
	case <-probeCtx.Done():
		return "", probeCtx.Err()
	}
}
