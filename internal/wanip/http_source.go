package wanip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	lookupTimeout   = 10 * time.Second
	maxLookupBody   = 1 << 10
	httpSourceLabel = "public-services"
)

// DefaultLookupServices are queried in order; the first valid answer wins.
var DefaultLookupServices = []string{
	"https://ipv4.icanhazip.com",
	"https://api.ipify.org",
	"https://checkip.amazonaws.com",
	"https://ifconfig.me/ip",
}

// HTTPSource asks plain-text lookup endpoints for the caller's address.
type HTTPSource struct {
	urls   []string
	client *http.Client
}

func NewHTTPSource(urls []string, client *http.Client) *HTTPSource {
	if len(urls) == 0 {
		urls = DefaultLookupServices
	}
	if client == nil {
		client = &http.Client{Timeout: lookupTimeout}
	}
	return &HTTPSource{urls: urls, client: client}
}

func (s *HTTPSource) Name() string { return httpSourceLabel }

func (s *HTTPSource) Lookup(ctx context.Context) (string, error) {
	var errs []error
	for _, url := range s.urls {
		ip, err := s.fetch(ctx, url)
		if err != nil {
			log.Debug("lookup service failed", "url", url, "error", err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if !IsPublicIPv4(ip) {
			log.Debug("lookup service returned invalid address", "url", url, "body", ip)
			errs = append(errs, fmt.Errorf("%s: invalid address %q", url, ip))
			continue
		}

		log.Debug("lookup service answered", "url", url, "ip", ip)
		return ip, nil
	}
	return "", errors.Join(errs...)
}

func (s *HTTPSource) fetch(ctx context.Context, url string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: http status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLookupBody))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
