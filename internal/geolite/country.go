// Package geolite tags source addresses with a country from a MaxMind
// GeoLite2 database.
package geolite

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
)

// Locator resolves IP addresses to ISO country codes. The zero value and a
// nil *Locator answer "" for every address.
type Locator struct {
	mu     sync.RWMutex
	path   string
	reader *geoip2.Reader
}

// Open loads the country database at path.
func Open(path string) (*Locator, error) {
	l := &Locator{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// OpenOptional returns nil when path is empty or unreadable, logging the reason.
func OpenOptional(path string) *Locator {
	if path == "" {
		return nil
	}
	l, err := Open(path)
	if err != nil {
		log.Warn("GeoLite country database unavailable, audit entries will not be tagged", "path", path, "error", err)
		return nil
	}
	log.Info("GeoLite country database loaded", "path", path)
	return l
}

// Reload re-reads the database file, swapping readers atomically.
func (l *Locator) Reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("geolite: read %s: %w", l.path, err)
	}
	reader, err := geoip2.FromBytes(data)
	if err != nil {
		return fmt.Errorf("geolite: parse %s: %w", l.path, err)
	}

	l.mu.Lock()
	old := l.reader
	l.reader = reader
	l.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (l *Locator) Country(ip string) string {
	if l == nil {
		return ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() {
		return ""
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.reader == nil {
		return ""
	}

	record, err := l.reader.Country(parsed)
	if err != nil {
		log.Debug("GeoLite lookup failed", "ip", ip, "error", err)
		return ""
	}
	return record.Country.IsoCode
}

func (l *Locator) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reader == nil {
		return nil
	}
	err := l.reader.Close()
	l.reader = nil
	return err
}
