// Package orchestration drives the container stack through the compose CLI.
package orchestration

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"essops/internal/execx"
)

const (
	listTimeout    = 30 * time.Second
	restartTimeout = 60 * time.Second
	probeTimeout   = 5 * time.Second
	unknownHealth  = "N/A"
)

// ServiceStatus is one row of the compose service listing.
type ServiceStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Health string `json:"health"`
}

// Controller lists, restarts and probes services of the managed stack.
type Controller interface {
	ListServices(ctx context.Context) ([]ServiceStatus, error)
	Restart(ctx context.Context, service string) error
	Probe(ctx context.Context) error
}

// ComposeOptions configures a ComposeController.
type ComposeOptions struct {
	Binary      string
	ComposeFile string
	// Container and HealthURL select the readiness probe target; Probe fails
	// when either is empty.
	Container string
	HealthURL string
}

// ComposeController shells out to docker-compose and docker.
type ComposeController struct {
	runner execx.Runner
	opts   ComposeOptions
}

func NewComposeController(runner execx.Runner, opts ComposeOptions) *ComposeController {
	if opts.Binary == "" {
		opts.Binary = "docker-compose"
	}
	return &ComposeController{runner: runner, opts: opts}
}

func (c *ComposeController) composeArgs(args ...string) (string, []string) {
	name := c.opts.Binary
	var prefix []string
	// "docker compose" is a plugin invocation, split it into binary and subcommand.
	if fields := strings.Fields(name); len(fields) > 1 {
		name = fields[0]
		prefix = append(prefix, fields[1:]...)
	}
	prefix = append(prefix, "-f", c.opts.ComposeFile)
	return name, append(prefix, args...)
}

func (c *ComposeController) ListServices(ctx context.Context) ([]ServiceStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	name, args := c.composeArgs("ps", "--format", "json")
	out, err := c.runner.Output(ctx, name, args...)
	if err != nil {
		return nil, fmt.Errorf("orchestration: list services: %w", err)
	}
	return ParseServiceList(out)
}

func (c *ComposeController) Restart(ctx context.Context, service string) error {
	if strings.TrimSpace(service) == "" {
		return errors.New("orchestration: service name is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, restartTimeout)
	defer cancel()

	name, args := c.composeArgs("restart", service)
	if err := c.runner.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("orchestration: restart %s: %w", service, err)
	}
	log.Info("service restarted", "service", service)
	return nil
}

func (c *ComposeController) Probe(ctx context.Context) error {
	if c.opts.Container == "" || c.opts.HealthURL == "" {
		return errors.New("orchestration: probe target not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	return c.runner.Run(ctx, "docker", "exec", c.opts.Container, "wget", "-q", "--spider", c.opts.HealthURL)
}

type composeRow struct {
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
}

// ParseServiceList accepts both output styles of `compose ps --format json`:
// one object per line, or a single JSON array.
func ParseServiceList(out string) ([]ServiceStatus, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return []ServiceStatus{}, nil
	}

	var rows []composeRow
	if strings.HasPrefix(out, "[") {
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			return nil, fmt.Errorf("orchestration: parse service list: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(strings.NewReader(out))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var row composeRow
			if err := json.Unmarshal([]byte(line), &row); err != nil {
				return nil, fmt.Errorf("orchestration: parse service line: %w", err)
			}
			rows = append(rows, row)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("orchestration: read service list: %w", err)
		}
	}

	services := make([]ServiceStatus, 0, len(rows))
	for _, row := range rows {
		health := row.Health
		if health == "" {
			health = unknownHealth
		}
		services = append(services, ServiceStatus{Name: row.Service, Status: row.State, Health: health})
	}
	return services, nil
}
