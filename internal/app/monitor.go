package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"essops/internal/app/version"
	"essops/internal/config"
	"essops/internal/dns"
	"essops/internal/execx"
	"essops/internal/jobs/reconciler"
	"essops/internal/jobs/runtime"
	"essops/internal/logging"
	"essops/internal/orchestration"
	"essops/internal/relayconfig"
	"essops/internal/support"
	"essops/internal/wanip"
)

const (
	monitorComponent = "wan-ip-monitor"
	monitorLeaderKey = "essops:leader:wan-ip-monitor"
)

// RunMonitor starts the WAN address reconciler and blocks until SIGINT or
// SIGTERM. A missing or incomplete config file is returned as an error.
func RunMonitor() error {
	return runMonitor(os.Args[1:])
}

func runMonitor(args []string) error {
	flags := pflag.NewFlagSet(monitorComponent, pflag.ContinueOnError)
	configFlag := flags.StringP("config", "c", config.DefaultMonitorConfigPath, "Path to the monitor INI file")
	onceFlag := flags.Bool("once", false, "Run a single reconciliation cycle and exit")
	versionFlag := flags.Bool("version", false, "Print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *versionFlag {
		fmt.Println(monitorComponent, version.Get())
		return nil
	}

	path := *configFlag
	if !flags.Changed("config") && flags.NArg() > 0 {
		path = flags.Arg(0)
	}

	cfg, err := config.LoadMonitor(path)
	if err != nil {
		return err
	}

	closer := logging.Setup(monitorComponent, cfg.LogLevel, cfg.LogFile)
	defer closer.Close()

	engine := newMonitorEngine(cfg, execx.NewOSRunner())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := &reconciler.State{}

	if *onceFlag {
		outcome := engine.RunCycle(ctx, state)
		outcome.Log()
		if outcome.Kind == reconciler.KindFailed {
			return fmt.Errorf("reconciliation failed at %s: %w", outcome.Stage, outcome.Err)
		}
		return nil
	}

	if cfg.RedisURL == "" {
		return engine.Run(ctx, state, cfg.CheckInterval)
	}
	return runMonitorAsLeader(ctx, cfg, engine, state)
}

// runMonitorAsLeader only reconciles while this replica holds the Redis lock.
// The state survives leadership terms; terms never overlap within a process.
func runMonitorAsLeader(ctx context.Context, cfg config.Monitor, engine *reconciler.Engine, state *reconciler.State) error {
	client, err := support.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer client.Close()

	cancelHeartbeat := runtime.LaunchInstanceHeartbeat(ctx, client, monitorComponent)
	defer cancelHeartbeat()

	if replicas, err := runtime.CountActiveInstances(ctx, client, monitorComponent); err == nil {
		log.Info("Waiting for monitor leadership", "instance", runtime.InstanceID(), "replicas", replicas)
	}

	err = support.RunWithLeader(ctx, client, monitorLeaderKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		log.Info("Acquired monitor leadership", "instance", runtime.InstanceID())
		if err := engine.Run(leaderCtx, state, cfg.CheckInterval); err != nil {
			log.Error("Monitor loop stopped", "error", err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newMonitorEngine(cfg config.Monitor, runner execx.Runner) *reconciler.Engine {
	var sources []wanip.Source
	if cfg.RouterConfigured() {
		sources = append(sources, wanip.RouterSource{Address: cfg.RouterIP, Username: cfg.RouterUsername, Password: cfg.RouterPassword})
	} else {
		log.Debug("router credentials incomplete, skipping router lookup")
	}
	sources = append(sources, wanip.NewHTTPSource(cfg.LookupServices, nil))
	if len(cfg.STUNServers) > 0 {
		sources = append(sources, wanip.NewSTUNSource(cfg.STUNServers))
	}

	resolver := wanip.NewResolver(sources...)
	log.Info("WAN address sources", "order", resolver.Sources())

	var provider dns.Provider
	if cfg.CloudflareToken != "" {
		provider = dns.NewClient(cfg.CloudflareAPIURL, cfg.CloudflareToken)
	} else {
		log.Warn("cloudflare_api_token not set, DNS records will not be updated")
	}

	return &reconciler.Engine{
		Resolver:   resolver,
		Config:     relayconfig.NewRewriter(),
		ConfigPath: cfg.RelayConfigPath,
		DNS:        dns.NewSynchronizer(provider, cfg.Domains, cfg.DNSTTL),
		Services: orchestration.NewComposeController(runner, orchestration.ComposeOptions{
			Binary:      cfg.ComposeBinary,
			ComposeFile: cfg.ComposeFilePath,
			Container:   cfg.ContainerName,
			HealthURL:   cfg.HealthURL,
		}),
		Service:      cfg.ComposeService,
		ReadyTimeout: cfg.ReadyTimeout,
	}
}
