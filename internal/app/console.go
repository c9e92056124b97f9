package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"essops/internal/app/bootstrap"
	"essops/internal/app/server"
	"essops/internal/app/version"
	"essops/internal/auth"
	"essops/internal/config"
	"essops/internal/execx"
	"essops/internal/geolite"
	"essops/internal/logging"
	"essops/internal/orchestration"
	"essops/internal/synapse"
	"essops/internal/system"
)

// RunConsole starts the admin console and blocks until SIGINT or SIGTERM.
func RunConsole() error {
	return runConsole(os.Args[1:])
}

func runConsole(args []string) error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	flags := pflag.NewFlagSet("ess-admin", pflag.ContinueOnError)
	hostFlag := flags.String("host", config.DefaultConsoleHost, "Listen address")
	portFlag := flags.Int("port", config.DefaultConsolePort, "Listen port")
	debugFlag := flags.Bool("debug", false, "Enable debug logging")
	versionFlag := flags.Bool("version", false, "Print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *versionFlag {
		fmt.Println("ess-admin", version.Get())
		return nil
	}

	cfg := config.LoadConsole()
	level := cfg.LogLevel
	if *debugFlag || cfg.Debug {
		level = "debug"
	}
	closer := logging.Setup("ess-admin", level, "")
	defer closer.Close()

	host := resolveHost("ADMIN_HOST", *hostFlag)
	port := resolvePort("ADMIN_PORT", "PORT", *portFlag)

	store, err := bootstrap.SetupStore(cfg)
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessions(cfg.SessionSecret, auth.DefaultTTL)
	if err != nil {
		return err
	}

	runner := execx.NewOSRunner()
	deps := server.Dependencies{
		Sessions: sessions,
		Services: orchestration.NewComposeController(runner, orchestration.ComposeOptions{
			Binary:      cfg.ComposeBinary,
			ComposeFile: cfg.ComposeFilePath,
		}),
		System: system.NewShellProvider(runner),
		Users:  synapse.NewClient(cfg.SynapseAdminAPI, cfg.SynapseAdminToken, cfg.MatrixServerName),
	}
	if locator := geolite.OpenOptional(cfg.GeoIPDBPath); locator != nil {
		defer locator.Close()
		deps.Geo = locator
	}

	srv, err := server.New(deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Admin console configured", "store", store, "compose_file", cfg.ComposeFilePath, "default_admin", cfg.AdminUsername)
	return srv.ListenAndServe(ctx, net.JoinHostPort(host, strconv.Itoa(port)))
}
