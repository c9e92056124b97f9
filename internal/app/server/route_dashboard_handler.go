package server

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"essops/internal/auth"
	"essops/internal/orchestration"
	"essops/internal/system"
)

type dashboardView struct {
	Admin    string
	Stats    system.Stats
	Services []orchestration.ServiceStatus
}

// overview samples host stats and service states concurrently. A failed
// service listing yields an empty list.
func (s *Server) overview(ctx context.Context) (system.Stats, []orchestration.ServiceStatus) {
	var (
		stats    system.Stats
		services []orchestration.ServiceStatus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats = s.deps.System.Stats(gctx)
		return nil
	})
	g.Go(func() error {
		services = s.listServices(gctx)
		return nil
	})
	_ = g.Wait()

	return stats, services
}

func (s *Server) listServices(ctx context.Context) []orchestration.ServiceStatus {
	services, err := s.deps.Services.ListServices(ctx)
	if err != nil {
		log.Warn("list services", "error", err)
		return []orchestration.ServiceStatus{}
	}
	return services
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	stats, services := s.overview(r.Context())
	s.render(w, http.StatusOK, "dashboard.html", dashboardView{
		Admin:    username,
		Stats:    stats,
		Services: services,
	})
}
