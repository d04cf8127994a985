package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/live-scoring-backend/internal/catalog"
	"github.com/DoyleJ11/live-scoring-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(s *ws.Server, games *catalog.Catalog, publicDir string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	// Session roles
	s.Mount(r)

	// Public routes
	r.Get("/api/builtin-games", BuiltinGames(games, log))
	r.Get("/healthz", Healthz)

	if publicDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(publicDir)))
	}
	return r
}
