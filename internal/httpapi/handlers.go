package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/live-scoring-backend/internal/catalog"
	"go.uber.org/zap"
)

// BuiltinGames lists the catalog in index order, which is the order a host
// refers to them by.
func BuiltinGames(games *catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(games.All()); err != nil {
			log.Debug("write builtin games", zap.Error(err))
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
