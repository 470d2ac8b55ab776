// Package adminapi - служебный HTTP интерфейс бота: здоровье, статистика,
// перезагрузка меню и результаты, которые не попали в журнал.
package adminapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/glog"

	"github.com/PoluyanbIch/MenuQuizBot/internal/ledger"
	"github.com/PoluyanbIch/MenuQuizBot/internal/service"
)

// Controller - часть движка, доступная админке
type Controller interface {
	Stats() service.Stats
	ReloadQuestionBank(ctx context.Context) (int, error)
	Undelivered() []ledger.Result
}

// NewRouter собирает роутер. Если token не пустой, все ручки кроме
// /healthz требуют заголовок "Authorization: Bearer <token>".
func NewRouter(ctl Controller, token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(requireToken(token))
		pr.Get("/stats", statsHandler(ctl))
		pr.Post("/reload", reloadHandler(ctl))
		pr.Get("/results/undelivered", undeliveredHandler(ctl))
	})

	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func statsHandler(ctl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, ctl.Stats())
	}
}

func reloadHandler(ctl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := ctl.ReloadQuestionBank(r.Context())
		if err != nil {
			glog.Warningf("Reload via admin API failed: %v", err)
			respondJSON(w, http.StatusBadGateway, map[string]any{
				"error":     err.Error(),
				"questions": n,
			})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"questions": n})
	}
}

func undeliveredHandler(ctl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows := ctl.Undelivered()
		if rows == nil {
			rows = []ledger.Result{}
		}
		respondJSON(w, http.StatusOK, map[string]any{"results": rows, "count": len(rows)})
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
