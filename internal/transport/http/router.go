// Package http exposes the game over REST plus a websocket leaderboard
// stream.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"review-game-service/internal/app"
)

// NewRouter assembles the HTTP surface around a game service.
func NewRouter(service *app.GameService) http.Handler {
	h := NewHandler(service)
	ws := NewWSHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/dates/{date}", func(r chi.Router) {
			r.Post("/issue", h.IssueQuestions)
			r.Get("/questions", h.Questions)
			r.Post("/verify", h.Verify)
			r.Get("/leaderboard", h.Leaderboard)
		})
		r.Post("/predictions", h.SubmitPrediction)
		r.Get("/leaderboard/alltime", h.AllTimeLeaderboard)
		r.Get("/users/{id}", h.UserProfile)
	})
	return r
}
