package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"review-game-service/internal/app"
	"review-game-service/internal/domain"
)

// WSHandler streams leaderboard rebuilds for a date to websocket
// clients. The stream is read-only; submissions go through REST.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades the request and relays leaderboard updates for the
// requested date until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "missing date", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	// Send the current board first so clients render without waiting
	// for the next rebuild.
	entries, err := h.service.Leaderboard(r.Context(), date, 0)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: err.Error()})
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: entries}); err != nil {
		return
	}

	updates, cancel := h.service.Hub().Subscribe(date)
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				return
			}
		case <-readerDone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
