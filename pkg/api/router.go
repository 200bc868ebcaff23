package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts every endpoint. A nil limiter disables rate limiting.
func NewRouter(h *Handlers, limiter *RateLimiter) http.Handler {
	router := mux.NewRouter()
	router.Use(h.observe)

	router.HandleFunc("/", h.HealthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	limited := router.NewRoute().Subrouter()
	if limiter.Enabled() {
		limited.Use(rateLimitMiddleware(limiter))
	}
	limited.HandleFunc("/chat", h.ChatHandler).Methods("POST")
	limited.HandleFunc("/session/{id}", h.DeleteSessionHandler).Methods("DELETE")
	limited.HandleFunc("/session/{id}/history", h.HistoryHandler).Methods("GET")
	limited.HandleFunc("/scrape", h.ScrapeHandler).Methods("POST")
	limited.HandleFunc("/predict-depression", h.DepressionHandler).Methods("POST")
	limited.HandleFunc("/predict-voice-emotion", h.VoiceEmotionHandler).Methods("POST")
	limited.HandleFunc("/ws", h.WebSocketHandler)

	return corsMiddleware(router)
}
