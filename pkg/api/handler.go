package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"emotion-backend/pkg/audio"
	"emotion-backend/pkg/logging"
	"emotion-backend/pkg/models"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	serviceName    = "Emotion-Aware Chatbot API"
	serviceVersion = "1.0.0"
)

type ChatService interface {
	Turn(ctx context.Context, sessionID, message string) (*models.ChatResponse, error)
	History(id string) (*models.HistoryResponse, error)
	Delete(id string) error
}

type Scraper interface {
	Run(ctx context.Context, query, retrievalQuery string) (*models.ScrapeResponse, error)
}

type VoicePredictor interface {
	Predict(ctx context.Context, raw []byte, format string) (*models.VoiceEmotionResponse, error)
}

type RiskPredictor interface {
	Predict(req *models.DepressionRequest) (*models.DepressionResponse, error)
}

type Handlers struct {
	chat      ChatService
	scraper   Scraper
	voice     VoicePredictor
	risk      RiskPredictor
	maxUpload int64
	log       zerolog.Logger
}

func NewHandlers(chat ChatService, scraper Scraper, voice VoicePredictor, risk RiskPredictor, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Handlers{
		chat:      chat,
		scraper:   scraper,
		voice:     voice,
		risk:      risk,
		maxUpload: maxUpload,
		log:       logging.Component("api"),
	}
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (h *Handlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.chat.Turn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.chat.Delete(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Session deleted",
	})
}

func (h *Handlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	resp, err := h.chat.History(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ScrapeHandler runs the retrieval pipeline. An exhausted pipeline is not a
// transport failure: the response carries the message in its error field.
func (h *Handlers) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeDetail(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := h.scraper.Run(r.Context(), req.Query, req.RetrievalQuery)
	if err != nil && !(errors.Is(err, models.ErrPipelineExhausted) && resp != nil) {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) DepressionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DepressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.risk.Predict(&req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) VoiceEmotionHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !audio.IsAudioContentType(contentType) {
		writeDetail(w, http.StatusBadRequest, "File must be an audio file")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Failed to read audio file")
		return
	}

	format := audio.ResolveFormat(header.Filename, contentType)
	h.log.Info().
		Str("filename", header.Filename).
		Str("content_type", contentType).
		Str("format", format).
		Int("size", len(raw)).
		Msg("voice upload received")

	resp, err := h.voice.Predict(r.Context(), raw, format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps domain errors to status codes. Server-side failures are
// logged with their cause and answered with a generic detail.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := http.StatusText(status)

	switch {
	case errors.Is(err, models.ErrInvalidAudio):
		h.log.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected audio upload")
		detail = "Invalid audio file"
	case status == http.StatusBadRequest:
		detail = err.Error()
	case status == http.StatusNotFound:
		detail = "Session not found"
	case status >= http.StatusInternalServerError:
		h.log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	}
	writeDetail(w, status, detail)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidAudio), errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
