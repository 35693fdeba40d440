package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain"
	"assistant-chat/internal/ui"
	"assistant-chat/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 64 << 10
)

type ChatUseCase interface {
	Submit(ctx context.Context, in usecase.SubmitInput) (usecase.SubmitOutput, error)
	Snapshot() ([]domain.Message, int)
	ThreadID() string
}

type EmotionUseCase interface {
	Classify(ctx context.Context, text string) (usecase.Emotion, error)
}

type PageRenderer interface {
	Render(w io.Writer, p ui.Page) error
}

type Handler struct {
	chat     ChatUseCase
	emotion  EmotionUseCase
	renderer PageRenderer
	log      zerolog.Logger
	router   *mux.Router
}

type messageRequest struct {
	Message  string `json:"message"`
	InputKey *int   `json:"inputKey,omitempty"`
}

type messageResponse struct {
	Reply string `json:"reply"`
	Time  string `json:"time"`
}

type transcriptResponse struct {
	Messages []domain.Message `json:"messages"`
	InputKey int              `json:"inputKey"`
}

type emotionRequest struct {
	Text string `json:"text"`
}

type emotionResponse struct {
	Emotion string `json:"emotion"`
}

type healthResponse struct {
	OK       bool   `json:"ok"`
	ThreadID string `json:"threadId"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(chat ChatUseCase, emotion EmotionUseCase, renderer PageRenderer, log zerolog.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if emotion == nil {
		return nil, errors.New("handler: emotion use case must not be nil")
	}
	if renderer == nil {
		return nil, errors.New("handler: renderer must not be nil")
	}
	h := &Handler{chat: chat, emotion: emotion, renderer: renderer, log: log}

	r := mux.NewRouter()
	r.Use(h.withCorrelationID, h.withRequestLog)
	r.HandleFunc("/", h.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/messages", h.handleFormSubmit).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/messages", h.handleTranscript).Methods(http.MethodGet)
	api.HandleFunc("/messages", h.handleAPISubmit).Methods(http.MethodPost)
	api.HandleFunc("/emotion", h.handleEmotion).Methods(http.MethodPost)

	h.router = r
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	msgs, key := h.chat.Snapshot()
	h.writePage(w, r, http.StatusOK, ui.Page{Messages: msgs, InputKey: key})
}

// handleFormSubmit reads the text field keyed by the posted input_key and
// redirects back to the page on success so a reload never resubmits.
func (h *Handler) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.writePageError(w, r, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_form", Err: err})
		return
	}
	key, err := strconv.Atoi(r.PostFormValue("input_key"))
	if err != nil {
		h.writePageError(w, r, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_input_key", Err: err})
		return
	}

	_, err = h.chat.Submit(r.Context(), usecase.SubmitInput{
		Text:     r.PostFormValue("user_input_" + strconv.Itoa(key)),
		InputKey: &key,
	})
	if err != nil {
		h.writePageError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	msgs, key := h.chat.Snapshot()
	writeJSON(w, http.StatusOK, transcriptResponse{Messages: msgs, InputKey: key})
}

func (h *Handler) handleAPISubmit(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeAPIError(w, r, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err})
		return
	}
	out, err := h.chat.Submit(r.Context(), usecase.SubmitInput{Text: req.Message, InputKey: req.InputKey})
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Reply: out.Reply.Content, Time: out.Reply.Time})
}

func (h *Handler) handleEmotion(w http.ResponseWriter, r *http.Request) {
	var req emotionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeAPIError(w, r, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err})
		return
	}
	emotion, err := h.emotion.Classify(r.Context(), req.Text)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emotionResponse{Emotion: string(emotion)})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{OK: true, ThreadID: h.chat.ThreadID()})
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, status int, p ui.Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := h.renderer.Render(w, p); err != nil {
		h.log.Error().Err(err).Str("correlation_id", correlationID(r)).Msg("render page failed")
	}
}

func (h *Handler) writePageError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, reason := classify(err)
	h.logError(r, err, code, reason)
	msgs, key := h.chat.Snapshot()
	h.writePage(w, r, status, ui.Page{Messages: msgs, InputKey: key, Error: userMessage(code)})
}

func (h *Handler) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, reason := classify(err)
	h.logError(r, err, code, reason)
	writeJSON(w, status, errorResponse{Error: string(code), Reason: reason})
}

func (h *Handler) logError(r *http.Request, err error, code usecase.ErrorCode, reason string) {
	ev := h.log.Warn()
	if code == usecase.ErrorInternal {
		ev = h.log.Error()
	}
	ev.Err(err).
		Str("correlation_id", correlationID(r)).
		Str("code", string(code)).
		Str("reason", reason).
		Msg("request failed")
}

func classify(err error) (int, usecase.ErrorCode, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, usecase.ErrorInternal, "unexpected_error"
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, ucErr.Code, ucErr.Reason
	case usecase.ErrorConflict:
		return http.StatusConflict, ucErr.Code, ucErr.Reason
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, ucErr.Code, ucErr.Reason
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, ucErr.Code, ucErr.Reason
	case usecase.ErrorTimeout:
		return http.StatusGatewayTimeout, ucErr.Code, ucErr.Reason
	default:
		return http.StatusInternalServerError, usecase.ErrorInternal, ucErr.Reason
	}
}

func userMessage(code usecase.ErrorCode) string {
	switch code {
	case usecase.ErrorInvalidInput:
		return "Please enter a message."
	case usecase.ErrorConflict:
		return "That message was already sent."
	case usecase.ErrorRateLimited:
		return "The assistant is busy right now. Please try again shortly."
	case usecase.ErrorUpstream:
		return "The assistant could not answer. Please try again."
	case usecase.ErrorTimeout:
		return "The assistant took too long to answer. Please try again."
	default:
		return "Something went wrong."
	}
}

func (h *Handler) withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(correlationHeader))
		if id == "" {
			id = newUUID()
			r.Header.Set(correlationHeader, id)
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		h.log.Info().
			Str("correlation_id", correlationID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func correlationID(r *http.Request) string {
	return r.Header.Get(correlationHeader)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var newUUID = func() string {
	return uuid.NewString()
}
