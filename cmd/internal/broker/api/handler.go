// Package brokerapi wires the broker core to its HTTP surface.
package brokerapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"courier/cmd/internal/broker"
)

const (
	defaultMaxCount = 100
	// JSON framing overhead allowed on top of the payload cap.
	bodySlackBytes = 64 << 10
)

// Config bounds the HTTP surface. Values come from app configuration.
type Config struct {
	// MaxMessageCountPerRequest clamps the ?count query parameter.
	MaxMessageCountPerRequest int
	// MaxBodyBytes caps a POST body; zero derives it from the broker's
	// payload limit.
	MaxBodyBytes int64
}

// Handler serves the /messages endpoints.
type Handler struct {
	log *slog.Logger
	svc *broker.Service
	cfg Config

	onStored func(recipient string)
}

// HandlerOption configures optional Handler behavior.
type HandlerOption func(*Handler)

// WithStoredHook registers a callback invoked after each accepted message,
// used to wake up notification subscribers.
func WithStoredHook(fn func(recipient string)) HandlerOption {
	return func(h *Handler) {
		if fn != nil {
			h.onStored = fn
		}
	}
}

// NewHandler constructs a broker API handler.
func NewHandler(log *slog.Logger, svc *broker.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("brokerapi: nil service")
	}
	if cfg.MaxMessageCountPerRequest <= 0 {
		cfg.MaxMessageCountPerRequest = defaultMaxCount
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = int64(svc.Limits().MaxDataLength) + bodySlackBytes
	}

	return &Handler{log: log, svc: svc, cfg: cfg}, nil
}

// Register wires the message routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /messages", h.handleSubmit)
	mux.HandleFunc("GET /messages/{recipient}/{id}", h.handleFetch)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	msg := broker.OutgoingMessage{
		Sender:    req.Sender,
		Recipient: req.Recipient,
		SendTime:  req.SendTime,
		Data:      req.Data,
		DataType:  req.DataType,
		Text:      req.Text,
	}

	if err := h.svc.Submit(r.Context(), msg); err != nil {
		var ve *broker.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, "invalid_message", ve.Reason)
			return
		}
		// Storage and document store details stay out of the response.
		h.log.Error("submit.fail", "recipient", req.Recipient, "err", err)
		writeError(w, http.StatusInternalServerError, "storage_unavailable", "message could not be stored")
		return
	}

	if h.onStored != nil {
		h.onStored(msg.Recipient)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	recipient := strings.TrimSpace(r.PathValue("recipient"))
	if recipient == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing recipient")
		return
	}

	afterID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "cursor must be an integer")
		return
	}

	count := h.requestedCount(r)

	res, err := h.svc.Fetch(r.Context(), recipient, afterID, count)
	if err != nil {
		h.log.Error("fetch.fail", "recipient", recipient, "after_id", afterID, "err", err)
		writeError(w, http.StatusInternalServerError, "storage_unavailable", "messages could not be retrieved")
		return
	}

	writeJSON(w, http.StatusOK, toMessagesResponse(res))
}

// requestedCount parses ?count, defaulting to 1 when absent or unparseable
// and clamping into [0, MaxMessageCountPerRequest].
func (h *Handler) requestedCount(r *http.Request) int {
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n
		}
	}
	if count < 0 {
		count = 0
	}
	if count > h.cfg.MaxMessageCountPerRequest {
		count = h.cfg.MaxMessageCountPerRequest
	}
	return count
}
