package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/events"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/runstate"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Handler implements the run endpoints.
type Handler struct {
	runner    Runner
	publisher RunPublisher
}

// NewHandler returns a Handler. A nil publisher disables queued runs.
func NewHandler(runner Runner, publisher RunPublisher) *Handler {
	return &Handler{
		runner:    runner,
		publisher: publisher,
	}
}

// documentRef is the wire form of doc.Ref.
type documentRef struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
}

func (d documentRef) ref() (doc.Ref, error) {
	kind, err := doc.ParseKind(d.Kind)
	if err != nil {
		return doc.Ref{}, apperrors.DataError(apperrors.ErrInvalidInput)
	}
	return doc.Ref{ID: d.ID, Kind: kind}, nil
}

type outboundBody struct {
	Document   documentRef `json:"document"`
	ProcessKey string      `json:"process_key"`
	Count      int         `json:"count"`
}

type inboundBody struct {
	Document        documentRef `json:"document"`
	ProcessKey      string      `json:"process_key"`
	LastProcessedID int64       `json:"last_processed_id"`
	ProcessedCount  int         `json:"processed_count"`
	Keywords        string      `json:"keywords"`
}

type runBody struct {
	Mode     string      `json:"mode"`
	Document documentRef `json:"document"`
	Keywords string      `json:"keywords"`
}

// OutboundChunk runs one chunk of an outbound run.
func (h *Handler) OutboundChunk(w http.ResponseWriter, r *http.Request) {
	h.outbound(w, r, h.runner.ProcessOutboundChunk)
}

// ExternalChunk runs one chunk of an external-site run.
func (h *Handler) ExternalChunk(w http.ResponseWriter, r *http.Request) {
	h.outbound(w, r, h.runner.ProcessExternalChunk)
}

func (h *Handler) outbound(w http.ResponseWriter, r *http.Request, process func(ctx context.Context, req batch.OutboundRequest) (*batch.ChunkResponse, error)) {
	var body outboundBody
	if err := decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := body.Document.ref()
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := process(r.Context(), batch.OutboundRequest{
		Source:     ref,
		ProcessKey: body.ProcessKey,
		Count:      body.Count,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// InboundChunk runs one chunk of an inbound run.
func (h *Handler) InboundChunk(w http.ResponseWriter, r *http.Request) {
	var body inboundBody
	if err := decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := body.Document.ref()
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.runner.ProcessInboundChunk(r.Context(), batch.InboundRequest{
		Target:          ref,
		ProcessKey:      body.ProcessKey,
		LastProcessedID: body.LastProcessedID,
		ProcessedCount:  body.ProcessedCount,
		Keywords:        body.Keywords,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// RequestRun queues a run for the asynchronous worker and returns its
// process key.
func (h *Handler) RequestRun(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		writeError(w, r, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "queued runs are disabled"))
		return
	}
	var body runBody
	if err := decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := parseMode(body.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := body.Document.ref()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ref.ID <= 0 {
		writeError(w, r, apperrors.DataError(apperrors.ErrInvalidInput))
		return
	}

	req := events.RunRequest{
		ProcessKey: uuid.NewString(),
		Mode:       string(mode),
		DocumentID: ref.ID,
		Kind:       ref.Kind.String(),
		Keywords:   body.Keywords,
		Requested:  time.Now().UTC(),
	}
	if err := h.publisher.Publish(r.Context(), kafka.Event{Key: req.ProcessKey, Type: "run_requested", Value: req}); err != nil {
		logger.FromContext(r.Context()).Error("queueing run failed", "error", err)
		writeError(w, r, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "queueing run failed"))
		return
	}
	logger.FromContext(r.Context()).Info("run queued", "process_key", req.ProcessKey, "mode", mode, "document", ref.String())
	writeJSON(w, r, http.StatusAccepted, map[string]string{
		"process_key": req.ProcessKey,
		"mode":        req.Mode,
	})
}

// Suggestions renders the suggestions of a run. Query parameters:
// document_id, kind and the optional mode.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	ref, err := queryRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var mode runstate.Mode
	if m := r.URL.Query().Get("mode"); m != "" {
		if mode, err = parseMode(m); err != nil {
			writeError(w, r, err)
			return
		}
	}
	out, err := h.runner.GetFormattedSuggestions(r.Context(), batch.FormatRequest{
		ProcessKey: chi.URLParam(r, "processKey"),
		Mode:       mode,
		Document:   ref,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// ClearRun drops everything stored for a run.
func (h *Handler) ClearRun(w http.ResponseWriter, r *http.Request) {
	ref, err := queryRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.runner.ClearRunCache(r.Context(), chi.URLParam(r, "processKey"), ref); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseMode(s string) (runstate.Mode, error) {
	switch m := runstate.Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case runstate.ModeOutbound, runstate.ModeInbound, runstate.ModeExternal:
		return m, nil
	}
	return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown run mode %q", s)
}

func queryRef(r *http.Request) (doc.Ref, error) {
	q := r.URL.Query()
	id, err := strconv.ParseInt(q.Get("document_id"), 10, 64)
	if err != nil {
		return doc.Ref{}, apperrors.DataError(apperrors.ErrInvalidInput)
	}
	return documentRef{ID: id, Kind: q.Get("kind")}.ref()
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.DataError(apperrors.ErrInvalidInput)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to write response", "error", err)
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// writeError renders err as the title/text pair shown to users. Unexpected
// failures are logged; their detail never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	title, text := apperrors.TitleAndText(err)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Title == "" && status < http.StatusInternalServerError {
		text = appErr.Message
	}
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		log.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, r, status, errorBody{Error: errorDetail{Title: title, Text: text}})
}
