// Package mailapi exposes the operational HTTP surface: poll triggering
// and conversation inspection.
package mailapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/frontdesk/internal/batch"
	"github.com/linnemanlabs/frontdesk/internal/convlog"
)

// PollService triggers one batch poll.
type PollService interface {
	RunOnce(ctx context.Context) (batch.Stats, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	poller PollService
	convs  convlog.Store
}

// New creates a new API handler.
func New(logger log.Logger, poller PollService, convs convlog.Store) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if poller == nil {
		panic(xerrors.New("poll service is required"))
	}
	if convs == nil {
		panic(xerrors.New("conversation store is required"))
	}
	return &API{
		logger: logger,
		poller: poller,
		convs:  convs,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/poll", a.handlePoll)
		r.Get("/conversations", a.handleListConversations)
		r.Get("/conversations/{id}", a.handleGetConversation)
	})
}

func (a *API) handlePoll(w http.ResponseWriter, r *http.Request) {
	stats, err := a.poller.RunOnce(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "manual poll failed")
		http.Error(w, `{"error":"poll failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (a *API) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := a.convs.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list conversations")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"conversations": ids,
	})
}

func (a *API) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("frontdesk.conversation.id", id))

	conv, ok, err := a.convs.Load(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to load conversation", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(conv)
}
