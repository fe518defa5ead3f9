package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
	"github.com/helpmebuyapp/helpmebuy/internal/repository"
	hmbsync "github.com/helpmebuyapp/helpmebuy/internal/sync"
)

// Service is what the dashboard needs from the sync coordinator.
type Service interface {
	repository.Repository
	Reconcile(ctx context.Context) hmbsync.Report
}

// Handler bridges the coordinator and the WebSocket server. It turns live
// feed emissions into broadcasts and client intents into coordinator calls.
type Handler struct {
	server  *Server
	svc     Service
	logger  zerolog.Logger
	onWrite func()

	mu     sync.RWMutex
	latest *Message
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithWriteHook sets a function called after every applied write intent,
// typically daemon.Kick.
func WithWriteHook(fn func()) HandlerOption {
	return func(h *Handler) { h.onWrite = fn }
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(logger zerolog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger.With().Str("component", "dashboard").Logger()
	}
}

// NewHandler creates a handler and installs it on server.
func NewHandler(server *Server, svc Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		server: server,
		svc:    svc,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	server.SetHandler(h)
	return h
}

// Run follows the coordinator's live feed and broadcasts every emission.
// It blocks until ctx is done.
func (h *Handler) Run(ctx context.Context) error {
	ch, err := h.svc.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to lists: %w", err)
	}

	for lists := range ch {
		msg, err := newMessage(MessageTypeLists, listsData(lists))
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to encode lists")
			continue
		}

		h.mu.Lock()
		h.latest = &msg
		h.mu.Unlock()

		h.server.Broadcast(msg)
	}
	return nil
}

// Snapshot implements IntentHandler.
func (h *Handler) Snapshot() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return Message{}, false
	}
	return *h.latest, true
}

// BroadcastReport sends a reconcile report to every client.
func (h *Handler) BroadcastReport(r hmbsync.Report) {
	msg, err := newMessage(MessageTypeSyncReport, reportData(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode report")
		return
	}
	h.server.Broadcast(msg)
}

// HandleIntent implements IntentHandler.
func (h *Handler) HandleIntent(ctx context.Context, in Intent) Message {
	var (
		id  int
		err error
	)

	switch in.Op {
	case OpInsert:
		id, err = h.insert(ctx, in)
	case OpUpdate:
		id, err = in.ID, h.update(ctx, in)
	case OpDelete:
		id, err = in.ID, h.delete(ctx, in)
	case OpSync:
		msg, err := newMessage(MessageTypeSyncReport, reportData(h.svc.Reconcile(ctx)))
		if err != nil {
			return errorMessage(in, err)
		}
		return msg
	default:
		err = fmt.Errorf("unknown op %q", in.Op)
	}

	if err != nil {
		h.logger.Warn().Str("op", in.Op).Err(err).Msg("intent failed")
		return errorMessage(in, err)
	}

	if h.onWrite != nil {
		h.onWrite()
	}

	msg, err := newMessage(MessageTypeAck, AckData{Op: in.Op, RequestID: in.RequestID, ID: id})
	if err != nil {
		return errorMessage(in, err)
	}
	return msg
}

// insert creates a list by name. Any id in the intent is ignored.
func (h *Handler) insert(ctx context.Context, in Intent) (int, error) {
	if strings.TrimSpace(in.Name) == "" {
		return 0, errors.New("name is required")
	}
	return h.svc.Insert(ctx, ListData{
		Name:     in.Name,
		Category: model.CategoryOrDefault(in.Category),
		Items:    in.Items,
	})
}

// update replaces a list. Items absent from the intent are kept.
func (h *Handler) update(ctx context.Context, in Intent) error {
	if in.ID <= 0 {
		return errors.New("id is required")
	}

	items := in.Items
	if items == nil {
		current, err := repository.Lookup(ctx, h.svc, in.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("list %d: %w", in.ID, model.ErrNotFound)
		}
		items = model.ItemsOf(current)
	}

	return h.svc.Update(ctx, ListData{
		ID:       in.ID,
		Name:     in.Name,
		Category: model.CategoryOrDefault(in.Category),
		Items:    items,
	})
}

func (h *Handler) delete(ctx context.Context, in Intent) error {
	if in.ID <= 0 {
		return errors.New("id is required")
	}
	return h.svc.Delete(ctx, ListData{ID: in.ID})
}

func reportData(r hmbsync.Report) SyncReportData {
	d := SyncReportData{
		Pushed:     r.Pushed,
		PushFailed: r.PushFailed,
		Updated:    r.Updated,
		Inserted:   r.Inserted,
		PullFailed: r.PullFailed,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.PushErr != nil {
		d.PushError = r.PushErr.Error()
	}
	if r.PullErr != nil {
		d.PullError = r.PullErr.Error()
	}
	return d
}
