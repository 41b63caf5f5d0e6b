package kifu

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kifu_editor/internal/domain/document"
	appErrors "kifu_editor/internal/errors"
	"kifu_editor/internal/httpresponse"
	kifuuc "kifu_editor/internal/usecase/kifu"
)

const liveWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type liveClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveClient) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return c.conn.WriteJSON(v)
}

// LiveHub keeps the websocket subscribers of every open document.
type LiveHub struct {
	log     *zap.SugaredLogger
	mu      sync.RWMutex
	clients map[string]map[*liveClient]struct{}
}

func NewLiveHub(log *zap.SugaredLogger) *LiveHub {
	return &LiveHub{
		log:     log,
		clients: make(map[string]map[*liveClient]struct{}),
	}
}

func (h *LiveHub) add(id string, c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[id] == nil {
		h.clients[id] = make(map[*liveClient]struct{})
	}
	h.clients[id][c] = struct{}{}
}

func (h *LiveHub) remove(id string, c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[id], c)
	if len(h.clients[id]) == 0 {
		delete(h.clients, id)
	}
}

func (h *LiveHub) HasSubscribers(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[id]) > 0
}

func (h *LiveHub) subscribers(id string) []*liveClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*liveClient, 0, len(h.clients[id]))
	for c := range h.clients[id] {
		out = append(out, c)
	}
	return out
}

// Publish sends update to every subscriber of id. Subscribers that cannot
// keep up are dropped.
func (h *LiveHub) Publish(id string, update document.LiveUpdate) {
	for _, c := range h.subscribers(id) {
		if err := c.send(update); err != nil {
			h.log.Warnf("dropping live subscriber of %s: %v", id, err)
			h.remove(id, c)
			c.conn.Close()
		}
	}
}

// CloseDocument disconnects every subscriber of a closed document.
func (h *LiveHub) CloseDocument(id string) {
	for _, c := range h.subscribers(id) {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "document closed"),
			time.Now().Add(liveWriteTimeout))
		c.mu.Unlock()
		h.remove(id, c)
		c.conn.Close()
	}
}

// HandleLive streams LiveUpdate snapshots of a document and accepts
// LiveCommand messages that edit or navigate it.
func (h *KifuHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	snapshot, err := h.kifuUC.LiveUpdate(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("upgrade error: %v", err)
		return
	}
	client := &liveClient{conn: conn}
	h.hub.add(id, client)
	defer func() {
		h.hub.remove(id, client)
		conn.Close()
	}()

	if err := client.send(snapshot); err != nil {
		h.log.Errorf("failed to send snapshot: %v", err)
		return
	}

	for {
		var cmd document.LiveCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debugf("live read error: %v", err)
			}
			return
		}

		res, err := h.applyCommand(r, id, cmd)
		if err != nil {
			_ = client.send(httpresponse.ErrorResponse{ErrorDescription: err.Error()})
			continue
		}
		if res.Changed {
			h.publish(r, id)
		} else {
			// Nothing moved; answer the sender so it is not left waiting.
			update, err := h.kifuUC.LiveUpdate(ctx, id)
			if err == nil {
				_ = client.send(update)
			}
		}
	}
}

func (h *KifuHandler) applyCommand(r *http.Request, id string, cmd document.LiveCommand) (kifuuc.MutationResult, error) {
	switch cmd.Action {
	case document.LiveActionMove:
		if cmd.Move == nil {
			return kifuuc.MutationResult{}, appErrors.ErrInvalidRequest
		}
		return h.kifuUC.AppendMove(r.Context(), id, document.MoveRequest{Move: *cmd.Move})
	case document.LiveActionNavigate:
		if cmd.Te < 0 {
			return kifuuc.MutationResult{}, appErrors.ErrInvalidRequest
		}
		return h.kifuUC.Navigate(r.Context(), id, document.NavigateRequest{Te: cmd.Te})
	default:
		return kifuuc.MutationResult{}, appErrors.ErrInvalidRequest
	}
}
