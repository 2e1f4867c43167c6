package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	hubBuffer    = 256
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

// hub fans committed changes out to the websocket connections of the
// workspace owner.
type hub struct {
	store    store.Store
	owners   *cache.Cache
	log      zerolog.Logger
	upgrader websocket.Upgrader

	in          chan store.Change
	quit        chan struct{}
	unsubscribe []func()
	wg          sync.WaitGroup
	closeOnce   sync.Once

	mu      sync.RWMutex
	clients map[models.UserID]map[*eventClient]struct{}
}

type eventClient struct {
	conn *websocket.Conn
	user models.UserID
	send chan store.Change
	done chan struct{}
	once sync.Once
}

func (c *eventClient) stop() {
	c.once.Do(func() { close(c.done) })
}

func newHub(st store.Store, owners *cache.Cache, log zerolog.Logger) *hub {
	h := &hub{
		store:  st,
		owners: owners,
		log:    log.With().Str("component", "events").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// requests are authenticated by bearer token, not cookies
			CheckOrigin: func(*http.Request) bool { return true },
		},
		in:      make(chan store.Change, hubBuffer),
		quit:    make(chan struct{}),
		clients: make(map[models.UserID]map[*eventClient]struct{}),
	}

	collections := append([]models.EntityType{models.EntityWorkspace}, models.MigrationOrder...)
	for _, c := range collections {
		h.unsubscribe = append(h.unsubscribe, st.Changes().Subscribe(c, h.enqueue))
	}

	h.wg.Add(1)
	go h.run()
	return h
}

func (h *hub) enqueue(c store.Change) {
	select {
	case h.in <- c:
	case <-h.quit:
	default:
		h.log.Warn().Str("collection", string(c.Collection)).Msg("event queue full, dropping change")
	}
}

func (h *hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.quit:
			return
		case c := <-h.in:
			h.dispatch(c)
		}
	}
}

func (h *hub) owner(ws models.WorkspaceID) (models.UserID, bool) {
	if cached, ok := h.owners.Get(ws.String()); ok {
		return cached.(models.UserID), true
	}
	workspace, err := h.store.GetWorkspace(context.Background(), ws)
	if err != nil {
		return models.UserID{}, false
	}
	h.owners.Set(ws.String(), workspace.OwnerID, cache.DefaultExpiration)
	return workspace.OwnerID, true
}

func (h *hub) dispatch(c store.Change) {
	owner, ok := h.owner(c.WorkspaceID)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[owner] {
		select {
		case client.send <- c:
		case <-client.done:
		default:
			h.log.Warn().Str("user", owner.String()).Msg("event client too slow, disconnecting")
			client.stop()
		}
	}
}

func (h *hub) register(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.user] == nil {
		h.clients[c.user] = make(map[*eventClient]struct{})
	}
	h.clients[c.user][c] = struct{}{}
}

func (h *hub) unregister(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[c.user], c)
	if len(h.clients[c.user]) == 0 {
		delete(h.clients, c.user)
	}
}

// handleEvents upgrades the request and streams the caller's changes until
// either side closes.
func (h *hub) handleEvents(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.quit:
		respondError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &eventClient{
		conn: conn,
		user: userFrom(r).ID,
		send: make(chan store.Change, clientBuffer),
		done: make(chan struct{}),
	}
	h.register(client)
	h.log.Debug().Str("user", client.user.String()).Msg("event client connected")

	h.wg.Add(1)
	go h.write(client)

	// reads only drive control frames; a close or error ends the stream
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	client.stop()
}

func (h *hub) write(c *eventClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(c)
		_ = c.conn.Close()
		h.wg.Done()
		h.log.Debug().Str("user", c.user.String()).Msg("event client disconnected")
	}()

	for {
		select {
		case <-c.done:
			return
		case <-h.quit:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case change := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// connections returns the number of open event streams of the user.
func (h *hub) connections(user models.UserID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[user])
}

func (h *hub) total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

func (h *hub) close() {
	h.closeOnce.Do(func() {
		for _, unsubscribe := range h.unsubscribe {
			unsubscribe()
		}
		close(h.quit)
		h.wg.Wait()
	})
}
