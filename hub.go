package main

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrAccountOnline = errors.New("account already online")

// Hub tracks connected clients and hands them to the one Game
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	game       *Game
	cfg        *Config
	log        *zap.Logger
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	// Auth & DB; db is nil when persistence is disabled
	db        *DB
	auth      *Auth
	analytics *Analytics
	// accountID -> connection holding it
	onlineMu sync.Mutex
	online   map[int64]*Client
}

// NewHub creates a Hub around a running game
func NewHub(cfg *Config, game *Game, db *DB, analytics *Analytics, log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		stop:       make(chan struct{}),
		game:       game,
		cfg:        cfg,
		log:        log,
		ipConns:    make(map[string]int),
		db:         db,
		auth:       NewAuth(db, log.Named("auth")),
		analytics:  analytics,
		online:     make(map[int64]*Client),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.cfg.Server.MaxTotalConns {
		return false
	}
	if h.ipConns[ip] >= h.cfg.Server.MaxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("client connected", zap.String("conn", client.id))

		case client := <-h.unregister:
			if client.joined {
				h.game.Leave(client.id)
			}
			if client.accountID != 0 {
				h.ReleaseAccount(client.accountID, client)
			}
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("client disconnected", zap.String("conn", client.id))

		case <-h.stop:
			return
		}
	}
}

// Stop ends Run and closes every connection
func (h *Hub) Stop() {
	close(h.stop)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// ClaimAccount binds an account to one connection at a time
func (h *Hub) ClaimAccount(id int64, c *Client) bool {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	if holder, ok := h.online[id]; ok && holder != c {
		return false
	}
	h.online[id] = c
	return true
}

// ReleaseAccount frees an account held by c
func (h *Hub) ReleaseAccount(id int64, c *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	if h.online[id] == c {
		delete(h.online, id)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
