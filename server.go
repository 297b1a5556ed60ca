package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultQRSize    = 256
	maxQRSize        = 1024
	leaderboardLimit = 20
	defaultStatsDays = 7
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(v)
}

// StatsResponse is served at /api/stats
type StatsResponse struct {
	Days        int            `json:"days"`
	Events      map[string]int `json:"events"`
	DeathCauses map[string]int `json:"deathCauses"`
	Survivors   int            `json:"survivors"`
	Overseers   int            `json:"overseers"`
	Queued      int            `json:"queued"`
	Connections int            `json:"connections"`
	Dropped     int            `json:"dropped"`
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	log := hub.log

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("upgrade failed", zap.String("ip", ip), zap.Error(err))
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/qr.png", func(w http.ResponseWriter, r *http.Request) {
		size := defaultQRSize
		if s := r.URL.Query().Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 64 || n > maxQRSize {
				http.Error(w, "size must be 64-1024", http.StatusBadRequest)
				return
			}
			size = n
		}
		png, err := qrcode.Encode(hub.cfg.Server.PublicURL, qrcode.Medium, size)
		if err != nil {
			log.Error("encode qr", zap.Error(err))
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(png)
	})

	mux.HandleFunc("/api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			http.Error(w, ErrNoDatabase.Error(), http.StatusServiceUnavailable)
			return
		}
		entries, err := hub.db.GetLeaderboard(r.URL.Query().Get("by"), leaderboardLimit)
		if err != nil {
			log.Warn("leaderboard query", zap.Error(err))
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		days := defaultStatsDays
		if s := r.URL.Query().Get("days"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 365 {
				days = n
			}
		}
		resp := StatsResponse{Days: days, Connections: hub.TotalConns()}
		resp.Survivors, resp.Overseers, resp.Queued = hub.game.Counts()
		if hub.analytics != nil {
			var err error
			if resp.Events, err = hub.analytics.EventCounts(days); err != nil {
				log.Warn("event counts", zap.Error(err))
			}
			if resp.DeathCauses, err = hub.analytics.DeathCauses(days); err != nil {
				log.Warn("death causes", zap.Error(err))
			}
			resp.Dropped = hub.analytics.Dropped()
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return mux
}
