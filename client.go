package main

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client is one websocket connection. Its id doubles as the player id.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	limiter    *rate.Limiter
	log        *zap.Logger
	joined     bool

	accountID int64  // 0 = guest
	account   string // username once authenticated
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	id := GenerateID()
	rl := hub.cfg.RateLimit
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         id,
		remoteAddr: remoteAddr,
		limiter:    rate.NewLimiter(rate.Limit(rl.MessagesPerSecond), rl.Burst),
		log:        hub.log.With(zap.String("conn", id), zap.String("ip", remoteAddr)),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws read error", zap.Error(err))
			}
			break
		}
		if !c.limiter.Allow() {
			c.log.Warn("rate limit exceeded, disconnecting")
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal", zap.Error(err))
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(text string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: text}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug("bad envelope", zap.Error(err))
		return
	}

	switch env.T {
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	default:
		if c.joined {
			c.hub.game.Handle(c.id, env.T, env.D)
		}
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	if c.joined {
		c.sendError(ErrAlreadyJoined.Error())
		return
	}
	var msg JoinMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("bad join", zap.Error(err))
			return
		}
	}
	if msg.Name == "" && c.account != "" {
		msg.Name = c.account
	}
	if err := c.hub.game.Join(c.id, c, msg, c.accountID); err != nil {
		c.sendError(err.Error())
		return
	}
	c.joined = true
}

func (c *Client) handleRegister(data json.RawMessage) {
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.setAuth(id, msg.Username, token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.setAuth(id, msg.Username, token)
}

func (c *Client) handleAuth(data json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError(ErrInvalidToken.Error())
		return
	}
	c.setAuth(id, username, msg.Token)
}

func (c *Client) setAuth(id int64, username, token string) {
	if id != c.accountID && !c.hub.ClaimAccount(id, c) {
		c.sendError(ErrAccountOnline.Error())
		return
	}
	if c.accountID != 0 && c.accountID != id {
		c.hub.ReleaseAccount(c.accountID, c)
	}
	c.accountID = id
	c.account = username
	if c.joined {
		c.hub.game.SetAuth(c.id, id)
	}
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: username, PlayerID: id}})
}

func (c *Client) handleProfile() {
	if c.accountID == 0 {
		c.sendError("not logged in")
		return
	}
	if c.hub.db == nil {
		c.sendError(ErrNoDatabase.Error())
		return
	}
	s, err := c.hub.db.GetStats(c.accountID)
	if err != nil || s == nil {
		if err != nil {
			c.log.Warn("load stats", zap.Error(err))
		}
		c.sendError("stats unavailable")
		return
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:     c.account,
		Deaths:       s.Deaths,
		Hunger:       s.DeathsHunger,
		Thirst:       s.DeathsThirst,
		Exhaustion:   s.DeathsRest,
		Survived:     round2(s.Survived),
		LongestLife:  round2(s.LongestLife),
		BlocksPlaced: s.BlocksPlaced,
		MealsEaten:   s.MealsEaten,
	}})
}
