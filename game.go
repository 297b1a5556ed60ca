package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const maxCatchUp = 250 * time.Millisecond // longest stall the loop replays

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Game owns the World and serializes every handler and tick on one mutex,
// so each runs to completion before the next starts.
type Game struct {
	mu      sync.Mutex
	world   *World
	clients map[string]Broadcaster // playerID -> client
	cfg     *Config
	log     *zap.Logger
	sinks   []EventSink
	now     func() time.Time

	physStep time.Duration
	netStep  time.Duration
	physAcc  time.Duration
	netAcc   time.Duration

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewGame creates a Game around a fresh World
func NewGame(cfg *Config, log *zap.Logger, sinks ...EventSink) *Game {
	return &Game{
		world:    NewWorld(cfg, log),
		clients:  make(map[string]Broadcaster),
		cfg:      cfg,
		log:      log,
		sinks:    sinks,
		now:      time.Now,
		physStep: time.Second / time.Duration(cfg.Simulation.PhysicsRate),
		netStep:  time.Second / time.Duration(cfg.Simulation.NetworkRate),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drives both cadences from one timer, re-armed each iteration with the
// time left until the next physics step.
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()
	defer close(g.done)

	last := g.now()
	timer := time.NewTimer(g.physStep)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			now := g.now()
			g.Advance(now.Sub(last))
			last = now
			timer.Reset(g.untilNextStep())
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop and waits for it to exit
func (g *Game) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	close(g.stop)
	g.mu.Unlock()
	<-g.done
}

func (g *Game) untilNextStep() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	wait := g.physStep - g.physAcc
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// Advance replays elapsed wall-clock time as whole physics and network steps.
// Leftover time carries into the next call.
func (g *Game) Advance(elapsed time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > maxCatchUp {
		elapsed = maxCatchUp
	}
	g.physAcc += elapsed
	g.netAcc += elapsed

	now := g.now()
	pdt := g.physStep.Seconds()
	for g.physAcc >= g.physStep {
		g.physAcc -= g.physStep
		g.safe("physics", func() { g.world.StepPhysics(pdt) })
	}
	ndt := g.netStep.Seconds()
	for g.netAcc >= g.netStep {
		g.netAcc -= g.netStep
		g.safe("network", func() { g.world.StepNetwork(ndt, now) })
		g.safe("broadcast", g.broadcastState)
	}
	g.flush(now)
}

// safe runs one step, logging instead of propagating a panic
func (g *Game) safe(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("step panicked", zap.String("step", step), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

// broadcastState encodes one snapshot and sends it to every visible player
func (g *Game) broadcastState() {
	data, err := msgpack.Marshal(g.world.Snapshot())
	if err != nil {
		g.log.Error("encode state", zap.Error(err))
		return
	}
	for _, id := range g.world.Visible() {
		if c, ok := g.clients[id]; ok {
			c.SendBinary(data)
		}
	}
}

// flush delivers queued messages and hands events to the sinks
func (g *Game) flush(now time.Time) {
	out, events := g.world.drain()
	for _, m := range out {
		if m.to == "" {
			for _, c := range g.clients {
				c.SendJSON(m.env)
			}
			continue
		}
		if c, ok := g.clients[m.to]; ok {
			c.SendJSON(m.env)
		}
	}
	for _, e := range events {
		if e.At.IsZero() {
			e.At = now
		}
		for _, s := range g.sinks {
			s.Record(e)
		}
	}
}

// Join gives a connection an avatar
func (g *Game) Join(id string, c Broadcaster, msg JoinMsg, authID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	var err error
	g.safe("join", func() {
		_, err = g.world.AddPlayer(id, msg.Name, PlayerKind(msg.Kind), authID, now)
	})
	if err != nil {
		return err
	}
	g.clients[id] = c
	g.flush(now)
	return nil
}

// Leave removes a connection's avatar, if it has one
func (g *Game) Leave(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.safe("leave", func() { g.world.RemovePlayer(id, now) })
	delete(g.clients, id)
	g.flush(now)
}

// SetAuth links an account to a joined player
func (g *Game) SetAuth(id string, authID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.world.Player(id); p != nil {
		p.AuthID = authID
	}
}

// HasPlayer reports whether id has joined
func (g *Game) HasPlayer(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world.Player(id) != nil
}

// Counts reports live survivor, overseer and queue totals
func (g *Game) Counts() (survivors, overseers, queued int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world.Counts()
}

// Handle runs one inbound command for a joined player
func (g *Game) Handle(id, t string, data json.RawMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.world.Player(id) == nil {
		return
	}
	now := g.now()
	g.safe(t, func() { g.dispatch(id, t, data, now) })
	g.flush(now)
}

func (g *Game) dispatch(id, t string, data json.RawMessage, now time.Time) {
	w := g.world
	var err error
	switch t {
	case MsgInput:
		var in MoveInput
		if err = decode(data, &in); err == nil {
			err = w.ApplyInput(id, in)
		}
	case MsgPose:
		var msg PoseMsg
		if err = decode(data, &msg); err == nil {
			err = w.ApplyPose(id, msg)
		}
	case MsgPlaceBlock:
		var msg PlaceBlockMsg
		if err = decode(data, &msg); err == nil {
			if err = w.PlaceBlock(id, msg); err != nil {
				w.emit(id, MsgBlockFailed, FailMsg{Reason: reasonOf(err)})
			}
		}
	case MsgConvertRoom:
		var msg ConvertRoomMsg
		if err = decode(data, &msg); err == nil {
			if err = w.ConvertRoom(id, msg); err != nil {
				w.emit(id, MsgRoomFailed, FailMsg{Reason: reasonOf(err)})
			}
		}
	case MsgInteract:
		var msg InteractMsg
		if err = decode(data, &msg); err == nil {
			if err = w.Interact(id, msg); err != nil {
				w.emit(id, MsgInteractFail, InteractFailMsg{Type: msg.Type, Target: msg.Target, Reason: reasonOf(err)})
			}
		}
	case MsgTimedStart:
		var msg InteractMsg
		if err = decode(data, &msg); err == nil {
			it, _ := ParseInteraction(msg.Type)
			if _, err = w.StartTimedInteraction(w.Player(id), it, msg.Target, now); err != nil {
				w.emit(id, MsgInteractFail, InteractFailMsg{Type: msg.Type, Target: msg.Target, Reason: reasonOf(err)})
			}
		}
	case MsgTimedCancel:
		w.CancelTimed(id, "Cancelled")
	case MsgSleepResult:
		var msg SleepResultMsg
		if err = decode(data, &msg); err == nil {
			err = w.SleepResult(id, msg.Score)
		}
	case MsgRevive:
		if err = w.Revive(id, now); err != nil {
			w.emit(id, MsgQueueFailed, FailMsg{Reason: reasonOf(err)})
		}
	default:
		err = fmt.Errorf("%w: unknown message type %q", ErrInvalidInput, t)
	}
	if err != nil {
		g.log.Debug("command dropped", zap.String("player", id), zap.String("type", t), zap.Error(err))
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// reasonOf is the text echoed to a client for a rejected command
func reasonOf(err error) string {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason
	}
	return err.Error()
}
