package main

import (
	"errors"
	"time"
)

var (
	ErrNotWaiting = errors.New("player is not waiting")
	ErrNotFirst   = errors.New("not first in queue")
	ErrDoorClosed = errors.New("join window is closed")
	ErrWorldFull  = errors.New("world is full")
)

// killPlayer handles a depleted need. It runs at most once per life: the
// Alive flag is cleared before anything else observes the player.
func (w *World) killPlayer(p *Player, cause NeedKind, now time.Time) {
	if !p.Alive {
		return
	}
	p.Alive = false
	w.CancelTimed(p.ID, "Died")
	w.leaveBed(p)
	if p.HeldID != "" {
		w.release(p, Vec3{X: p.Pos.X, Z: p.Pos.Z})
	}

	p.DeathPos = p.Pos
	p.DeathCause = cause
	p.DiedAt = now
	if err := p.SetState(StateDead); err != nil {
		w.log.Warn("death transition: " + err.Error())
		p.State = StateDead
	}

	body := w.objects.Add(&WorldObject{
		Kind:      KindBody,
		Pos:       Vec3{X: p.DeathPos.X, Z: p.DeathPos.Z},
		Rot:       p.Yaw,
		OwnerID:   p.ID,
		OwnerName: p.Name,
		Cause:     cause,
		ExpiresAt: now.Add(w.cfg.Simulation.BodyLifetime),
	})
	w.broadcast(MsgPlayerDied, DiedMsg{
		ID:    p.ID,
		Name:  p.Name,
		Cause: string(cause),
		X:     round2(p.DeathPos.X),
		Y:     round2(p.DeathPos.Y),
		Z:     round2(p.DeathPos.Z),
		Body:  body.ID,
	})
	w.record(Event{
		Type:     EventDeath,
		PlayerID: p.ID,
		AuthID:   p.AuthID,
		Detail:   string(cause),
		Value:    now.Sub(p.LifeStart).Seconds(),
	})

	p.Pos = w.waitingCentre()
	p.Vel = Vec3{}
	p.Input = MoveInput{}
	p.Available = p.Available[:0]
	_ = p.SetState(StateWaiting)
	w.queue.Enqueue(p.ID, now)
	w.notifyQueue()
	w.admitHead(now)
}

func (w *World) cooldownLeft(p *Player, now time.Time) time.Duration {
	if p.DiedAt.IsZero() {
		return 0
	}
	left := p.DiedAt.Add(w.cfg.Simulation.DeathCooldown).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// admitHead opens the join window for the head of the queue once its cooldown
// has elapsed and a survivor slot is free, and closes it again if either stops
// holding. Only the head is ever offered a slot.
func (w *World) admitHead(now time.Time) {
	head := w.queue.Head()
	if head == nil {
		return
	}
	p := w.players[head.PeerID]
	if p == nil {
		w.queue.Remove(head.PeerID)
		w.admitHead(now)
		return
	}
	eligible := w.cooldownLeft(p, now) == 0 && w.activeSurvivors() < w.cfg.Simulation.MaxSurvivors
	switch {
	case eligible && !head.DoorOpen():
		head.DoorOpenedAt = now
		w.emit(p.ID, MsgQueueReady, QueueReadyMsg{WindowMs: w.cfg.Simulation.JoinWindow.Milliseconds()})
	case !eligible && head.DoorOpen():
		head.DoorOpenedAt = time.Time{}
	}
}

// pollQueue expires an unused join window, sending the head to the back
func (w *World) pollQueue(now time.Time) {
	head := w.queue.Head()
	if head != nil && head.DoorOpen() && now.Sub(head.DoorOpenedAt) >= w.cfg.Simulation.JoinWindow {
		w.queue.MoveToBack(head.PeerID)
		w.emit(head.PeerID, MsgQueueFailed, FailMsg{Reason: "Join window expired"})
		w.record(Event{Type: EventQueueTimeout, PlayerID: head.PeerID})
		w.notifyQueue()
	}
	w.admitHead(now)
}

// Revive admits the head of the queue back into the world
func (w *World) Revive(id string, now time.Time) error {
	p := w.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.State != StateWaiting {
		return reject(ErrNotWaiting, "Not waiting")
	}
	head := w.queue.Head()
	if head == nil || head.PeerID != id {
		return reject(ErrNotFirst, "Not your turn")
	}
	if !head.DoorOpen() {
		return reject(ErrDoorClosed, "Door is closed")
	}
	if w.activeSurvivors() >= w.cfg.Simulation.MaxSurvivors {
		return reject(ErrWorldFull, "World is full")
	}
	if err := p.SetState(StatePlaying); err != nil {
		return err
	}
	w.queue.Remove(id)
	p.Alive = true
	p.Needs = FullNeeds()
	p.Pos = w.spawnPoint()
	p.Vel = Vec3{}
	p.Grounded = true
	p.SleepMul = w.cfg.Needs.SleepBaseMul
	p.LifeStart = now

	w.broadcast(MsgPlayerRevived, RevivedMsg{ID: id, Name: p.Name, X: p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z})
	w.record(Event{Type: EventRevive, PlayerID: id, AuthID: p.AuthID})
	w.notifyQueue()
	w.admitHead(now)
	return nil
}

func (w *World) notifyQueue() {
	n := w.queue.Len()
	for i, e := range w.queue.Entries() {
		w.emit(e.PeerID, MsgQueuePosition, QueuePositionMsg{Position: i + 1, Length: n})
	}
}

func (w *World) sendWaitingState(now time.Time) {
	n := w.queue.Len()
	for i, e := range w.queue.Entries() {
		p := w.players[e.PeerID]
		if p == nil {
			continue
		}
		msg := WaitingStateMsg{
			CooldownMs: w.cooldownLeft(p, now).Milliseconds(),
			Position:   i + 1,
			Length:     n,
			DoorOpen:   e.DoorOpen(),
		}
		if e.DoorOpen() {
			left := e.DoorOpenedAt.Add(w.cfg.Simulation.JoinWindow).Sub(now)
			if left > 0 {
				msg.JoinRemainingMs = left.Milliseconds()
			}
		}
		w.emit(e.PeerID, MsgWaitingState, msg)
	}
}
