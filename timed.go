package main

import (
	"sort"
	"time"
)

// TimedInteraction is an in-flight wash or cut, resolved by PollTimed
type TimedInteraction struct {
	PlayerID string
	Type     InteractionType
	TargetID string
	Start    time.Time
	Duration time.Duration
}

func (t *TimedInteraction) progress(now time.Time) float64 {
	if t.Duration <= 0 {
		return 1
	}
	return Clamp(float64(now.Sub(t.Start))/float64(t.Duration), 0, 1)
}

func (t *TimedInteraction) remaining(now time.Time) time.Duration {
	r := t.Start.Add(t.Duration).Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

func (w *World) timedDuration(t InteractionType) time.Duration {
	switch t {
	case InteractWash:
		return w.cfg.Interaction.WashDuration
	case InteractCut:
		return w.cfg.Interaction.CutDuration
	}
	return 0
}

// StartTimedInteraction validates like CanInteract and records the interaction.
// The station is reserved for the player until completion or cancel.
func (w *World) StartTimedInteraction(p *Player, t InteractionType, targetID string, now time.Time) (*TimedInteraction, error) {
	if !t.Timed() {
		return nil, reject(ErrInvalidInput, "Not a timed interaction")
	}
	target, err := w.validate(p, t, targetID, Vec3{})
	if err != nil {
		return nil, err
	}
	ti := &TimedInteraction{
		PlayerID: p.ID,
		Type:     t,
		TargetID: targetID,
		Start:    now,
		Duration: w.timedDuration(t),
	}
	w.timed[p.ID] = ti
	target.Occupant = p.ID
	target.Progress = 0
	w.emit(p.ID, MsgTimedProgress, TimedMsg{
		Type:      string(t),
		Target:    targetID,
		Remaining: ti.Duration.Milliseconds(),
	})
	return ti, nil
}

// CancelTimed drops the player's timed interaction, if any, and tells them why
func (w *World) CancelTimed(playerID, reason string) bool {
	ti, ok := w.timed[playerID]
	if !ok {
		return false
	}
	delete(w.timed, playerID)
	w.releaseStation(ti)
	w.emit(playerID, MsgTimedCancelled, TimedMsg{
		Type:   string(ti.Type),
		Target: ti.TargetID,
		Reason: reason,
	})
	return true
}

func (w *World) releaseStation(ti *TimedInteraction) {
	if st := w.objects.Get(ti.TargetID); st != nil && st.Occupant == ti.PlayerID {
		st.Occupant = ""
		st.Progress = 0
	}
}

// PollTimed resolves every timed interaction exactly once: it is either
// completed, cancelled, or left running with a progress update.
func (w *World) PollTimed(now time.Time) {
	ids := make([]string, 0, len(w.timed))
	for id := range w.timed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ti := w.timed[id]
		p := w.players[id]
		target := w.objects.Get(ti.TargetID)

		if reason := w.timedBroken(p, ti, target); reason != "" {
			w.CancelTimed(id, reason)
			continue
		}

		if now.Sub(ti.Start) < ti.Duration {
			target.Progress = ti.progress(now)
			w.emit(id, MsgTimedProgress, TimedMsg{
				Type:      string(ti.Type),
				Target:    ti.TargetID,
				Progress:  round2(target.Progress),
				Remaining: ti.remaining(now).Milliseconds(),
			})
			continue
		}

		// remove the record first so validation does not see the player as busy
		delete(w.timed, id)
		w.releaseStation(ti)
		res, err := w.ExecuteInteraction(p, ti.Type, ti.TargetID, Vec3{})
		if err != nil {
			w.emit(id, MsgTimedCancelled, TimedMsg{
				Type:   string(ti.Type),
				Target: ti.TargetID,
				Reason: err.Error(),
			})
			continue
		}
		w.emit(id, MsgTimedComplete, TimedMsg{
			Type:     string(ti.Type),
			Target:   ti.TargetID,
			Progress: 1,
		})
		w.record(Event{Type: EventInteraction, PlayerID: id, Detail: string(res.Type)})
	}
}

func (w *World) timedBroken(p *Player, ti *TimedInteraction, target *WorldObject) string {
	switch {
	case p == nil || !p.Alive || p.State != StatePlaying:
		return "Interrupted"
	case target == nil:
		return "Station not found"
	case Distance3(p.Eye(w.cfg.Interaction), target.Pos) > w.cfg.Interaction.Radius:
		return "Moved out of range"
	}
	if held := w.objects.Get(p.HeldID); held == nil {
		return "Item lost"
	}
	return ""
}
