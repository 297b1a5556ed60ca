package main

import (
	"errors"
	"testing"
	"time"
)

// washReady puts a survivor holding a raw vegetable at the wash station
func washReady(t *testing.T) (*World, *Player, *WorldObject, *WorldObject) {
	t.Helper()
	w := kitchenWorld(t)
	p := addSurvivor(t, w, "s1")
	st := station(t, w, StationWash)
	standAt(p, st)
	veg := w.spawnItem(ItemRawVegetable, p.HandPos())
	w.hold(p, veg)
	return w, p, st, veg
}

func lastTimed(w *World, to, typ string) (TimedMsg, bool) {
	data, ok := lastOutbox(w, to, typ)
	if !ok {
		return TimedMsg{}, false
	}
	return data.(TimedMsg), true
}

func TestTimedInteractionCompletes(t *testing.T) {
	w, p, st, veg := washReady(t)
	if _, err := w.StartTimedInteraction(p, InteractWash, st.ID, testEpoch); err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Occupant != "s1" {
		t.Errorf("expected station reserved, got %q", st.Occupant)
	}
	if err := interact(w, "s1", InteractDrop, ""); !errors.Is(err, ErrAlreadyTimed) {
		t.Errorf("expected ErrAlreadyTimed while washing, got %v", err)
	}

	other := addSurvivor(t, w, "s2")
	standAt(other, st)
	w.hold(other, w.spawnItem(ItemRawVegetable, other.HandPos()))
	if _, err := w.StartTimedInteraction(other, InteractWash, st.ID, testEpoch); !errors.Is(err, ErrOccupied) {
		t.Errorf("expected ErrOccupied on a reserved station, got %v", err)
	}

	w.PollTimed(testEpoch.Add(time.Second))
	msg, ok := lastTimed(w, "s1", MsgTimedProgress)
	if !ok || msg.Progress <= 0 || msg.Progress >= 1 {
		t.Errorf("expected partial progress, got %+v", msg)
	}
	if veg.Item != ItemRawVegetable {
		t.Fatal("vegetable washed early")
	}

	w.outbox = nil
	w.PollTimed(testEpoch.Add(w.cfg.Interaction.WashDuration))
	if veg.Item != ItemWashedVegetable {
		t.Errorf("expected washed vegetable, got %s", veg.Item)
	}
	if _, ok := lastTimed(w, "s1", MsgTimedComplete); !ok {
		t.Errorf("expected timed_complete, got %v", outboxTypes(w, "s1"))
	}
	if st.Occupant != "" || len(w.timed) != 0 {
		t.Errorf("expected station free and no timed work, got occupant=%q timed=%d", st.Occupant, len(w.timed))
	}

	w.outbox = nil
	w.PollTimed(testEpoch.Add(time.Minute))
	if len(w.outbox) != 0 {
		t.Errorf("expected a completed interaction to resolve once, got %v", outboxTypes(w, "s1"))
	}
}

func TestTimedInteractionCancelledOutOfRange(t *testing.T) {
	w, p, st, veg := washReady(t)
	if _, err := w.StartTimedInteraction(p, InteractWash, st.ID, testEpoch); err != nil {
		t.Fatalf("start: %v", err)
	}
	p.Pos = w.spawnPoint()

	w.PollTimed(testEpoch.Add(time.Second))
	msg, ok := lastTimed(w, "s1", MsgTimedCancelled)
	if !ok || msg.Reason != "Moved out of range" {
		t.Errorf("expected out-of-range cancel, got %+v", msg)
	}
	if veg.Item != ItemRawVegetable || st.Occupant != "" {
		t.Errorf("expected untouched item and free station, got %s occupant=%q", veg.Item, st.Occupant)
	}
}

func TestTimedInteractionCancelledOnDisconnect(t *testing.T) {
	w, p, st, veg := washReady(t)
	if _, err := w.StartTimedInteraction(p, InteractWash, st.ID, testEpoch); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.RemovePlayer("s1", testEpoch.Add(time.Second))
	if len(w.timed) != 0 || st.Occupant != "" {
		t.Errorf("expected timed work cleared, got timed=%d occupant=%q", len(w.timed), st.Occupant)
	}
	if veg.HolderID != "" || veg.Item != ItemRawVegetable {
		t.Errorf("expected raw vegetable dropped, got %+v", veg)
	}
	w.PollTimed(testEpoch.Add(time.Minute))
	if veg.Item != ItemRawVegetable {
		t.Error("cancelled interaction must never complete")
	}
}

func TestTimedInteractionCancelledOnDeath(t *testing.T) {
	w, p, st, _ := washReady(t)
	if _, err := w.StartTimedInteraction(p, InteractCut, station(t, w, StationCut).ID, testEpoch); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected cutting station out of range, got %v", err)
	}
	if _, err := w.StartTimedInteraction(p, InteractWash, st.ID, testEpoch); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.killPlayer(p, NeedThirst, testEpoch)
	msg, ok := lastTimed(w, "s1", MsgTimedCancelled)
	if !ok || msg.Reason != "Died" {
		t.Errorf("expected cancel on death, got %+v", msg)
	}
	if st.Occupant != "" {
		t.Error("expected station released")
	}
}

func TestStartTimedRejectsDiscreteTypes(t *testing.T) {
	w, p, _, veg := washReady(t)
	if _, err := w.StartTimedInteraction(p, InteractEat, veg.ID, testEpoch); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if w.CancelTimed("s1", "Cancelled") {
		t.Error("expected no timed interaction to cancel")
	}
}
