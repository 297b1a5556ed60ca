package main

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to LifeState
		want     bool
	}{
		{StatePlaying, StateSleeping, true},
		{StatePlaying, StateDead, true},
		{StateSleeping, StatePlaying, true},
		{StateSleeping, StateDead, true},
		{StateDead, StateWaiting, true},
		{StateWaiting, StatePlaying, true},
		{StateDead, StatePlaying, false},
		{StateWaiting, StateSleeping, false},
		{StatePlaying, StateWaiting, false},
		{StatePlaying, StatePlaying, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestSetStateRejectsIllegal(t *testing.T) {
	p := NewPlayer("p", "p", KindSurvivor, Vec3{})
	if err := p.SetState(StateWaiting); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
	if p.State != StatePlaying {
		t.Errorf("state must not change on a rejected transition, got %s", p.State)
	}
	if err := p.SetState(StateDead); err != nil {
		t.Fatalf("playing -> dead: %v", err)
	}
	if err := p.SetState(StateWaiting); err != nil {
		t.Fatalf("dead -> waiting: %v", err)
	}
}

func TestActiveStates(t *testing.T) {
	for s, want := range map[LifeState]bool{
		StatePlaying:  true,
		StateSleeping: true,
		StateDead:     false,
		StateWaiting:  false,
	} {
		if s.Active() != want {
			t.Errorf("%s: expected active=%v", s, want)
		}
	}
}
