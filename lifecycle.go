package main

import (
	"errors"
	"fmt"
)

// LifeState is the coarse mode of a player
type LifeState string

const (
	StatePlaying  LifeState = "playing"
	StateSleeping LifeState = "sleeping"
	StateDead     LifeState = "dead"
	StateWaiting  LifeState = "waiting" // queued for admission
)

var ErrIllegalTransition = errors.New("illegal life-cycle transition")

var lifeTransitions = map[LifeState][]LifeState{
	StatePlaying:  {StateSleeping, StateDead},
	StateSleeping: {StatePlaying, StateDead},
	StateDead:     {StateWaiting},
	StateWaiting:  {StatePlaying},
}

// CanTransition reports whether from -> to is in the transition table
func CanTransition(from, to LifeState) bool {
	for _, s := range lifeTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Active states occupy a world slot and are visible to other players
func (s LifeState) Active() bool {
	return s == StatePlaying || s == StateSleeping
}

// SetState moves the player along the transition table
func (p *Player) SetState(to LifeState) error {
	if !CanTransition(p.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.State, to)
	}
	p.State = to
	return nil
}
