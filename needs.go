package main

// NeedKind names one survival counter
type NeedKind string

const (
	NeedHunger NeedKind = "hunger"
	NeedThirst NeedKind = "thirst"
	NeedRest   NeedKind = "rest"
)

const NeedMax = 100.0

// Needs are the survival counters of a survivor, each in [0, NeedMax]
type Needs struct {
	Hunger float64 `json:"hunger" msgpack:"h"`
	Thirst float64 `json:"thirst" msgpack:"t"`
	Rest   float64 `json:"rest" msgpack:"r"`
}

// FullNeeds is the state after joining or reviving
func FullNeeds() Needs {
	return Needs{Hunger: NeedMax, Thirst: NeedMax, Rest: NeedMax}
}

// Tick advances the counters by dt seconds.
// Only playing and sleeping survivors change. While sleeping rest restores
// at RestRestore*sleepMul instead of decaying. It returns the depleted need,
// in priority order hunger > thirst > rest, or "" if every need is above zero.
func (n *Needs) Tick(dt float64, cfg NeedsConfig, state LifeState, sleepMul float64) NeedKind {
	switch state {
	case StatePlaying:
		n.Hunger -= cfg.HungerDecay * dt
		n.Thirst -= cfg.ThirstDecay * dt
		n.Rest -= cfg.RestDecay * dt
	case StateSleeping:
		n.Hunger -= cfg.HungerDecay * dt
		n.Thirst -= cfg.ThirstDecay * dt
		n.Rest += cfg.RestRestore * sleepMul * dt
	default:
		return ""
	}
	n.clamp()
	return n.Depleted()
}

// Depleted reports the highest-priority need at or below zero
func (n *Needs) Depleted() NeedKind {
	switch {
	case n.Hunger <= 0:
		return NeedHunger
	case n.Thirst <= 0:
		return NeedThirst
	case n.Rest <= 0:
		return NeedRest
	}
	return ""
}

// Restore adds amount to one need, capped at NeedMax
func (n *Needs) Restore(kind NeedKind, amount float64) {
	switch kind {
	case NeedHunger:
		n.Hunger += amount
	case NeedThirst:
		n.Thirst += amount
	case NeedRest:
		n.Rest += amount
	}
	n.clamp()
}

func (n *Needs) clamp() {
	n.Hunger = Clamp(n.Hunger, 0, NeedMax)
	n.Thirst = Clamp(n.Thirst, 0, NeedMax)
	n.Rest = Clamp(n.Rest, 0, NeedMax)
}

// SleepMultiplier maps a mini-game score in [0,1] onto [base, max]
func SleepMultiplier(score float64, cfg NeedsConfig) float64 {
	if !isFinite(score) {
		return cfg.SleepBaseMul
	}
	m := cfg.SleepBaseMul + score*(cfg.SleepMaxMul-cfg.SleepBaseMul)
	return Clamp(m, cfg.SleepBaseMul, cfg.SleepMaxMul)
}
