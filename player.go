package main

import (
	"math"
	"time"
)

const (
	PlayerWalkSpeed   = 4.0 // units/s
	PlayerSprintSpeed = 6.5
	PlayerAccel       = 30.0 // units/s² toward the wanted velocity
	PlayerJumpSpeed   = 5.0
	Gravity           = 18.0
)

// PlayerKind is the avatar category
type PlayerKind string

const (
	KindSurvivor PlayerKind = "survivor"
	KindOverseer PlayerKind = "overseer"
)

// Pose is a tracked position and orientation
type Pose struct {
	Pos Vec3 `json:"p" msgpack:"p"`
	Rot Quat `json:"r" msgpack:"r"`
}

// MoveInput is the survivor movement intent, in the avatar's local frame
type MoveInput struct {
	MoveX  float64 `json:"mx"` // strafe, -1..1
	MoveZ  float64 `json:"mz"` // forward, -1..1
	Yaw    float64 `json:"yaw"`
	Pitch  float64 `json:"pitch"`
	Jump   bool    `json:"jump"`
	Sprint bool    `json:"sprint"`
}

// Player is one connected participant
type Player struct {
	ID       string
	Name     string
	Kind     PlayerKind
	AuthID   int64 // 0 = guest
	Pos      Vec3
	Yaw      float64
	Pitch    float64 // survivor look
	Vel      Vec3
	Grounded bool
	Head     Pose // overseer tracking
	Left     Pose
	Right    Pose
	Needs    Needs
	Alive    bool
	State    LifeState
	HeldID   string
	BedID    string
	SleepMul float64
	Input    MoveInput

	Available []AvailableInteraction

	JoinedAt   time.Time
	LifeStart  time.Time
	DiedAt     time.Time
	DeathPos   Vec3
	DeathCause NeedKind
}

// NewPlayer creates a player standing at pos
func NewPlayer(id, name string, kind PlayerKind, pos Vec3) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Pos:      pos,
		Grounded: true,
		Needs:    FullNeeds(),
		Alive:    true,
		State:    StatePlaying,
		SleepMul: 1,
	}
}

// Update integrates movement for one physics step (dt in seconds).
// Active survivors collide with grid walls; waiting survivors are kept inside
// the waiting area box.
func (p *Player) Update(dt float64, g *WorldGrid, waitCentre Vec3, waitHalf float64) {
	if p.Kind != KindSurvivor || p.State == StateSleeping || p.State == StateDead {
		p.Vel = Vec3{}
		return
	}

	speed := PlayerWalkSpeed
	if p.Input.Sprint {
		speed = PlayerSprintSpeed
	}
	mx, mz := p.Input.MoveX, p.Input.MoveZ
	if l := math.Hypot(mx, mz); l > 1 {
		mx, mz = mx/l, mz/l
	}
	// yaw 0 faces -Z
	sin, cos := math.Sincos(p.Yaw)
	wantX := (mx*cos - mz*sin) * speed
	wantZ := (-mx*sin - mz*cos) * speed

	step := PlayerAccel * dt
	p.Vel.X += Clamp(wantX-p.Vel.X, -step, step)
	p.Vel.Z += Clamp(wantZ-p.Vel.Z, -step, step)

	if p.Input.Jump && p.Grounded {
		p.Vel.Y = PlayerJumpSpeed
		p.Grounded = false
	}
	p.Vel.Y -= Gravity * dt
	p.Pos.Y += p.Vel.Y * dt
	if p.Pos.Y <= 0 {
		p.Pos.Y = 0
		p.Vel.Y = 0
		p.Grounded = true
	}

	delta := Vec3{X: p.Vel.X * dt, Z: p.Vel.Z * dt}
	if p.State == StateWaiting {
		p.Pos.X = Clamp(p.Pos.X+delta.X, waitCentre.X-waitHalf, waitCentre.X+waitHalf)
		p.Pos.Z = Clamp(p.Pos.Z+delta.Z, waitCentre.Z-waitHalf, waitCentre.Z+waitHalf)
		return
	}
	moved := resolveMove(g, p.Pos, delta, PlayerRadius)
	if moved.X == p.Pos.X {
		p.Vel.X = 0
	}
	if moved.Z == p.Pos.Z {
		p.Vel.Z = 0
	}
	p.Pos.X, p.Pos.Z = moved.X, moved.Z
}

// Eye returns the point interaction range is measured from
func (p *Player) Eye(cfg InteractionConfig) Vec3 {
	if p.Kind == KindOverseer {
		return p.Head.Pos
	}
	return p.Pos.Add(Vec3{Y: cfg.SurvivorEye})
}

// HandPos is where a held item is carried
func (p *Player) HandPos() Vec3 {
	if p.Kind == KindOverseer {
		return p.Right.Pos
	}
	sin, cos := math.Sincos(p.Yaw)
	return p.Pos.Add(Vec3{X: -sin * 0.5, Y: 1.2, Z: -cos * 0.5})
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	s := PlayerState{
		ID:       p.ID,
		Name:     p.Name,
		Kind:     string(p.Kind),
		X:        round2(p.Pos.X),
		Y:        round2(p.Pos.Y),
		Z:        round2(p.Pos.Z),
		Yaw:      round2(p.Yaw),
		VX:       round2(p.Vel.X),
		VY:       round2(p.Vel.Y),
		VZ:       round2(p.Vel.Z),
		Grounded: p.Grounded,
		State:    string(p.State),
		Held:     p.HeldID,
		Avail:    p.Available,
	}
	switch p.Kind {
	case KindSurvivor:
		s.Pitch = round2(p.Pitch)
		n := p.Needs
		s.Needs = &n
	case KindOverseer:
		s.Head = &p.Head
		s.Left = &p.Left
		s.Right = &p.Right
	}
	return s
}
