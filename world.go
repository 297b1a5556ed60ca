package main

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const maxNameLen = 16

var (
	ErrAlreadyJoined = errors.New("already joined")
	ErrOverseersFull = errors.New("overseer slots full")
	ErrUnknownPlayer = errors.New("unknown player")
)

// CameraSink receives camera item movement
type CameraSink interface {
	UpdateCameraPosition(id string, pos Vec3, rot float64)
}

type logCameraSink struct {
	log *zap.Logger
}

func (s logCameraSink) UpdateCameraPosition(id string, pos Vec3, rot float64) {
	s.log.Debug("camera moved", zap.String("id", id),
		zap.Float64("x", pos.X), zap.Float64("y", pos.Y), zap.Float64("z", pos.Z),
		zap.Float64("rot", rot))
}

// outMsg is a message queued by the simulation; an empty to means everyone
type outMsg struct {
	to  string
	env Envelope
}

// World is the whole simulation state. It is not safe for concurrent use;
// Game serializes every call.
type World struct {
	cfg     *Config
	log     *zap.Logger
	grid    *WorldGrid
	objects *ObjectTable
	content ContentFactory
	cameras CameraSink
	players map[string]*Player
	queue   AdmissionQueue
	timed   map[string]*TimedInteraction
	index   *SpatialIndex
	rng     *rand.Rand
	tick    uint64

	camPos map[string]Vec3
	buf    []*WorldObject
	outbox []outMsg
	events []Event
}

// NewWorld builds the seed world: the spawn room plus the starting cameras
func NewWorld(cfg *Config, log *zap.Logger) *World {
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	grid := NewWorldGrid(cfg.Simulation.CellSize)
	objects := NewObjectTable()
	w := &World{
		cfg:     cfg,
		log:     log,
		grid:    grid,
		objects: objects,
		content: newCatalogContent(defaultCatalog, objects, grid),
		cameras: logCameraSink{log: log},
		players: make(map[string]*Player),
		timed:   make(map[string]*TimedInteraction),
		index:   NewSpatialIndex(cfg.Simulation.CellSize),
		rng:     rand.New(rand.NewSource(seed)),
		camPos:  make(map[string]Vec3),
	}
	w.content.CreateRoomContent(RoomGeneric, SpawnCell())

	centre := grid.CellCenter(SpawnCell())
	for i := 0; i < cfg.Simulation.InitialCameras; i++ {
		cam := w.spawnItem(ItemCamera, Vec3{X: centre.X - 2 + float64(i), Z: centre.Z + 2})
		w.camPos[cam.ID] = cam.Pos
	}
	return w
}

// SetContentFactory swaps the room content collaborator
func (w *World) SetContentFactory(f ContentFactory) { w.content = f }

// SetCameraSink swaps the camera collaborator
func (w *World) SetCameraSink(s CameraSink) { w.cameras = s }

// Player returns the player with id, or nil
func (w *World) Player(id string) *Player { return w.players[id] }

// Objects exposes the object table
func (w *World) Objects() *ObjectTable { return w.objects }

// Grid exposes the world grid
func (w *World) Grid() *WorldGrid { return w.grid }

// Queue exposes the admission queue
func (w *World) Queue() *AdmissionQueue { return &w.queue }

func (w *World) emit(to, t string, data interface{}) {
	w.outbox = append(w.outbox, outMsg{to: to, env: Envelope{T: t, Data: data}})
}

func (w *World) broadcast(t string, data interface{}) {
	w.emit("", t, data)
}

// drain hands over queued messages and events
func (w *World) drain() ([]outMsg, []Event) {
	out, ev := w.outbox, w.events
	w.outbox, w.events = nil, nil
	return out, ev
}

func (w *World) waitingCentre() Vec3 {
	return Vec3{X: w.cfg.Simulation.WaitingAreaX, Z: w.cfg.Simulation.WaitingAreaZ}
}

func (w *World) spawnPoint() Vec3 {
	c := w.grid.CellCenter(SpawnCell())
	return Vec3{X: c.X, Z: c.Z}
}

func (w *World) activeSurvivors() int {
	n := 0
	for _, p := range w.players {
		if p.Kind == KindSurvivor && p.State.Active() {
			n++
		}
	}
	return n
}

func (w *World) overseers() int {
	n := 0
	for _, p := range w.players {
		if p.Kind == KindOverseer {
			n++
		}
	}
	return n
}

func (w *World) sortedPlayers() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cleanName(name string, kind PlayerKind) string {
	name = strings.TrimSpace(name)
	if name == "" {
		if kind == KindOverseer {
			return "Overseer"
		}
		return "Survivor"
	}
	for utf8.RuneCountInString(name) > maxNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// AddPlayer creates an avatar for a connection. Survivors joining a full world
// (or behind a non-empty queue) start in the waiting area, queued.
func (w *World) AddPlayer(id, name string, kind PlayerKind, authID int64, now time.Time) (*Player, error) {
	if _, ok := w.players[id]; ok {
		return nil, ErrAlreadyJoined
	}
	if kind != KindOverseer {
		kind = KindSurvivor
	}
	if kind == KindOverseer && w.overseers() >= w.cfg.Simulation.MaxOverseers {
		return nil, ErrOverseersFull
	}

	p := NewPlayer(id, cleanName(name, kind), kind, w.spawnPoint())
	p.AuthID = authID
	p.JoinedAt = now
	p.LifeStart = now
	p.SleepMul = w.cfg.Needs.SleepBaseMul
	if kind == KindOverseer {
		p.Head.Pos = p.Pos.Add(Vec3{Y: w.cfg.Interaction.OverseerEye})
		p.Head.Rot.W = 1
		p.Left, p.Right = p.Head, p.Head
	}

	queued := kind == KindSurvivor &&
		(w.activeSurvivors() >= w.cfg.Simulation.MaxSurvivors || w.queue.Len() > 0)
	if queued {
		p.State = StateWaiting
		p.Pos = w.waitingCentre()
	}
	w.players[id] = p

	w.broadcast(MsgPlayerJoined, PlayerEventMsg{ID: id, Name: p.Name, Kind: string(kind)})
	w.emit(id, MsgJoined, JoinedMsg{ID: id, Kind: string(kind), State: string(p.State), Snapshot: w.Snapshot()})
	w.record(Event{Type: EventJoin, PlayerID: id, Detail: string(kind)})

	if queued {
		w.queue.Enqueue(id, now)
		w.notifyQueue()
		w.admitHead(now)
	}
	return p, nil
}

// RemovePlayer tears down a disconnected player. The held item is dropped first.
func (w *World) RemovePlayer(id string, now time.Time) {
	p, ok := w.players[id]
	if !ok {
		return
	}
	w.CancelTimed(id, "Disconnected")
	w.leaveBed(p)
	if p.HeldID != "" {
		w.release(p, w.dropPoint(p, p.Pos))
	}
	wasQueued := w.queue.Remove(id)

	lived := 0.0
	if p.Kind == KindSurvivor && p.State.Active() {
		lived = now.Sub(p.LifeStart).Seconds()
	}
	delete(w.players, id)

	w.broadcast(MsgPlayerLeft, PlayerEventMsg{ID: id, Name: p.Name, Kind: string(p.Kind)})
	w.record(Event{Type: EventLeave, PlayerID: id, AuthID: p.AuthID, Value: lived})

	if wasQueued {
		w.notifyQueue()
	}
	w.admitHead(now)
}

func (w *World) leaveBed(p *Player) {
	if p.BedID == "" {
		return
	}
	if bed := w.objects.Get(p.BedID); bed != nil && bed.Occupant == p.ID {
		bed.Occupant = ""
	}
	p.BedID = ""
}

// ApplyInput stores survivor movement intent; the physics tick consumes it
func (w *World) ApplyInput(id string, in MoveInput) error {
	p := w.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Kind != KindSurvivor {
		return ErrSurvivorOnly
	}
	if !isFinite(in.MoveX) || !isFinite(in.MoveZ) || !isFinite(in.Yaw) || !isFinite(in.Pitch) {
		return ErrInvalidInput
	}
	in.MoveX = Clamp(in.MoveX, -1, 1)
	in.MoveZ = Clamp(in.MoveZ, -1, 1)
	in.Yaw = NormalizeAngle(in.Yaw)
	in.Pitch = Clamp(in.Pitch, -math.Pi/2, math.Pi/2)
	p.Input = in
	p.Yaw = in.Yaw
	p.Pitch = in.Pitch
	return nil
}

func poseFinite(p Pose) bool {
	q := p.Rot
	return p.Pos.IsFinite() && isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}

// ApplyPose stores overseer head and hand tracking
func (w *World) ApplyPose(id string, msg PoseMsg) error {
	p := w.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Kind != KindOverseer {
		return ErrOverseerOnly
	}
	if !poseFinite(msg.Head) || !poseFinite(msg.Left) || !poseFinite(msg.Right) {
		return ErrInvalidInput
	}
	p.Head, p.Left, p.Right = msg.Head, msg.Left, msg.Right
	p.Pos = Vec3{X: msg.Head.Pos.X, Z: msg.Head.Pos.Z}
	return nil
}

// PlaceBlock grows the grid on behalf of an overseer and furnishes the new cells
func (w *World) PlaceBlock(id string, msg PlaceBlockMsg) error {
	p := w.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Kind != KindOverseer {
		return reject(ErrOverseerOnly, "Only overseers can build")
	}
	room, ok := ParseRoomType(msg.Room)
	if !ok {
		return ErrInvalidRoomType
	}
	cells, err := w.grid.PlaceBlock(msg.X, msg.Z, BlockShape(msg.Shape), msg.Rot, room)
	if err != nil {
		return err
	}
	for _, c := range cells {
		w.content.CreateRoomContent(room, c)
	}
	w.broadcast(MsgBlockPlaced, BlockPlacedMsg{
		Cells:   cells,
		Shape:   msg.Shape,
		Rot:     msg.Rot,
		Room:    string(room),
		Version: w.grid.Version(),
		By:      id,
	})
	w.record(Event{Type: EventBlockPlaced, PlayerID: id, AuthID: p.AuthID, Detail: string(room)})
	return nil
}

// ConvertRoom changes a block's room type, replacing its furniture. Sleepers
// in removed beds wake up and timed work on removed stations is cancelled.
func (w *World) ConvertRoom(id string, msg ConvertRoomMsg) error {
	p := w.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Kind != KindOverseer {
		return reject(ErrOverseerOnly, "Only overseers can convert rooms")
	}
	room, ok := ParseRoomType(msg.Room)
	if !ok {
		return ErrInvalidRoomType
	}
	cells, old, err := w.grid.SetRoomType(msg.X, msg.Z, room)
	if err != nil {
		return err
	}
	removed, created := 0, 0
	for _, c := range cells {
		for _, o := range w.objects.InCell(c) {
			if o.Occupant == "" {
				continue
			}
			occ := w.players[o.Occupant]
			switch o.Kind {
			case KindStation:
				w.CancelTimed(o.Occupant, "Room converted")
			case KindBed:
				if occ != nil && occ.State == StateSleeping {
					_ = occ.SetState(StatePlaying)
					occ.SleepMul = w.cfg.Needs.SleepBaseMul
				}
				if occ != nil {
					w.leaveBed(occ)
				}
			}
		}
		removed += w.content.CleanupRoomContent(old, c)
		created += len(w.content.CreateRoomContent(room, c))
	}
	w.broadcast(MsgRoomConverted, RoomConvertedMsg{
		Cells:   cells,
		From:    string(old),
		To:      string(room),
		Version: w.grid.Version(),
		Removed: removed,
		Created: created,
	})
	w.record(Event{Type: EventRoomConverted, PlayerID: id, AuthID: p.AuthID, Detail: string(old) + ">" + string(room)})
	return nil
}

// SleepResult applies the sleep mini-game score to a sleeping survivor
func (w *World) SleepResult(id string, score float64) error {
	p := w.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.State != StateSleeping {
		return reject(ErrNotSleeping, "Not sleeping")
	}
	p.SleepMul = SleepMultiplier(score, w.cfg.Needs)
	return nil
}

// Interact runs a discrete interaction and reports the outcome to the requester
func (w *World) Interact(id string, msg InteractMsg) error {
	p := w.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	t, ok := ParseInteraction(msg.Type)
	if !ok {
		return reject(ErrUnknownInteraction, "Unknown interaction")
	}
	if t.Timed() {
		return reject(ErrInvalidInput, "Use timed_start for "+string(t))
	}
	var pos Vec3
	if msg.Pos != nil {
		pos = *msg.Pos
	}
	res, err := w.ExecuteInteraction(p, t, msg.Target, pos)
	if err != nil {
		return err
	}
	w.emit(id, MsgInteractOK, InteractResultMsg{Type: string(t), Target: msg.Target, Held: res.HeldID})
	w.record(Event{Type: EventInteraction, PlayerID: id, AuthID: p.AuthID, Detail: string(t)})
	if res.Consumed == ItemMeal {
		w.record(Event{Type: EventMealEaten, PlayerID: id, AuthID: p.AuthID})
	}
	return nil
}

// StepPhysics advances movement and carried objects by dt seconds
func (w *World) StepPhysics(dt float64) {
	centre := w.waitingCentre()
	half := w.cfg.Simulation.WaitingAreaSize / 2
	for _, p := range w.players {
		p.Update(dt, w.grid, centre, half)
	}
	for _, o := range w.objects.Sorted() {
		if o.Kind != KindItem {
			continue
		}
		if holder := w.players[o.HolderID]; holder != nil {
			o.Pos = holder.HandPos()
			o.Rot = holder.Yaw
		}
		if o.Item != ItemCamera {
			continue
		}
		if last, ok := w.camPos[o.ID]; !ok || last != o.Pos {
			w.camPos[o.ID] = o.Pos
			w.cameras.UpdateCameraPosition(o.ID, o.Pos, o.Rot)
		}
	}
}

// StepNetwork runs the slow cadence: needs, housekeeping, timed work,
// admission and the available-interaction caches.
func (w *World) StepNetwork(dt float64, now time.Time) {
	w.tick++
	for _, p := range w.sortedPlayers() {
		if p.Kind != KindSurvivor || !p.Alive || !p.State.Active() {
			continue
		}
		if cause := p.Needs.Tick(dt, w.cfg.Needs, p.State, p.SleepMul); cause != "" {
			w.killPlayer(p, cause, now)
		}
	}
	w.housekeeping(dt, now)
	w.PollTimed(now)
	w.pollQueue(now)
	w.refreshAvailable()
	w.sendWaitingState(now)
}

func (w *World) housekeeping(dt float64, now time.Time) {
	sim := w.cfg.Simulation
	for _, o := range w.objects.Sorted() {
		switch o.Kind {
		case KindPlant:
			w.growPlant(o, dt)
		case KindItem:
			if o.HolderID != "" || !o.Item.Food() {
				continue
			}
			o.Ground += dt
			if o.Ground >= sim.GroundFoodRot.Seconds() {
				w.objects.Remove(o.ID)
			}
		case KindBody:
			if !now.Before(o.ExpiresAt) {
				w.objects.Remove(o.ID)
			}
		}
	}
}

// growPlant advances a plant. Growth only accrues while watered and weed free;
// each stage needs a fresh watering.
func (w *World) growPlant(o *WorldObject, dt float64) {
	sim := w.cfg.Simulation
	switch o.Stage {
	case StageSeedling, StageSprout:
		if !o.Weeds && w.rng.Float64() < sim.WeedChance*dt {
			o.Weeds = true
		}
		if o.Weeds || !o.Watered {
			return
		}
		o.Growth += dt
		if o.Stage == StageSeedling && o.Growth >= sim.SproutAfter.Seconds() {
			o.Stage, o.Growth, o.Watered = StageSprout, 0, false
		} else if o.Stage == StageSprout && o.Growth >= sim.MatureAfter.Seconds() {
			o.Stage, o.Growth, o.Watered = StageMature, 0, false
		}
	case StageMature:
		o.Ripe += dt
		if o.Ripe >= sim.RotAfter.Seconds() {
			o.Stage = StageRotten
		}
	}
}

func (w *World) refreshAvailable() {
	w.index.Clear()
	for _, o := range w.objects.Sorted() {
		w.index.Insert(o)
	}
	for _, p := range w.players {
		w.buf = w.computeAvailable(p, w.buf)
	}
}

// Snapshot is the state every visible player receives this tick
func (w *World) Snapshot() StateUpdate {
	s := StateUpdate{
		Version: w.grid.Version(),
		Tick:    w.tick,
		Players: []PlayerState{},
		World: WorldState{
			CellSize: w.grid.CellSize(),
			Doorways: w.grid.Doorways(),
		},
	}
	for _, p := range w.sortedPlayers() {
		if p.State.Active() {
			s.Players = append(s.Players, p.ToState())
		}
	}
	for _, c := range w.grid.SortedCells() {
		cell := w.grid.Cell(c)
		s.World.Cells = append(s.World.Cells, CellState{
			X:     c.X,
			Z:     c.Z,
			Block: cell.BlockID,
			Shape: string(cell.Shape),
			Rot:   cell.Rotation,
			Room:  string(cell.Room),
			Group: cell.Group,
		})
	}
	objs := w.objects.Sorted()
	s.Objects = make([]ObjectState, 0, len(objs))
	for _, o := range objs {
		s.Objects = append(s.Objects, o.ToState())
	}
	return s
}

// Visible returns the ids of players that receive state broadcasts
func (w *World) Visible() []string {
	var ids []string
	for _, p := range w.sortedPlayers() {
		if p.State.Active() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Counts reports live totals for the stats endpoint
func (w *World) Counts() (survivors, overseers, queued int) {
	return w.activeSurvivors(), w.overseers(), w.queue.Len()
}
