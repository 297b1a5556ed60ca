package main

import (
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
	binary   [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

// types returns the envelope types received so far
func (m *mockBroadcaster) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok {
			out = append(out, env.T)
		}
	}
	return out
}

func (m *mockBroadcaster) last(t string) (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if env, ok := m.messages[i].(Envelope); ok && env.T == t {
			return env, true
		}
	}
	return Envelope{}, false
}

func (m *mockBroadcaster) count(t string) int {
	n := 0
	for _, got := range m.types() {
		if got == t {
			n++
		}
	}
	return n
}

var testEpoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *Config {
	cfg := defaultConfig()
	cfg.Database.Path = ""
	cfg.Simulation.Seed = 1
	cfg.Simulation.WeedChance = 0
	cfg.Simulation.InitialCameras = 0
	return cfg
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	return NewWorld(testConfig(), zap.NewNop())
}

func addSurvivor(t *testing.T, w *World, id string) *Player {
	t.Helper()
	p, err := w.AddPlayer(id, id, KindSurvivor, 0, testEpoch)
	if err != nil {
		t.Fatalf("add survivor %s: %v", id, err)
	}
	return p
}

func addOverseer(t *testing.T, w *World, id string) *Player {
	t.Helper()
	p, err := w.AddPlayer(id, id, KindOverseer, 0, testEpoch)
	if err != nil {
		t.Fatalf("add overseer %s: %v", id, err)
	}
	return p
}

func placeRoom(t *testing.T, w *World, by string, x, z int, room RoomType) {
	t.Helper()
	if err := w.PlaceBlock(by, PlaceBlockMsg{X: x, Z: z, Shape: string(Shape1x1), Room: string(room)}); err != nil {
		t.Fatalf("place %s at (%d,%d): %v", room, x, z, err)
	}
}

func objectsOf(w *World, kind ObjectKind) []*WorldObject {
	var out []*WorldObject
	for _, o := range w.objects.Sorted() {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

func outboxTypes(w *World, to string) []string {
	var out []string
	for _, m := range w.outbox {
		if m.to == to || m.to == "" {
			out = append(out, m.env.T)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestAddPlayerSpawnsAtSpawn(t *testing.T) {
	w := newTestWorld(t)
	p := addSurvivor(t, w, "s1")
	if p.State != StatePlaying {
		t.Errorf("expected playing, got %s", p.State)
	}
	if w.grid.CellAt(p.Pos) != SpawnCell() {
		t.Errorf("expected spawn cell, got %v", w.grid.CellAt(p.Pos))
	}
	if p.Needs != FullNeeds() {
		t.Errorf("expected full needs, got %+v", p.Needs)
	}
	types := outboxTypes(w, "s1")
	if !contains(types, MsgJoined) || !contains(types, MsgPlayerJoined) {
		t.Errorf("expected joined and player_joined, got %v", types)
	}
}

func TestAddPlayerDuplicate(t *testing.T) {
	w := newTestWorld(t)
	addSurvivor(t, w, "s1")
	if _, err := w.AddPlayer("s1", "again", KindSurvivor, 0, testEpoch); err != ErrAlreadyJoined {
		t.Errorf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestAddPlayerQueuesWhenFull(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.Simulation.MaxSurvivors = 1
	addSurvivor(t, w, "s1")
	p := addSurvivor(t, w, "s2")
	if p.State != StateWaiting {
		t.Errorf("expected waiting, got %s", p.State)
	}
	if w.queue.Position("s2") != 1 {
		t.Errorf("expected queue position 1, got %d", w.queue.Position("s2"))
	}
	if e := w.queue.Entry("s2"); e.DoorOpen() {
		t.Error("door should stay closed while the world is full")
	}
}

func TestOverseerLimit(t *testing.T) {
	w := newTestWorld(t)
	addOverseer(t, w, "o1")
	addOverseer(t, w, "o2")
	if _, err := w.AddPlayer("o3", "o3", KindOverseer, 0, testEpoch); err != ErrOverseersFull {
		t.Errorf("expected ErrOverseersFull, got %v", err)
	}
}

func TestCleanName(t *testing.T) {
	if got := cleanName("   ", KindSurvivor); got != "Survivor" {
		t.Errorf("expected Survivor, got %q", got)
	}
	if got := cleanName("abcdefghijklmnopqrstuvwxyz", KindOverseer); got != "abcdefghijklmnop" {
		t.Errorf("expected truncation to 16, got %q", got)
	}
	if got := cleanName("ééééééééééééééééé", KindSurvivor); len([]rune(got)) != 16 {
		t.Errorf("expected 16 runes, got %d", len([]rune(got)))
	}
}

func TestPlaceBlockFarmingScenario(t *testing.T) {
	w := newTestWorld(t)
	addOverseer(t, w, "o1")
	before := w.grid.Version()

	placeRoom(t, w, "o1", 1, 0, RoomFarming)

	if w.grid.Version() != before+1 {
		t.Errorf("expected version %d, got %d", before+1, w.grid.Version())
	}
	if w.grid.Cell(CellCoord{1, 0}) == nil {
		t.Fatal("expected a cell at (1,0)")
	}
	plots := 0
	for _, o := range w.objects.InCell(CellCoord{1, 0}) {
		if o.Kind == KindSoilPlot {
			plots++
		}
	}
	if plots != 4 {
		t.Errorf("expected 4 soil plots, got %d", plots)
	}
	doors := w.grid.Doorways()
	if len(doors) != 1 || doors[0] != (Doorway{A: CellCoord{0, 0}, B: CellCoord{1, 0}}) {
		t.Errorf("expected one doorway (0,0)-(1,0), got %v", doors)
	}
}

func TestPlaceBlockSurvivorRejected(t *testing.T) {
	w := newTestWorld(t)
	addSurvivor(t, w, "s1")
	err := w.PlaceBlock("s1", PlaceBlockMsg{X: 1, Z: 0, Shape: "1x1", Room: "farming"})
	if err == nil {
		t.Fatal("expected survivor build to fail")
	}
	if w.grid.Len() != 1 {
		t.Errorf("expected grid unchanged, got %d cells", w.grid.Len())
	}
}

func TestConvertRoomReplacesContent(t *testing.T) {
	w := newTestWorld(t)
	addOverseer(t, w, "o1")
	placeRoom(t, w, "o1", 1, 0, RoomFarming)

	if err := w.ConvertRoom("o1", ConvertRoomMsg{X: 1, Z: 0, Room: "dorm"}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if n := len(objectsOf(w, KindSoilPlot)); n != 0 {
		t.Errorf("expected soil plots removed, got %d", n)
	}
	if n := len(objectsOf(w, KindBed)); n != 2 {
		t.Errorf("expected 2 beds, got %d", n)
	}
	env := w.outbox[len(w.outbox)-1].env
	msg, ok := env.Data.(RoomConvertedMsg)
	if !ok || env.T != MsgRoomConverted {
		t.Fatalf("expected room_converted, got %s", env.T)
	}
	if msg.Removed != 4 || msg.Created != 2 || msg.From != "farming" || msg.To != "dorm" {
		t.Errorf("unexpected conversion report %+v", msg)
	}
}

func TestConvertRoomWakesSleeper(t *testing.T) {
	w := newTestWorld(t)
	addOverseer(t, w, "o1")
	placeRoom(t, w, "o1", 1, 0, RoomDorm)
	s := addSurvivor(t, w, "s1")
	bed := objectsOf(w, KindBed)[0]
	s.Pos = bed.Pos
	if _, err := w.ExecuteInteraction(s, InteractSleep, bed.ID, bed.Pos); err != nil {
		t.Fatalf("sleep: %v", err)
	}

	if err := w.ConvertRoom("o1", ConvertRoomMsg{X: 1, Z: 0, Room: "generic"}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if s.State != StatePlaying {
		t.Errorf("expected sleeper woken, got %s", s.State)
	}
	if s.BedID != "" {
		t.Errorf("expected bed cleared, got %s", s.BedID)
	}
}

func TestRemovePlayerDropsHeldItem(t *testing.T) {
	w := newTestWorld(t)
	s := addSurvivor(t, w, "s1")
	item := w.spawnItem(ItemMeal, s.HandPos())
	w.hold(s, item)

	w.RemovePlayer("s1", testEpoch)

	if w.Player("s1") != nil {
		t.Error("expected player removed")
	}
	if item.HolderID != "" {
		t.Errorf("expected item released, held by %s", item.HolderID)
	}
	if item.Pos.Y != 0 {
		t.Errorf("expected item on the floor, got y=%v", item.Pos.Y)
	}
}

func TestSnapshotOnlyVisiblePlayers(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.Simulation.MaxSurvivors = 1
	addSurvivor(t, w, "s1")
	addSurvivor(t, w, "s2") // queued

	snap := w.Snapshot()
	if len(snap.Players) != 1 || snap.Players[0].ID != "s1" {
		t.Errorf("expected only s1 in snapshot, got %+v", snap.Players)
	}
	if len(snap.World.Cells) != 1 {
		t.Errorf("expected the spawn cell, got %d cells", len(snap.World.Cells))
	}
	if snap.Version != w.grid.Version() {
		t.Errorf("expected version %d, got %d", w.grid.Version(), snap.Version)
	}
}

func TestApplyInputRejectsNaN(t *testing.T) {
	w := newTestWorld(t)
	s := addSurvivor(t, w, "s1")
	if err := w.ApplyInput("s1", MoveInput{MoveX: math.NaN()}); err != ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := w.ApplyInput("s1", MoveInput{MoveZ: 5, Yaw: 7}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.Input.MoveZ != 1 {
		t.Errorf("expected clamped move 1, got %v", s.Input.MoveZ)
	}
	if s.Yaw > math.Pi || s.Yaw < -math.Pi {
		t.Errorf("expected normalized yaw, got %v", s.Yaw)
	}
}

func TestHeldItemFollowsHolder(t *testing.T) {
	w := newTestWorld(t)
	s := addSurvivor(t, w, "s1")
	item := w.spawnItem(ItemRawVegetable, Vec3{})
	w.hold(s, item)
	s.Pos = Vec3{X: 2, Z: 1}

	w.StepPhysics(1.0 / 60)

	if Distance3(item.Pos, s.HandPos()) > 1e-9 {
		t.Errorf("expected item at hand %v, got %v", s.HandPos(), item.Pos)
	}
}

type recordingCameraSink struct {
	updates []string
}

func (r *recordingCameraSink) UpdateCameraPosition(id string, pos Vec3, rot float64) {
	r.updates = append(r.updates, id)
}

func TestCameraSinkNotifiedOnMove(t *testing.T) {
	w := newTestWorld(t)
	sink := &recordingCameraSink{}
	w.SetCameraSink(sink)
	cam := w.spawnItem(ItemCamera, Vec3{X: 1})
	w.camPos[cam.ID] = cam.Pos

	w.StepPhysics(1.0 / 60)
	if len(sink.updates) != 0 {
		t.Errorf("expected no update for a still camera, got %d", len(sink.updates))
	}

	s := addSurvivor(t, w, "s1")
	w.hold(s, cam)
	w.StepPhysics(1.0 / 60)
	if len(sink.updates) != 1 || sink.updates[0] != cam.ID {
		t.Errorf("expected one update for %s, got %v", cam.ID, sink.updates)
	}
}

func TestPlantGrowthNeedsWater(t *testing.T) {
	w := newTestWorld(t)
	plant := w.objects.Add(&WorldObject{Kind: KindPlant, Stage: StageSeedling})
	sprout := w.cfg.Simulation.SproutAfter.Seconds()

	w.housekeeping(sprout+1, testEpoch)
	if plant.Stage != StageSeedling {
		t.Errorf("expected dry plant to stay seedling, got %s", plant.Stage)
	}

	plant.Watered = true
	w.housekeeping(sprout, testEpoch)
	if plant.Stage != StageSprout {
		t.Errorf("expected sprout, got %s", plant.Stage)
	}
	if plant.Watered {
		t.Error("expected watering to reset at a new stage")
	}

	plant.Watered = true
	w.housekeeping(w.cfg.Simulation.MatureAfter.Seconds(), testEpoch)
	if plant.Stage != StageMature {
		t.Errorf("expected mature, got %s", plant.Stage)
	}

	w.housekeeping(w.cfg.Simulation.RotAfter.Seconds(), testEpoch)
	if plant.Stage != StageRotten {
		t.Errorf("expected rotten, got %s", plant.Stage)
	}
}

func TestWeedsStopGrowth(t *testing.T) {
	w := newTestWorld(t)
	plant := w.objects.Add(&WorldObject{Kind: KindPlant, Stage: StageSeedling, Watered: true, Weeds: true})
	w.housekeeping(w.cfg.Simulation.SproutAfter.Seconds()*2, testEpoch)
	if plant.Stage != StageSeedling || plant.Growth != 0 {
		t.Errorf("expected weeds to block growth, got %s growth=%v", plant.Stage, plant.Growth)
	}
}

func TestGroundFoodRotsAndBodiesExpire(t *testing.T) {
	w := newTestWorld(t)
	food := w.spawnItem(ItemMeal, Vec3{})
	cam := w.spawnItem(ItemCamera, Vec3{})
	body := w.objects.Add(&WorldObject{Kind: KindBody, ExpiresAt: testEpoch.Add(time.Second)})

	w.housekeeping(w.cfg.Simulation.GroundFoodRot.Seconds(), testEpoch.Add(time.Second))

	if w.objects.Get(food.ID) != nil {
		t.Error("expected ground food to rot away")
	}
	if w.objects.Get(cam.ID) == nil {
		t.Error("cameras must not rot")
	}
	if w.objects.Get(body.ID) != nil {
		t.Error("expected body to expire")
	}
}
