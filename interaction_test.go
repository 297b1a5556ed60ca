package main

import (
	"errors"
	"testing"
)

func standAt(p *Player, o *WorldObject) {
	p.Pos = Vec3{X: o.Pos.X, Z: o.Pos.Z}
}

func interact(w *World, id string, t InteractionType, target string) error {
	return w.Interact(id, InteractMsg{Type: string(t), Target: target})
}

func station(t *testing.T, w *World, kind StationKind) *WorldObject {
	t.Helper()
	for _, o := range objectsOf(w, KindStation) {
		if o.Station == kind {
			return o
		}
	}
	t.Fatalf("no %s station", kind)
	return nil
}

func rejectReason(err error) string {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

// kitchenWorld has a farming room east of spawn, processing west and a cafeteria north
func kitchenWorld(t *testing.T) *World {
	t.Helper()
	w := newTestWorld(t)
	addOverseer(t, w, "o1")
	placeRoom(t, w, "o1", 1, 0, RoomFarming)
	placeRoom(t, w, "o1", -1, 0, RoomProcessing)
	placeRoom(t, w, "o1", 0, 1, RoomCafeteria)
	return w
}

func TestFoodChainToMeal(t *testing.T) {
	w := kitchenWorld(t)
	p := addSurvivor(t, w, "s1")
	p.Needs.Hunger = 10

	plot := objectsOf(w, KindSoilPlot)[0]
	standAt(p, plot)
	if err := interact(w, "s1", InteractPlant, plot.ID); err != nil {
		t.Fatalf("plant: %v", err)
	}
	plant := w.objects.Get(plot.PlantID)
	if plant == nil || plant.Stage != StageSeedling {
		t.Fatalf("expected a seedling on the plot, got %+v", plant)
	}
	if err := interact(w, "s1", InteractPlant, plot.ID); !errors.Is(err, ErrOccupied) {
		t.Errorf("expected ErrOccupied replanting, got %v", err)
	}
	if err := interact(w, "s1", InteractHarvest, plant.ID); !errors.Is(err, ErrWrongStage) {
		t.Errorf("expected ErrWrongStage harvesting a seedling, got %v", err)
	}
	if err := interact(w, "s1", InteractWater, plant.ID); err != nil {
		t.Fatalf("water: %v", err)
	}
	if !plant.Watered {
		t.Error("expected plant watered")
	}

	plant.Stage = StageMature
	if err := interact(w, "s1", InteractHarvest, plant.ID); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if plot.PlantID != "" || w.objects.Get(plant.ID) != nil {
		t.Error("expected harvest to clear the plot")
	}
	veg := w.objects.Get(p.HeldID)
	if veg == nil || veg.Item != ItemRawVegetable {
		t.Fatalf("expected a raw vegetable in hand, got %+v", veg)
	}

	steps := []struct {
		kind StationKind
		t    InteractionType
		want ItemKind
	}{
		{StationWash, InteractWash, ItemWashedVegetable},
		{StationCut, InteractCut, ItemChoppedVegetable},
		{StationAssemble, InteractAssemble, ItemMeal},
	}
	for _, s := range steps {
		st := station(t, w, s.kind)
		standAt(p, st)
		if _, err := w.ExecuteInteraction(p, s.t, st.ID, Vec3{}); err != nil {
			t.Fatalf("%s: %v", s.t, err)
		}
		if veg.Item != s.want {
			t.Errorf("%s: expected %s, got %s", s.t, s.want, veg.Item)
		}
	}

	if err := interact(w, "s1", InteractEat, veg.ID); err != nil {
		t.Fatalf("eat: %v", err)
	}
	if want := 10 + w.cfg.Interaction.MealValue; p.Needs.Hunger != want {
		t.Errorf("expected hunger %f, got %f", want, p.Needs.Hunger)
	}
	if p.HeldID != "" || w.objects.Get(veg.ID) != nil {
		t.Error("expected the meal consumed")
	}
	meals := 0
	for _, e := range w.events {
		if e.Type == EventMealEaten && e.PlayerID == "s1" {
			meals++
		}
	}
	if meals != 1 {
		t.Errorf("expected one meal_eaten event, got %d", meals)
	}
}

func TestDoubleHarvestRejected(t *testing.T) {
	w := kitchenWorld(t)
	a := addSurvivor(t, w, "s1")
	b := addSurvivor(t, w, "s2")
	plot := objectsOf(w, KindSoilPlot)[0]
	standAt(a, plot)
	standAt(b, plot)
	if err := interact(w, "s1", InteractPlant, plot.ID); err != nil {
		t.Fatalf("plant: %v", err)
	}
	plant := w.objects.Get(plot.PlantID)
	plant.Stage = StageMature

	if err := interact(w, "s1", InteractHarvest, plant.ID); err != nil {
		t.Fatalf("first harvest: %v", err)
	}
	err := interact(w, "s2", InteractHarvest, plant.ID)
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if got := rejectReason(err); got != "Plant not found" {
		t.Errorf("expected reason %q, got %q", "Plant not found", got)
	}
	if b.HeldID != "" {
		t.Error("second harvester must end up empty handed")
	}
}

func TestRottenHarvestYieldsNothing(t *testing.T) {
	w := kitchenWorld(t)
	p := addSurvivor(t, w, "s1")
	plot := objectsOf(w, KindSoilPlot)[0]
	standAt(p, plot)
	if err := interact(w, "s1", InteractPlant, plot.ID); err != nil {
		t.Fatalf("plant: %v", err)
	}
	plant := w.objects.Get(plot.PlantID)
	plant.Stage = StageRotten
	if err := interact(w, "s1", InteractWater, plant.ID); rejectReason(err) != "Plant is rotten" {
		t.Errorf("expected rotten water rejection, got %v", err)
	}
	if err := interact(w, "s1", InteractHarvest, plant.ID); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if p.HeldID != "" {
		t.Error("rotten harvest must not produce an item")
	}
}

func TestInteractOutOfRange(t *testing.T) {
	w := kitchenWorld(t)
	addSurvivor(t, w, "s1")
	plot := objectsOf(w, KindSoilPlot)[0]
	err := interact(w, "s1", InteractPlant, plot.ID)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange from spawn, got %v", err)
	}
	if plot.PlantID != "" {
		t.Error("rejected interaction must not plant")
	}
}

func TestRejectedInteractionChangesNothing(t *testing.T) {
	w := newTestWorld(t)
	p := addSurvivor(t, w, "s1")
	a := w.spawnItem(ItemRawVegetable, p.Pos)
	b := w.spawnItem(ItemCamera, p.Pos)
	if err := interact(w, "s1", InteractPickup, a.ID); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	before := *b
	if err := interact(w, "s1", InteractPickup, b.ID); !errors.Is(err, ErrHandsFull) {
		t.Fatalf("expected ErrHandsFull, got %v", err)
	}
	if *b != before || p.HeldID != a.ID {
		t.Errorf("expected no change after rejection, got %+v held=%s", b, p.HeldID)
	}
	if err := interact(w, "s1", InteractEat, b.ID); !errors.Is(err, ErrWrongItem) {
		t.Errorf("expected ErrWrongItem eating an item not in hand, got %v", err)
	}
	if err := interact(w, "s1", "juggle", a.ID); !errors.Is(err, ErrUnknownInteraction) {
		t.Errorf("expected ErrUnknownInteraction, got %v", err)
	}
	if err := interact(w, "s1", InteractWash, a.ID); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected timed types refused by Interact, got %v", err)
	}
}

func TestDropKeepsItemOnFloor(t *testing.T) {
	w := newTestWorld(t)
	p := addSurvivor(t, w, "s1")
	item := w.spawnItem(ItemRawVegetable, p.Pos)
	if err := interact(w, "s1", InteractPickup, item.ID); err != nil {
		t.Fatalf("pickup: %v", err)
	}

	far := Vec3{X: 500, Y: 3, Z: 500}
	if err := w.Interact("s1", InteractMsg{Type: string(InteractDrop), Pos: &far}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if item.HolderID != "" || p.HeldID != "" {
		t.Error("expected item released")
	}
	if item.Pos.Y != 0 || w.grid.CellAt(item.Pos) != SpawnCell() {
		t.Errorf("expected drop outside the grid to land at the player, got %v", item.Pos)
	}
	if err := w.Interact("s1", InteractMsg{Type: string(InteractDrop)}); !errors.Is(err, ErrHandsEmpty) {
		t.Errorf("expected ErrHandsEmpty, got %v", err)
	}
}

func TestDrinkRestoresThirst(t *testing.T) {
	w := kitchenWorld(t)
	p := addSurvivor(t, w, "s1")
	p.Needs.Thirst = 20
	disp := objectsOf(w, KindAppliance)[0]
	standAt(p, disp)
	if err := interact(w, "s1", InteractDrink, disp.ID); err != nil {
		t.Fatalf("drink: %v", err)
	}
	if want := 20 + w.cfg.Interaction.DrinkValue; p.Needs.Thirst != want {
		t.Errorf("expected thirst %f, got %f", want, p.Needs.Thirst)
	}
}

func TestSleepAndWake(t *testing.T) {
	w := newTestWorld(t)
	addOverseer(t, w, "o1")
	placeRoom(t, w, "o1", 0, -1, RoomDorm)
	a := addSurvivor(t, w, "s1")
	b := addSurvivor(t, w, "s2")
	bed := objectsOf(w, KindBed)[0]
	standAt(a, bed)
	standAt(b, bed)

	if err := interact(w, "s1", InteractSleep, bed.ID); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if a.State != StateSleeping || bed.Occupant != "s1" || a.BedID != bed.ID {
		t.Fatalf("expected s1 asleep in %s, got state=%s occupant=%s", bed.ID, a.State, bed.Occupant)
	}
	if err := interact(w, "s2", InteractSleep, bed.ID); !errors.Is(err, ErrOccupied) {
		t.Errorf("expected ErrOccupied, got %v", err)
	}
	if err := w.SleepResult("s1", 1); err != nil {
		t.Fatalf("sleep result: %v", err)
	}
	if a.SleepMul != w.cfg.Needs.SleepMaxMul {
		t.Errorf("expected max multiplier, got %f", a.SleepMul)
	}
	if err := w.SleepResult("s2", 1); !errors.Is(err, ErrNotSleeping) {
		t.Errorf("expected ErrNotSleeping, got %v", err)
	}

	if err := interact(w, "s1", InteractWake, bed.ID); err != nil {
		t.Fatalf("wake: %v", err)
	}
	if a.State != StatePlaying || bed.Occupant != "" || a.BedID != "" {
		t.Errorf("expected s1 awake with the bed free, got state=%s occupant=%s", a.State, bed.Occupant)
	}
}

func TestOverseerCanOnlyCarry(t *testing.T) {
	w := kitchenWorld(t)
	o := w.Player("o1")
	cam := w.spawnItem(ItemCamera, Vec3{X: o.Pos.X + 3, Z: o.Pos.Z})
	if err := interact(w, "o1", InteractPickup, cam.ID); err != nil {
		t.Fatalf("overseer pickup: %v", err)
	}
	if cam.HolderID != "o1" {
		t.Error("expected the overseer to hold the camera")
	}
	plot := objectsOf(w, KindSoilPlot)[0]
	if err := interact(w, "o1", InteractPlant, plot.ID); !errors.Is(err, ErrSurvivorOnly) {
		t.Errorf("expected ErrSurvivorOnly, got %v", err)
	}
}

func TestAvailableInteractions(t *testing.T) {
	w := kitchenWorld(t)
	p := addSurvivor(t, w, "s1")
	plot := objectsOf(w, KindSoilPlot)[0]
	standAt(p, plot)
	w.refreshAvailable()

	found := false
	for _, a := range p.Available {
		if a.Type == string(InteractPlant) && a.Target == plot.ID {
			found = true
		}
		if a.Type == string(InteractDrop) {
			t.Error("drop offered with empty hands")
		}
	}
	if !found {
		t.Errorf("expected plant on %s, got %+v", plot.ID, p.Available)
	}
	for _, a := range p.Available {
		if err := w.CanInteract(p, InteractionType(a.Type), a.Target, Vec3{}); err != nil {
			t.Errorf("offered %s on %s but CanInteract says %v", a.Type, a.Target, err)
		}
	}
}
