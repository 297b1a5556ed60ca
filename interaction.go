package main

import (
	"errors"
)

// InteractionType is the closed set of player actions on world objects
type InteractionType string

const (
	InteractSleep    InteractionType = "sleep"
	InteractWake     InteractionType = "wake"
	InteractEat      InteractionType = "eat"
	InteractDrink    InteractionType = "drink"
	InteractPlant    InteractionType = "plant"
	InteractWater    InteractionType = "water"
	InteractHarvest  InteractionType = "harvest"
	InteractWeed     InteractionType = "weed"
	InteractWash     InteractionType = "wash"
	InteractCut      InteractionType = "cut"
	InteractAssemble InteractionType = "assemble"
	InteractPickup   InteractionType = "pickup"
	InteractDrop     InteractionType = "drop"
)

// ParseInteraction maps a wire string to an InteractionType
func ParseInteraction(s string) (InteractionType, bool) {
	switch t := InteractionType(s); t {
	case InteractSleep, InteractWake, InteractEat, InteractDrink, InteractPlant,
		InteractWater, InteractHarvest, InteractWeed, InteractWash, InteractCut,
		InteractAssemble, InteractPickup, InteractDrop:
		return t, true
	}
	return "", false
}

// Timed reports whether the interaction runs over a duration
func (t InteractionType) Timed() bool {
	return t == InteractWash || t == InteractCut
}

var (
	ErrUnknownInteraction = errors.New("unknown interaction")
	ErrNotPlaying         = errors.New("player is not playing")
	ErrNotSleeping        = errors.New("player is not sleeping")
	ErrSurvivorOnly       = errors.New("survivors only")
	ErrOverseerOnly       = errors.New("overseers only")
	ErrAlreadyTimed       = errors.New("timed interaction in progress")
	ErrTargetNotFound     = errors.New("target not found")
	ErrWrongTarget        = errors.New("wrong target")
	ErrOutOfRange         = errors.New("target out of range")
	ErrHandsFull          = errors.New("hands full")
	ErrHandsEmpty         = errors.New("hands empty")
	ErrWrongItem          = errors.New("wrong item")
	ErrOccupied           = errors.New("target occupied")
	ErrWrongStage         = errors.New("target not ready")
	ErrInvalidInput       = errors.New("invalid input")
)

// RejectError is a rejected command: a sentinel for errors.Is plus the reason echoed to the client
type RejectError struct {
	Code   error
	Reason string
}

func (e *RejectError) Error() string { return e.Reason }
func (e *RejectError) Unwrap() error { return e.Code }

func reject(code error, reason string) error {
	return &RejectError{Code: code, Reason: reason}
}

// InteractionResult describes what an executed interaction changed
type InteractionResult struct {
	Type     InteractionType
	TargetID string
	HeldID   string   // item in hand afterwards, if any
	Consumed ItemKind // item eaten, if any
}

var targetKinds = map[InteractionType]struct {
	kind ObjectKind
	noun string
}{
	InteractSleep:    {KindBed, "Bed"},
	InteractWake:     {KindBed, "Bed"},
	InteractEat:      {KindItem, "Item"},
	InteractDrink:    {KindAppliance, "Water dispenser"},
	InteractPlant:    {KindSoilPlot, "Soil plot"},
	InteractWater:    {KindPlant, "Plant"},
	InteractHarvest:  {KindPlant, "Plant"},
	InteractWeed:     {KindPlant, "Plant"},
	InteractWash:     {KindStation, "Station"},
	InteractCut:      {KindStation, "Station"},
	InteractAssemble: {KindStation, "Station"},
	InteractPickup:   {KindItem, "Item"},
}

// CanInteract validates an interaction without changing anything.
// Range is measured from the player's eye to the target object's position;
// drop has no target object and is checked against targetPos only for sanity.
func (w *World) CanInteract(p *Player, t InteractionType, targetID string, targetPos Vec3) error {
	_, err := w.validate(p, t, targetID, targetPos)
	return err
}

func (w *World) validate(p *Player, t InteractionType, targetID string, targetPos Vec3) (*WorldObject, error) {
	if p == nil {
		return nil, reject(ErrNotPlaying, "Player not found")
	}
	if _, ok := ParseInteraction(string(t)); !ok {
		return nil, reject(ErrUnknownInteraction, "Unknown interaction")
	}
	if p.Kind == KindOverseer && t != InteractPickup && t != InteractDrop {
		return nil, reject(ErrSurvivorOnly, "Overseers cannot do that")
	}
	if t == InteractWake {
		if p.State != StateSleeping {
			return nil, reject(ErrNotSleeping, "Not sleeping")
		}
	} else if !p.Alive || p.State != StatePlaying {
		return nil, reject(ErrNotPlaying, "Not playing")
	}
	if _, busy := w.timed[p.ID]; busy {
		return nil, reject(ErrAlreadyTimed, "Already busy")
	}

	held := w.objects.Get(p.HeldID)

	if t == InteractDrop {
		if held == nil {
			return nil, reject(ErrHandsEmpty, "Nothing to drop")
		}
		if !targetPos.IsFinite() {
			return nil, reject(ErrInvalidInput, "Invalid drop point")
		}
		return nil, nil
	}

	spec := targetKinds[t]
	target := w.objects.Get(targetID)
	if target == nil || target.Kind != spec.kind {
		return nil, reject(ErrTargetNotFound, spec.noun+" not found")
	}

	if t == InteractEat {
		if target.HolderID != p.ID {
			return nil, reject(ErrWrongItem, "Not holding that")
		}
	} else {
		radius := w.cfg.Interaction.Radius
		if p.Kind == KindOverseer {
			radius = w.cfg.Interaction.OverseerReach
		}
		if Distance3(p.Eye(w.cfg.Interaction), target.Pos) > radius {
			return nil, reject(ErrOutOfRange, "Too far away")
		}
	}

	needEmpty := func() error {
		if held != nil {
			return reject(ErrHandsFull, "Hands are full")
		}
		return nil
	}
	needHolding := func(kind ItemKind, reason string) error {
		if held == nil || held.Item != kind {
			return reject(ErrWrongItem, reason)
		}
		return nil
	}
	needStation := func(kind StationKind, reason string) error {
		if target.Station != kind {
			return reject(ErrWrongTarget, reason)
		}
		if target.Occupant != "" && target.Occupant != p.ID {
			return reject(ErrOccupied, "Station is in use")
		}
		return nil
	}

	var err error
	switch t {
	case InteractSleep:
		if target.Occupant != "" {
			err = reject(ErrOccupied, "Bed is occupied")
		} else {
			err = needEmpty()
		}
	case InteractWake:
		if p.BedID != target.ID {
			err = reject(ErrWrongTarget, "Not your bed")
		}
	case InteractEat:
		if !target.Item.Food() {
			err = reject(ErrWrongItem, "Not edible")
		}
	case InteractDrink:
		if target.Appliance != ApplianceWater {
			err = reject(ErrWrongTarget, "Not a water dispenser")
		} else {
			err = needEmpty()
		}
	case InteractPlant:
		if target.PlantID != "" {
			err = reject(ErrOccupied, "Plot already planted")
		} else {
			err = needEmpty()
		}
	case InteractWater:
		switch {
		case target.Stage == StageRotten:
			err = reject(ErrWrongStage, "Plant is rotten")
		case target.Watered:
			err = reject(ErrWrongStage, "Already watered")
		default:
			err = needEmpty()
		}
	case InteractHarvest:
		if target.Stage != StageMature && target.Stage != StageRotten {
			err = reject(ErrWrongStage, "Plant is not ready")
		} else {
			err = needEmpty()
		}
	case InteractWeed:
		if !target.Weeds {
			err = reject(ErrWrongStage, "No weeds")
		}
	case InteractWash:
		if err = needStation(StationWash, "Not a wash station"); err == nil {
			err = needHolding(ItemRawVegetable, "Need a raw vegetable")
		}
	case InteractCut:
		if err = needStation(StationCut, "Not a cutting station"); err == nil {
			err = needHolding(ItemWashedVegetable, "Need a washed vegetable")
		}
	case InteractAssemble:
		if err = needStation(StationAssemble, "Not an assembly station"); err == nil {
			err = needHolding(ItemChoppedVegetable, "Need a chopped vegetable")
		}
	case InteractPickup:
		if target.HolderID != "" {
			err = reject(ErrOccupied, "Item is held")
		} else {
			err = needEmpty()
		}
	}
	if err != nil {
		return nil, err
	}
	return target, nil
}

// ExecuteInteraction re-validates and applies an interaction.
// A target that vanished since an earlier CanInteract surfaces here as an error.
func (w *World) ExecuteInteraction(p *Player, t InteractionType, targetID string, targetPos Vec3) (InteractionResult, error) {
	target, err := w.validate(p, t, targetID, targetPos)
	if err != nil {
		return InteractionResult{}, err
	}
	res := InteractionResult{Type: t, TargetID: targetID}
	held := w.objects.Get(p.HeldID)

	switch t {
	case InteractSleep:
		if err := p.SetState(StateSleeping); err != nil {
			return res, err
		}
		target.Occupant = p.ID
		p.BedID = target.ID
		p.SleepMul = w.cfg.Needs.SleepBaseMul
		p.Pos = target.Pos
		p.Vel = Vec3{}
		p.Input = MoveInput{}

	case InteractWake:
		if err := p.SetState(StatePlaying); err != nil {
			return res, err
		}
		target.Occupant = ""
		p.BedID = ""
		p.SleepMul = w.cfg.Needs.SleepBaseMul

	case InteractEat:
		p.Needs.Restore(NeedHunger, w.foodValue(target.Item))
		res.Consumed = target.Item
		w.objects.Remove(target.ID)
		p.HeldID = ""

	case InteractDrink:
		p.Needs.Restore(NeedThirst, w.cfg.Interaction.DrinkValue)

	case InteractPlant:
		plant := w.objects.Add(&WorldObject{
			Kind:    KindPlant,
			Pos:     target.Pos,
			HasCell: target.HasCell,
			Cell:    target.Cell,
			Room:    target.Room,
			PlotID:  target.ID,
			Stage:   StageSeedling,
		})
		target.PlantID = plant.ID

	case InteractWater:
		target.Watered = true

	case InteractHarvest:
		if plot := w.objects.Get(target.PlotID); plot != nil {
			plot.PlantID = ""
		}
		ripe := target.Stage == StageMature
		w.objects.Remove(target.ID)
		if ripe {
			item := w.spawnItem(ItemRawVegetable, p.HandPos())
			w.hold(p, item)
		}

	case InteractWeed:
		target.Weeds = false

	case InteractWash:
		held.Item = ItemWashedVegetable
		held.Ground = 0
		target.Progress = 0

	case InteractCut:
		held.Item = ItemChoppedVegetable
		held.Ground = 0
		target.Progress = 0

	case InteractAssemble:
		held.Item = ItemMeal
		held.Ground = 0

	case InteractPickup:
		w.hold(p, target)

	case InteractDrop:
		w.release(p, w.dropPoint(p, targetPos))
	}

	res.HeldID = p.HeldID
	return res, nil
}

func (w *World) foodValue(k ItemKind) float64 {
	c := w.cfg.Interaction
	switch k {
	case ItemRawVegetable:
		return c.RawFoodValue
	case ItemWashedVegetable:
		return c.WashedFoodValue
	case ItemChoppedVegetable:
		return c.ChopFoodValue
	case ItemMeal:
		return c.MealValue
	}
	return 0
}

func (w *World) spawnItem(kind ItemKind, pos Vec3) *WorldObject {
	return w.objects.Add(&WorldObject{Kind: KindItem, Item: kind, Pos: pos})
}

func (w *World) hold(p *Player, item *WorldObject) {
	item.HolderID = p.ID
	item.Ground = 0
	item.Pos = p.HandPos()
	p.HeldID = item.ID
}

// release puts the player's held item on the floor at pos
func (w *World) release(p *Player, pos Vec3) {
	item := w.objects.Get(p.HeldID)
	p.HeldID = ""
	if item == nil {
		return
	}
	item.HolderID = ""
	item.Ground = 0
	item.Pos = pos
}

// dropPoint keeps dropped items on the floor of a built cell
func (w *World) dropPoint(p *Player, target Vec3) Vec3 {
	target.Y = 0
	if p.State == StateWaiting || w.grid.Cell(w.grid.CellAt(target)) == nil {
		return Vec3{X: p.Pos.X, Z: p.Pos.Z}
	}
	return target
}

// computeAvailable fills p.Available with every interaction that would validate now
func (w *World) computeAvailable(p *Player, buf []*WorldObject) []*WorldObject {
	p.Available = p.Available[:0]
	add := func(t InteractionType, id string, pos Vec3) {
		if w.CanInteract(p, t, id, pos) == nil {
			p.Available = append(p.Available, AvailableInteraction{Type: string(t), Target: id})
		}
	}

	if p.State == StateSleeping {
		add(InteractWake, p.BedID, Vec3{})
		return buf
	}
	if !p.Alive || p.State != StatePlaying {
		return buf
	}
	if held := w.objects.Get(p.HeldID); held != nil {
		if held.Item.Food() {
			add(InteractEat, held.ID, held.Pos)
		}
		add(InteractDrop, "", p.Pos)
	}

	radius := w.cfg.Interaction.Radius
	if p.Kind == KindOverseer {
		radius = w.cfg.Interaction.OverseerReach
	}
	buf = w.index.QueryBuf(p.Eye(w.cfg.Interaction), radius, buf[:0])
	for _, o := range buf {
		for _, t := range candidateInteractions(o) {
			add(t, o.ID, o.Pos)
		}
	}
	return buf
}

func candidateInteractions(o *WorldObject) []InteractionType {
	switch o.Kind {
	case KindBed:
		return []InteractionType{InteractSleep}
	case KindAppliance:
		return []InteractionType{InteractDrink}
	case KindSoilPlot:
		return []InteractionType{InteractPlant}
	case KindPlant:
		return []InteractionType{InteractWater, InteractHarvest, InteractWeed}
	case KindStation:
		switch o.Station {
		case StationWash:
			return []InteractionType{InteractWash}
		case StationCut:
			return []InteractionType{InteractCut}
		case StationAssemble:
			return []InteractionType{InteractAssemble}
		}
	case KindItem:
		if o.HolderID == "" {
			return []InteractionType{InteractPickup}
		}
	}
	return nil
}
