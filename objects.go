package main

import (
	"sort"
	"strconv"
	"time"
)

// ObjectKind is the closed set of world object variants
type ObjectKind string

const (
	KindSoilPlot  ObjectKind = "soil_plot"
	KindPlant     ObjectKind = "plant"
	KindStation   ObjectKind = "station"
	KindAppliance ObjectKind = "appliance"
	KindTable     ObjectKind = "table"
	KindBed       ObjectKind = "bed"
	KindItem      ObjectKind = "item"
	KindBody      ObjectKind = "body"
)

// StationKind selects what a processing station does
type StationKind string

const (
	StationWash     StationKind = "wash"
	StationCut      StationKind = "cut"
	StationAssemble StationKind = "assemble"
)

// ApplianceWater dispenses drinks in the cafeteria
const ApplianceWater = "water_dispenser"

// ItemKind is what a carried object is
type ItemKind string

const (
	ItemRawVegetable     ItemKind = "raw_vegetable"
	ItemWashedVegetable  ItemKind = "washed_vegetable"
	ItemChoppedVegetable ItemKind = "chopped_vegetable"
	ItemMeal             ItemKind = "meal"
	ItemCamera           ItemKind = "camera"
)

// Food reports whether the item can be eaten
func (k ItemKind) Food() bool {
	switch k {
	case ItemRawVegetable, ItemWashedVegetable, ItemChoppedVegetable, ItemMeal:
		return true
	}
	return false
}

// PlantStage is the growth stage of a plant
type PlantStage string

const (
	StageSeedling PlantStage = "seedling"
	StageSprout   PlantStage = "sprout"
	StageMature   PlantStage = "mature"
	StageRotten   PlantStage = "rotten"
)

// WorldObject is any entity in the object table. Fields are used per Kind.
type WorldObject struct {
	ID   string
	Kind ObjectKind
	Pos  Vec3
	Rot  float64
	seq  uint64

	// room content ownership
	HasCell bool
	Cell    CellCoord
	Room    RoomType

	// soil plot
	PlantID string

	// plant
	PlotID  string
	Stage   PlantStage
	Watered bool
	Weeds   bool
	Growth  float64 // watered seconds accumulated
	Ripe    float64 // seconds spent mature

	// station, appliance, bed
	Station   StationKind
	Appliance string
	Occupant  string
	Progress  float64 // 0..1 of the running timed interaction

	// item
	Item     ItemKind
	HolderID string
	Ground   float64 // seconds on the ground

	// body
	OwnerID   string
	OwnerName string
	Cause     NeedKind
	ExpiresAt time.Time
}

// Held reports whether an item is in someone's hands
func (o *WorldObject) Held() bool {
	return o.Kind == KindItem && o.HolderID != ""
}

// ObjectTable is the id -> object arena
type ObjectTable struct {
	objects map[string]*WorldObject
	nextSeq uint64
}

// NewObjectTable creates an empty table
func NewObjectTable() *ObjectTable {
	return &ObjectTable{objects: make(map[string]*WorldObject)}
}

// Add assigns an id and stores the object
func (t *ObjectTable) Add(o *WorldObject) *WorldObject {
	t.nextSeq++
	o.seq = t.nextSeq
	o.ID = "o" + strconv.FormatUint(t.nextSeq, 10)
	t.objects[o.ID] = o
	return o
}

// Get returns the object with id, or nil
func (t *ObjectTable) Get(id string) *WorldObject {
	return t.objects[id]
}

// Remove deletes the object with id
func (t *ObjectTable) Remove(id string) bool {
	if _, ok := t.objects[id]; !ok {
		return false
	}
	delete(t.objects, id)
	return true
}

// Len returns the number of objects
func (t *ObjectTable) Len() int {
	return len(t.objects)
}

// Sorted returns every object in creation order
func (t *ObjectTable) Sorted() []*WorldObject {
	out := make([]*WorldObject, 0, len(t.objects))
	for _, o := range t.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// InCell returns the room content spawned for a cell, in creation order
func (t *ObjectTable) InCell(c CellCoord) []*WorldObject {
	var out []*WorldObject
	for _, o := range t.Sorted() {
		if o.HasCell && o.Cell == c {
			out = append(out, o)
		}
	}
	return out
}

// CountKind counts objects of one kind
func (t *ObjectTable) CountKind(k ObjectKind) int {
	n := 0
	for _, o := range t.objects {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// ToState converts to protocol state
func (o *WorldObject) ToState() ObjectState {
	s := ObjectState{
		ID:   o.ID,
		Kind: string(o.Kind),
		X:    round2(o.Pos.X),
		Y:    round2(o.Pos.Y),
		Z:    round2(o.Pos.Z),
		R:    round2(o.Rot),
	}
	switch o.Kind {
	case KindSoilPlot:
		s.Plant = o.PlantID
	case KindPlant:
		s.Stage = string(o.Stage)
		s.Watered = o.Watered
		s.Weeds = o.Weeds
	case KindStation:
		s.Sub = string(o.Station)
		s.Occupant = o.Occupant
		s.Progress = round2(o.Progress)
	case KindAppliance:
		s.Sub = o.Appliance
	case KindBed:
		s.Occupant = o.Occupant
	case KindItem:
		s.Sub = string(o.Item)
		s.Holder = o.HolderID
	case KindBody:
		s.Owner = o.OwnerName
		s.Sub = string(o.Cause)
	}
	return s
}
