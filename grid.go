package main

import (
	"errors"
	"math"
	"sort"
)

// RoomType is the purpose assigned to a cell
type RoomType string

const (
	RoomGeneric    RoomType = "generic"
	RoomFarming    RoomType = "farming"
	RoomProcessing RoomType = "processing"
	RoomCafeteria  RoomType = "cafeteria"
	RoomDorm       RoomType = "dorm"
	RoomWaiting    RoomType = "waiting"
)

// ParseRoomType maps a wire string to a RoomType
func ParseRoomType(s string) (RoomType, bool) {
	switch RoomType(s) {
	case RoomGeneric, RoomFarming, RoomProcessing, RoomCafeteria, RoomDorm, RoomWaiting:
		return RoomType(s), true
	}
	return "", false
}

// BlockShape is the footprint of a placed block
type BlockShape string

const (
	Shape1x1 BlockShape = "1x1"
	Shape1x2 BlockShape = "1x2"
)

const gridLimit = 64 // max |x| and |z| of any cell

var (
	ErrInvalidShape    = errors.New("invalid block shape")
	ErrInvalidRoomType = errors.New("invalid room type")
	ErrReservedRoom    = errors.New("room type is reserved")
	ErrOutOfBounds     = errors.New("cell out of bounds")
	ErrCellOccupied    = errors.New("cell already occupied")
	ErrNotAdjacent     = errors.New("block must touch an existing room")
	ErrCellNotFound    = errors.New("cell not found")
	ErrSameRoomType    = errors.New("room already has that type")
)

// CellCoord is an integer grid position
type CellCoord struct {
	X int `json:"x" msgpack:"x"`
	Z int `json:"z" msgpack:"z"`
}

// Less orders coordinates lexicographically (x, then z)
func (c CellCoord) Less(o CellCoord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Z < o.Z
}

func (c CellCoord) neighbors() [4]CellCoord {
	return [4]CellCoord{{c.X - 1, c.Z}, {c.X, c.Z - 1}, {c.X, c.Z + 1}, {c.X + 1, c.Z}}
}

// Cell is one occupied grid square
type Cell struct {
	Coord    CellCoord
	BlockID  int
	Shape    BlockShape
	Rotation int // quarter turns; 1x2 extends +X, +Z, -X, -Z for 0..3
	Room     RoomType
	Group    int
}

// WorldGrid is the sparse room map. Not safe for concurrent use; Game serializes access.
type WorldGrid struct {
	cellSize  float64
	cells     map[CellCoord]*Cell
	nextBlock int
	nextGroup int
	version   uint64
	doorways  []Doorway
	doorSet   map[Doorway]bool
}

// NewWorldGrid creates a grid holding only the generic spawn room at (0,0)
func NewWorldGrid(cellSize float64) *WorldGrid {
	g := &WorldGrid{
		cellSize: cellSize,
		cells:    make(map[CellCoord]*Cell),
		doorSet:  make(map[Doorway]bool),
	}
	g.nextBlock = 1
	g.nextGroup = 1
	spawn := SpawnCell()
	g.cells[spawn] = &Cell{Coord: spawn, BlockID: g.nextBlock, Shape: Shape1x1, Room: RoomGeneric, Group: g.nextGroup}
	g.nextBlock++
	g.nextGroup++
	return g
}

// SpawnCell is the seed room every other room grows from
func SpawnCell() CellCoord {
	return CellCoord{0, 0}
}

// Version is bumped by every grid-affecting mutation
func (g *WorldGrid) Version() uint64 {
	return g.version
}

// CellSize is the world-space edge length of a cell
func (g *WorldGrid) CellSize() float64 {
	return g.cellSize
}

// Cell returns the cell at c, or nil
func (g *WorldGrid) Cell(c CellCoord) *Cell {
	return g.cells[c]
}

// Len returns the number of occupied cells
func (g *WorldGrid) Len() int {
	return len(g.cells)
}

// ShapeCells returns the cells a block would cover
func ShapeCells(x, z int, shape BlockShape, rotation int) ([]CellCoord, error) {
	origin := CellCoord{x, z}
	switch shape {
	case Shape1x1:
		return []CellCoord{origin}, nil
	case Shape1x2:
		var second CellCoord
		switch ((rotation % 4) + 4) % 4 {
		case 0:
			second = CellCoord{x + 1, z}
		case 1:
			second = CellCoord{x, z + 1}
		case 2:
			second = CellCoord{x - 1, z}
		default:
			second = CellCoord{x, z - 1}
		}
		return []CellCoord{origin, second}, nil
	}
	return nil, ErrInvalidShape
}

// PlaceBlock adds a block of the given shape and room type.
// Every covered cell must be empty and at least one must touch an existing cell.
func (g *WorldGrid) PlaceBlock(x, z int, shape BlockShape, rotation int, room RoomType) ([]CellCoord, error) {
	if _, ok := ParseRoomType(string(room)); !ok {
		return nil, ErrInvalidRoomType
	}
	if room == RoomWaiting {
		return nil, ErrReservedRoom
	}
	covered, err := ShapeCells(x, z, shape, rotation)
	if err != nil {
		return nil, err
	}

	touches := false
	for _, c := range covered {
		if abs(c.X) > gridLimit || abs(c.Z) > gridLimit {
			return nil, ErrOutOfBounds
		}
		if _, ok := g.cells[c]; ok {
			return nil, ErrCellOccupied
		}
		for _, n := range c.neighbors() {
			if _, ok := g.cells[n]; ok {
				touches = true
			}
		}
	}
	if !touches {
		return nil, ErrNotAdjacent
	}

	block := g.nextBlock
	g.nextBlock++
	for _, c := range covered {
		g.cells[c] = &Cell{Coord: c, BlockID: block, Shape: shape, Rotation: rotation, Room: room}
	}
	g.regroup()
	g.version++
	return covered, nil
}

// SetRoomType converts the whole block containing (x, z).
// It returns the converted cells and the room type they had before.
func (g *WorldGrid) SetRoomType(x, z int, room RoomType) ([]CellCoord, RoomType, error) {
	cell, ok := g.cells[CellCoord{x, z}]
	if !ok {
		return nil, "", ErrCellNotFound
	}
	if _, ok := ParseRoomType(string(room)); !ok {
		return nil, "", ErrInvalidRoomType
	}
	if room == RoomWaiting {
		return nil, "", ErrReservedRoom
	}
	if cell.Room == room {
		return nil, "", ErrSameRoomType
	}

	old := cell.Room
	block := g.BlockCells(cell.BlockID)
	for _, c := range block {
		g.cells[c].Room = room
	}
	g.regroup()
	g.version++
	return block, old, nil
}

// BlockCells lists the cells of one block in coordinate order
func (g *WorldGrid) BlockCells(block int) []CellCoord {
	var out []CellCoord
	for c, cell := range g.cells {
		if cell.BlockID == block {
			out = append(out, c)
		}
	}
	sortCoords(out)
	return out
}

// SortedCells returns every coordinate in lexicographic order
func (g *WorldGrid) SortedCells() []CellCoord {
	out := make([]CellCoord, 0, len(g.cells))
	for c := range g.cells {
		out = append(out, c)
	}
	sortCoords(out)
	return out
}

// GroupCount returns the number of distinct merge groups
func (g *WorldGrid) GroupCount() int {
	seen := make(map[int]struct{})
	for _, cell := range g.cells {
		seen[cell.Group] = struct{}{}
	}
	return len(seen)
}

// regroup recomputes merge groups as connected components of same-type cells.
// Each component keeps the smallest unclaimed group id found among its cells,
// so unchanged rooms keep their ids across mutations. Components are visited
// in coordinate order, which makes the assignment deterministic.
func (g *WorldGrid) regroup() {
	visited := make(map[CellCoord]bool, len(g.cells))
	claimed := make(map[int]bool)

	for _, start := range g.SortedCells() {
		if visited[start] {
			continue
		}
		room := g.cells[start].Room
		component := []CellCoord{start}
		visited[start] = true
		for i := 0; i < len(component); i++ {
			for _, n := range component[i].neighbors() {
				cell, ok := g.cells[n]
				if !ok || visited[n] || cell.Room != room {
					continue
				}
				visited[n] = true
				component = append(component, n)
			}
		}

		id := 0
		for _, c := range component {
			old := g.cells[c].Group
			if old != 0 && !claimed[old] && (id == 0 || old < id) {
				id = old
			}
		}
		if id == 0 {
			id = g.nextGroup
			g.nextGroup++
		}
		claimed[id] = true
		for _, c := range component {
			g.cells[c].Group = id
		}
	}
	g.computeDoorways()
}

// CellAt maps a world position to the cell containing it
func (g *WorldGrid) CellAt(p Vec3) CellCoord {
	return CellCoord{
		X: int(math.Floor(p.X/g.cellSize + 0.5)),
		Z: int(math.Floor(p.Z/g.cellSize + 0.5)),
	}
}

// CellCenter returns the floor-level centre of a cell
func (g *WorldGrid) CellCenter(c CellCoord) Vec3 {
	return Vec3{X: float64(c.X) * g.cellSize, Z: float64(c.Z) * g.cellSize}
}

func sortCoords(cs []CellCoord) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
