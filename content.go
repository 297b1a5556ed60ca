package main

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var contentYAML []byte

// ContentFactory creates and removes the objects a room type furnishes a cell with
type ContentFactory interface {
	CreateRoomContent(room RoomType, cell CellCoord) []*WorldObject
	CleanupRoomContent(room RoomType, cell CellCoord) int
}

// ContentCatalog maps room types to their object layouts
type ContentCatalog struct {
	Rooms map[RoomType][]ContentSpec `yaml:"rooms"`
}

// ContentSpec places one object inside a cell
type ContentSpec struct {
	Kind   ObjectKind `yaml:"kind"`
	Sub    string     `yaml:"sub"`
	Offset [2]float64 `yaml:"offset"`
	Rot    float64    `yaml:"rot"`
}

var defaultCatalog ContentCatalog

func init() {
	cat, err := ParseContentCatalog(contentYAML)
	if err != nil {
		panic("content.yaml: " + err.Error())
	}
	defaultCatalog = cat
}

// ParseContentCatalog decodes and checks a YAML catalog
func ParseContentCatalog(raw []byte) (ContentCatalog, error) {
	var cat ContentCatalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return cat, err
	}
	for room, specs := range cat.Rooms {
		if _, ok := ParseRoomType(string(room)); !ok {
			return cat, fmt.Errorf("unknown room type %q", room)
		}
		for i, s := range specs {
			switch s.Kind {
			case KindSoilPlot, KindTable, KindBed:
			case KindStation:
				if st := StationKind(s.Sub); st != StationWash && st != StationCut && st != StationAssemble {
					return cat, fmt.Errorf("%s[%d]: unknown station %q", room, i, s.Sub)
				}
			case KindAppliance:
				if s.Sub != ApplianceWater {
					return cat, fmt.Errorf("%s[%d]: unknown appliance %q", room, i, s.Sub)
				}
			default:
				return cat, fmt.Errorf("%s[%d]: kind %q is not room content", room, i, s.Kind)
			}
		}
	}
	return cat, nil
}

// catalogContent furnishes cells from a ContentCatalog into an object table
type catalogContent struct {
	catalog ContentCatalog
	objects *ObjectTable
	grid    *WorldGrid
}

func newCatalogContent(cat ContentCatalog, objects *ObjectTable, grid *WorldGrid) *catalogContent {
	return &catalogContent{catalog: cat, objects: objects, grid: grid}
}

func (c *catalogContent) CreateRoomContent(room RoomType, cell CellCoord) []*WorldObject {
	center := c.grid.CellCenter(cell)
	size := c.grid.CellSize()
	var out []*WorldObject
	for _, s := range c.catalog.Rooms[room] {
		o := &WorldObject{
			Kind:    s.Kind,
			Pos:     Vec3{X: center.X + s.Offset[0]*size, Z: center.Z + s.Offset[1]*size},
			Rot:     s.Rot,
			HasCell: true,
			Cell:    cell,
			Room:    room,
		}
		switch s.Kind {
		case KindStation:
			o.Station = StationKind(s.Sub)
		case KindAppliance:
			o.Appliance = s.Sub
		}
		out = append(out, c.objects.Add(o))
	}
	return out
}

func (c *catalogContent) CleanupRoomContent(room RoomType, cell CellCoord) int {
	n := 0
	for _, o := range c.objects.InCell(cell) {
		if o.Room != room {
			continue
		}
		c.objects.Remove(o.ID)
		n++
	}
	return n
}
