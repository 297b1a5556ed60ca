package main

import (
	"strings"
	"testing"
)

func TestDefaultCatalogLayouts(t *testing.T) {
	counts := map[RoomType]int{
		RoomGeneric:    0,
		RoomFarming:    4,
		RoomProcessing: 3,
		RoomCafeteria:  2,
		RoomDorm:       2,
	}
	for room, want := range counts {
		if got := len(defaultCatalog.Rooms[room]); got != want {
			t.Errorf("%s: expected %d objects, got %d", room, want, got)
		}
	}
}

func TestParseContentCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"room", "rooms:\n  kitchen: []\n", "unknown room type"},
		{"station", "rooms:\n  processing:\n    - kind: station\n      sub: fry\n", "unknown station"},
		{"appliance", "rooms:\n  cafeteria:\n    - kind: appliance\n      sub: toaster\n", "unknown appliance"},
		{"kind", "rooms:\n  dorm:\n    - kind: body\n", "not room content"},
		{"syntax", "rooms: [", ""},
	}
	for _, tt := range tests {
		_, err := ParseContentCatalog([]byte(tt.yaml))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestCatalogContentCreateAndCleanup(t *testing.T) {
	g := NewWorldGrid(10)
	objects := NewObjectTable()
	c := newCatalogContent(defaultCatalog, objects, g)
	cell := CellCoord{X: 1, Z: 0}

	created := c.CreateRoomContent(RoomProcessing, cell)
	if len(created) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(created))
	}
	centre := g.CellCenter(cell)
	for _, o := range created {
		if o.Kind != KindStation || !o.HasCell || o.Cell != cell || o.Room != RoomProcessing {
			t.Errorf("unexpected station %+v", o)
		}
		if o.Pos.Y != 0 || Distance3(o.Pos, centre) > g.CellSize()/2 {
			t.Errorf("station placed outside its cell: %v", o.Pos)
		}
	}
	if created[0].Station != StationWash || created[2].Station != StationAssemble {
		t.Errorf("unexpected station order %s..%s", created[0].Station, created[2].Station)
	}

	loose := objects.Add(&WorldObject{Kind: KindItem, Item: ItemMeal, HasCell: true, Cell: cell})
	if n := c.CleanupRoomContent(RoomProcessing, cell); n != 3 {
		t.Errorf("expected 3 removed, got %d", n)
	}
	if objects.Get(loose.ID) == nil {
		t.Error("cleanup must only remove the room's own furniture")
	}
}
