package main

import "math"

// SpatialIndex buckets world objects by grid cell for range queries.
// It is rebuilt from the object table before each availability pass.
type SpatialIndex struct {
	cellSize float64
	cells    map[CellCoord][]*WorldObject
}

// NewSpatialIndex creates an index with the given bucket size
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{cellSize: cellSize, cells: make(map[CellCoord][]*WorldObject)}
}

// Clear resets all buckets (keeps allocated capacity)
func (s *SpatialIndex) Clear() {
	for k, v := range s.cells {
		s.cells[k] = v[:0]
	}
}

func (s *SpatialIndex) bucket(x, z float64) CellCoord {
	return CellCoord{
		X: int(math.Floor(x/s.cellSize + 0.5)),
		Z: int(math.Floor(z/s.cellSize + 0.5)),
	}
}

// Insert adds an object at its current position
func (s *SpatialIndex) Insert(o *WorldObject) {
	b := s.bucket(o.Pos.X, o.Pos.Z)
	s.cells[b] = append(s.cells[b], o)
}

// QueryBuf appends every object in buckets overlapping the square around p
// and returns the extended slice. Callers still check exact distance.
func (s *SpatialIndex) QueryBuf(p Vec3, radius float64, buf []*WorldObject) []*WorldObject {
	lo := s.bucket(p.X-radius, p.Z-radius)
	hi := s.bucket(p.X+radius, p.Z+radius)
	for x := lo.X; x <= hi.X; x++ {
		for z := lo.Z; z <= hi.Z; z++ {
			buf = append(buf, s.cells[CellCoord{x, z}]...)
		}
	}
	return buf
}
