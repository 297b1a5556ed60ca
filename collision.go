package main

import "math"

const (
	PlayerRadius  = 0.4
	doorHalfWidth = 0.15 // fraction of the cell size either side of the edge centre
)

// crossable reports whether a body at pos may enter the cell that probe lies in.
// Same-group cells are open, doorways pass only near the edge centre, and
// everything else (other groups, exterior) is a wall.
func crossable(g *WorldGrid, pos, probe Vec3) bool {
	from := g.CellAt(pos)
	to := g.CellAt(probe)
	if from == to {
		return true
	}
	switch g.Edge(from, to) {
	case EdgeOpen:
		return true
	case EdgeDoorway:
		half := doorHalfWidth * g.CellSize()
		if from.X != to.X {
			centre := float64(from.Z) * g.CellSize()
			return math.Abs(probe.Z-centre) <= half
		}
		centre := float64(from.X) * g.CellSize()
		return math.Abs(probe.X-centre) <= half
	}
	return false
}

// resolveMove applies delta to pos one axis at a time, dropping any axis that
// would carry the body's leading edge through a wall.
func resolveMove(g *WorldGrid, pos, delta Vec3, radius float64) Vec3 {
	if delta.X != 0 {
		next := Vec3{X: pos.X + delta.X, Y: pos.Y, Z: pos.Z}
		probe := next
		probe.X += math.Copysign(radius, delta.X)
		if crossable(g, pos, probe) {
			pos = next
		}
	}
	if delta.Z != 0 {
		next := Vec3{X: pos.X, Y: pos.Y, Z: pos.Z + delta.Z}
		probe := next
		probe.Z += math.Copysign(radius, delta.Z)
		if crossable(g, pos, probe) {
			pos = next
		}
	}
	return pos
}
