// Package grid defines the value types of the terrain lattice: points, tiles,
// directions and rectangles. Everything here is pure coordinate math; heights and
// occupancy live with their owners and are queried through them.
package grid

// Point identifies a lattice vertex. Valid coordinates are [0, gridSize] on both
// axes; the outermost row/column is shared with no tile to its right/top.
type Point struct {
	X int
	Z int
}

// Tile identifies the unit cell whose bottom-left corner is the point with the
// same coordinates. Valid coordinates are [0, gridSize-1].
type Tile struct {
	X int
	Z int
}

// Rect is an inclusive axis-aligned rectangle of lattice points, used to report
// the area touched by a terrain edit.
type Rect struct {
	Min Point
	Max Point
}

func (p Point) Add(dx, dz int) Point { return Point{X: p.X + dx, Z: p.Z + dz} }

// InBounds reports whether p is a valid lattice vertex for the given grid size.
func (p Point) InBounds(gridSize int) bool {
	return p.X >= 0 && p.X <= gridSize && p.Z >= 0 && p.Z <= gridSize
}

// Tile returns the cell whose bottom-left corner is p, clamped so that points on
// the outer edge still map to a valid tile.
func (p Point) Tile(gridSize int) Tile {
	x, z := p.X, p.Z
	if x > gridSize-1 {
		x = gridSize - 1
	}
	if z > gridSize-1 {
		z = gridSize - 1
	}
	return Tile{X: x, Z: z}
}

// DistCost is the fixed-point diagonal distance between two points: 14 per
// diagonal step, 10 per orthogonal step. It is both the path cost on an
// unobstructed grid and the search heuristic.
func DistCost(a, b Point) int {
	dx := absInt(a.X - b.X)
	dz := absInt(a.Z - b.Z)
	if dx < dz {
		return 14*dx + 10*(dz-dx)
	}
	return 14*dz + 10*(dx-dz)
}

// DistSq is the squared scene distance between two lattice points.
func DistSq(a, b Point) int {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return dx*dx + dz*dz
}

func (t Tile) InBounds(gridSize int) bool {
	return t.X >= 0 && t.X < gridSize && t.Z >= 0 && t.Z < gridSize
}

// Chunk returns the chunk coordinates owning this tile.
func (t Tile) Chunk(tilesPerChunk int) (cx, cz int) {
	return t.X / tilesPerChunk, t.Z / tilesPerChunk
}

// Corners returns the four lattice vertices of the tile in fixed order:
// bottom-left, bottom-right, top-left, top-right.
func (t Tile) Corners() [4]Point {
	return [4]Point{
		{X: t.X, Z: t.Z},
		{X: t.X + 1, Z: t.Z},
		{X: t.X, Z: t.Z + 1},
		{X: t.X + 1, Z: t.Z + 1},
	}
}

// ClosestCorner returns the corner nearest to p by scene distance. Ties keep the
// first corner in Corners order.
func (t Tile) ClosestCorner(p Point) Point {
	corners := t.Corners()
	best := corners[0]
	bestD := DistSq(best, p)
	for _, c := range corners[1:] {
		if d := DistSq(c, p); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// Dir is one of the eight grid directions. The numeric order is the canonical
// scan order everywhere a neighbor loop needs deterministic tie-breaking.
type Dir int8

const (
	DirE Dir = iota
	DirW
	DirN
	DirS
	DirNE
	DirNW
	DirSE
	DirSW

	DirCount = 8
)

var dirOffsets = [DirCount][2]int{
	DirE:  {1, 0},
	DirW:  {-1, 0},
	DirN:  {0, 1},
	DirS:  {0, -1},
	DirNE: {1, 1},
	DirNW: {-1, 1},
	DirSE: {1, -1},
	DirSW: {-1, -1},
}

var dirNames = [DirCount]string{"E", "W", "N", "S", "NE", "NW", "SE", "SW"}

func (d Dir) Offset() (dx, dz int) { return dirOffsets[d][0], dirOffsets[d][1] }

func (d Dir) IsDiagonal() bool { return d >= DirNE }

// Cost is the movement cost of one step in this direction.
func (d Dir) Cost() int {
	if d.IsDiagonal() {
		return 14
	}
	return 10
}

func (d Dir) String() string {
	if d < 0 || d >= DirCount {
		return "?"
	}
	return dirNames[d]
}

// Step returns the neighbor of p in direction d.
func (p Point) Step(d Dir) Point {
	dx, dz := d.Offset()
	return Point{X: p.X + dx, Z: p.Z + dz}
}

// CutTile returns the tile a diagonal step from p in direction d passes through.
// Only meaningful for diagonal directions.
func (p Point) CutTile(d Dir) Tile {
	dx, dz := d.Offset()
	t := Tile{X: p.X, Z: p.Z}
	if dx < 0 {
		t.X--
	}
	if dz < 0 {
		t.Z--
	}
	return t
}

// Contains reports whether p lies inside the rectangle, borders included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Z >= r.Min.Z && p.Z <= r.Max.Z
}

// ContainsTile reports whether any corner of t lies inside the rectangle.
func (r Rect) ContainsTile(t Tile) bool {
	for _, c := range t.Corners() {
		if r.Contains(c) {
			return true
		}
	}
	return false
}

// Expand grows the rectangle to include p.
func (r Rect) Expand(p Point) Rect {
	if p.X < r.Min.X {
		r.Min.X = p.X
	}
	if p.X > r.Max.X {
		r.Max.X = p.X
	}
	if p.Z < r.Min.Z {
		r.Min.Z = p.Z
	}
	if p.Z > r.Max.Z {
		r.Max.Z = p.Z
	}
	return r
}

// RectAt returns the degenerate rectangle covering only p.
func RectAt(p Point) Rect { return Rect{Min: p, Max: p} }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
