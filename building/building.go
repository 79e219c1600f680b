// Package building holds the reconstructed-building aggregate: floors,
// rooms, boundaries, and openings. The active mapping session exclusively
// owns and mutates one Building; once the session completes the aggregate
// is cloned and the returned copy is never mutated again.
package building

import (
	"math"

	geo "github.com/kellydunn/golang-geo"
)

// Point2D is a room-local coordinate in meters.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Boundary is the ordered floor outline of a room plus its ceiling height.
// A usable boundary has at least three corners; it is best-effort
// non-self-intersecting, ordered clockwise by the detector.
type Boundary struct {
	Corners        []Point2D `json:"corners"`
	CeilingHeightM float64   `json:"ceiling_height_m"`
}

// IsValid reports whether the boundary has enough corners to enclose area.
func (b Boundary) IsValid() bool {
	return len(b.Corners) >= 3
}

// Centroid returns the mean of the boundary corners.
func (b Boundary) Centroid() Point2D {
	if len(b.Corners) == 0 {
		return Point2D{}
	}
	var sx, sy float64
	for _, c := range b.Corners {
		sx += c.X
		sy += c.Y
	}
	n := float64(len(b.Corners))
	return Point2D{X: sx / n, Y: sy / n}
}

// Area returns the shoelace area of the boundary in square meters.
func (b Boundary) Area() float64 {
	if !b.IsValid() {
		return 0
	}
	sum := 0.0
	n := len(b.Corners)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += b.Corners[i].X*b.Corners[j].Y - b.Corners[j].X*b.Corners[i].Y
	}
	return math.Abs(sum) / 2
}

// OpeningKind distinguishes doors from windows.
type OpeningKind string

// The two kinds of wall opening.
const (
	OpeningDoor   OpeningKind = "door"
	OpeningWindow OpeningKind = "window"
)

// Opening is a span between two points along a room boundary. Doors carry
// an inferred open/closed flag; windows carry a sill height.
type Opening struct {
	Kind        OpeningKind `json:"kind"`
	Start       Point2D     `json:"start"`
	End         Point2D     `json:"end"`
	Open        bool        `json:"open,omitempty"`
	SillHeightM float64     `json:"sill_height_m,omitempty"`
}

// WidthM returns the opening span length in meters.
func (o Opening) WidthM() float64 {
	dx := o.End.X - o.Start.X
	dy := o.End.Y - o.Start.Y
	return math.Hypot(dx, dy)
}

// Room is one detected room on a floor.
type Room struct {
	ID             string    `json:"id"`
	FloorIndex     int       `json:"floor_index"`
	Boundary       Boundary  `json:"boundary"`
	Doors          []Opening `json:"doors"`
	Windows        []Opening `json:"windows"`
	CeilingHeightM float64   `json:"ceiling_height_m"`
}

// Absorb merges a fresh partial detection of the same physical room into
// this one. The boundary with the larger area wins; openings are unioned.
func (r *Room) Absorb(boundary Boundary, doors, windows []Opening) {
	if boundary.Area() > r.Boundary.Area() {
		r.Boundary = boundary
		r.CeilingHeightM = boundary.CeilingHeightM
	}
	r.Doors = unionOpenings(r.Doors, doors)
	r.Windows = unionOpenings(r.Windows, windows)
}

// openingMatchToleranceM is how close two opening midpoints must be to be
// treated as the same physical opening when merging detections.
const openingMatchToleranceM = 0.5

func unionOpenings(existing, fresh []Opening) []Opening {
	out := existing
	for _, o := range fresh {
		if !containsOpening(out, o) {
			out = append(out, o)
		}
	}
	return out
}

func containsOpening(openings []Opening, o Opening) bool {
	mx, my := (o.Start.X+o.End.X)/2, (o.Start.Y+o.End.Y)/2
	for _, have := range openings {
		hx, hy := (have.Start.X+have.End.X)/2, (have.Start.Y+have.End.Y)/2
		if math.Hypot(mx-hx, my-hy) < openingMatchToleranceM {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	out := *r
	out.Boundary.Corners = append([]Point2D(nil), r.Boundary.Corners...)
	out.Doors = append([]Opening(nil), r.Doors...)
	out.Windows = append([]Opening(nil), r.Windows...)
	return &out
}

// Floor is one story of the building.
type Floor struct {
	ElevationM float64 `json:"elevation_m"`
	Rooms      []*Room `json:"rooms"`
}

// Clone returns a deep copy of the floor.
func (f *Floor) Clone() *Floor {
	out := &Floor{ElevationM: f.ElevationM, Rooms: make([]*Room, 0, len(f.Rooms))}
	for _, room := range f.Rooms {
		out.Rooms = append(out.Rooms, room.Clone())
	}
	return out
}

// Building is the root aggregate for one mapping session.
type Building struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Location *geo.Point `json:"location,omitempty"`
	Floors   []*Floor   `json:"floors"`
}

// RoomCount returns the number of rooms across all floors.
func (b *Building) RoomCount() int {
	count := 0
	for _, floor := range b.Floors {
		count += len(floor.Rooms)
	}
	return count
}

// Clone returns a deep copy of the building.
func (b *Building) Clone() *Building {
	out := &Building{ID: b.ID, Name: b.Name, Floors: make([]*Floor, 0, len(b.Floors))}
	if b.Location != nil {
		loc := geo.NewPoint(b.Location.Lat(), b.Location.Lng())
		out.Location = loc
	}
	for _, floor := range b.Floors {
		out.Floors = append(out.Floors, floor.Clone())
	}
	return out
}

// Transition records the inspector's path between rooms or floors.
type Transition struct {
	FromRoomID  string `json:"from_room_id,omitempty"`
	ToRoomID    string `json:"to_room_id,omitempty"`
	FromFloor   int    `json:"from_floor"`
	ToFloor     int    `json:"to_floor"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// BuildingMap is the frozen result of a completed session.
type BuildingMap struct {
	Building    *Building    `json:"building"`
	Transitions []Transition `json:"transitions"`
}
