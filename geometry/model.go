package geometry

import (
	"github.com/golang/geo/r3"

	"github.com/buildscan/buildscan/building"
)

// BoundingBox is an axis-aligned extent in meters.
type BoundingBox struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// Model3D is a triangle mesh extruded from a building's room boundaries.
// Each room contributes one floor ring and one ceiling ring of vertices,
// so the vertex count is exactly twice the sum of boundary corner counts.
// Normals are per face.
type Model3D struct {
	Vertices    []r3.Vector `json:"vertices"`
	Faces       [][3]int    `json:"faces"`
	Normals     []r3.Vector `json:"normals"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// BuildModel extrudes every room between its floor elevation and ceiling.
func (b *Builder) BuildModel(bld *building.Building) *Model3D {
	model := &Model3D{Vertices: []r3.Vector{}, Faces: [][3]int{}, Normals: []r3.Vector{}}

	for _, floor := range bld.Floors {
		for _, room := range floor.Rooms {
			b.extrudeRoom(model, floor, room)
		}
	}

	if len(model.Vertices) > 0 {
		box := BoundingBox{Min: model.Vertices[0], Max: model.Vertices[0]}
		for _, v := range model.Vertices[1:] {
			box.Min = minVec(box.Min, v)
			box.Max = maxVec(box.Max, v)
		}
		model.BoundingBox = box
	}
	return model
}

// extrudeRoom appends one room's vertices and faces: n floor vertices, n
// ceiling vertices, two triangles per wall edge, and fan triangulations of
// the floor and ceiling polygons.
func (b *Builder) extrudeRoom(model *Model3D, floor *building.Floor, room *building.Room) {
	corners := room.Boundary.Corners
	n := len(corners)
	if n < 3 {
		return
	}

	height := room.CeilingHeightM
	if height <= 0 {
		height = room.Boundary.CeilingHeightM
	}
	base := floor.ElevationM
	top := base + height

	offset := len(model.Vertices)
	for _, c := range corners {
		model.Vertices = append(model.Vertices, r3.Vector{X: c.X, Y: c.Y, Z: base})
	}
	for _, c := range corners {
		model.Vertices = append(model.Vertices, r3.Vector{X: c.X, Y: c.Y, Z: top})
	}

	addFace := func(a, b, c int) {
		model.Faces = append(model.Faces, [3]int{offset + a, offset + b, offset + c})
		model.Normals = append(model.Normals, faceNormal(
			model.Vertices[offset+a],
			model.Vertices[offset+b],
			model.Vertices[offset+c],
		))
	}

	// wall quads, two triangles each
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		addFace(i, j, n+j)
		addFace(i, n+j, n+i)
	}
	// floor fan, then ceiling fan wound the other way so it faces up
	for i := 1; i < n-1; i++ {
		addFace(0, i+1, i)
		addFace(n, n+i, n+i+1)
	}
}

func faceNormal(a, b, c r3.Vector) r3.Vector {
	cross := b.Sub(a).Cross(c.Sub(a))
	norm := cross.Norm()
	if norm == 0 {
		return r3.Vector{Z: 1}
	}
	return cross.Mul(1 / norm)
}

func minVec(a, b r3.Vector) r3.Vector {
	if b.X < a.X {
		a.X = b.X
	}
	if b.Y < a.Y {
		a.Y = b.Y
	}
	if b.Z < a.Z {
		a.Z = b.Z
	}
	return a
}

func maxVec(a, b r3.Vector) r3.Vector {
	if b.X > a.X {
		a.X = b.X
	}
	if b.Y > a.Y {
		a.Y = b.Y
	}
	if b.Z > a.Z {
		a.Z = b.Z
	}
	return a
}
