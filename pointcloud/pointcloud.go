// Package pointcloud holds the merged scan cloud and the preprocessing
// steps that clean it up before floor and wall extraction.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData tracks the bounding box of a cloud as points are added.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns metadata for an empty cloud.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge extends the bounds to include p.
func (meta *MetaData) Merge(p r3.Vector) {
	if p.X > meta.MaxX {
		meta.MaxX = p.X
	}
	if p.Y > meta.MaxY {
		meta.MaxY = p.Y
	}
	if p.Z > meta.MaxZ {
		meta.MaxZ = p.Z
	}
	if p.X < meta.MinX {
		meta.MinX = p.X
	}
	if p.Y < meta.MinY {
		meta.MinY = p.Y
	}
	if p.Z < meta.MinZ {
		meta.MinZ = p.Z
	}
}

// Cloud is a dense slice-backed point cloud. Order is insertion order.
type Cloud struct {
	points []r3.Vector
	meta   MetaData
}

// New returns an empty Cloud.
func New() *Cloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty Cloud with capacity for size points.
func NewWithPrealloc(size int) *Cloud {
	return &Cloud{
		points: make([]r3.Vector, 0, size),
		meta:   NewMetaData(),
	}
}

// NewFromPoints returns a Cloud holding a copy of the given points.
func NewFromPoints(points []r3.Vector) *Cloud {
	cloud := NewWithPrealloc(len(points))
	for _, p := range points {
		cloud.Add(p)
	}
	return cloud
}

// Size returns the number of points in the cloud.
func (cloud *Cloud) Size() int {
	return len(cloud.points)
}

// MetaData returns the cloud's bounding box metadata.
func (cloud *Cloud) MetaData() MetaData {
	return cloud.meta
}

// Add appends a point to the cloud.
func (cloud *Cloud) Add(p r3.Vector) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
}

// At returns the i-th point in insertion order.
func (cloud *Cloud) At(i int) r3.Vector {
	return cloud.points[i]
}

// Points returns a copy of all points in insertion order.
func (cloud *Cloud) Points() []r3.Vector {
	out := make([]r3.Vector, len(cloud.points))
	copy(out, cloud.points)
	return out
}

// Iterate calls fn for each point until it returns false.
func (cloud *Cloud) Iterate(fn func(p r3.Vector) bool) {
	for _, p := range cloud.points {
		if !fn(p) {
			return
		}
	}
}
