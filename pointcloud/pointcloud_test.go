package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCloudBasics(t *testing.T) {
	cloud := New()
	test.That(t, cloud.Size(), test.ShouldEqual, 0)

	cloud.Add(r3.Vector{X: 1, Y: 2, Z: 3})
	cloud.Add(r3.Vector{X: -1, Y: 0, Z: 5})
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	test.That(t, cloud.At(0), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})

	meta := cloud.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, -1.0)
	test.That(t, meta.MaxX, test.ShouldEqual, 1.0)
	test.That(t, meta.MinZ, test.ShouldEqual, 3.0)
	test.That(t, meta.MaxZ, test.ShouldEqual, 5.0)
}

func TestNewFromPoints(t *testing.T) {
	pts := []r3.Vector{{X: 0}, {X: 1}, {X: 2}}
	cloud := NewFromPoints(pts)
	test.That(t, cloud.Size(), test.ShouldEqual, 3)

	// the cloud owns its copy
	pts[0].X = 99
	test.That(t, cloud.At(0).X, test.ShouldEqual, 0.0)
}

func TestIterateStops(t *testing.T) {
	cloud := NewFromPoints([]r3.Vector{{X: 0}, {X: 1}, {X: 2}})
	seen := 0
	cloud.Iterate(func(p r3.Vector) bool {
		seen++
		return seen < 2
	})
	test.That(t, seen, test.ShouldEqual, 2)
}
