package segmentation

import (
	"testing"

	"go.viam.com/test"

	"github.com/buildscan/buildscan/building"
)

func TestDetectDoorsSquareRoom(t *testing.T) {
	doors := newDetector(t).DetectDoors(squareRoomScan())
	test.That(t, len(doors), test.ShouldEqual, 1)

	door := doors[0]
	test.That(t, door.Kind, test.ShouldEqual, building.OpeningDoor)
	test.That(t, door.WidthM(), test.ShouldAlmostEqual, 1.0, 0.05)
	// nothing blocks the gap, so the door reads as open
	test.That(t, door.Open, test.ShouldBeTrue)

	// the door sits on the south wall
	test.That(t, door.Start.Y, test.ShouldAlmostEqual, 0.0, 0.1)
	test.That(t, door.End.Y, test.ShouldAlmostEqual, 0.0, 0.1)
}

func TestDetectWindowsSquareRoom(t *testing.T) {
	windows := newDetector(t).DetectWindows(squareRoomScan())
	test.That(t, len(windows), test.ShouldEqual, 1)

	window := windows[0]
	test.That(t, window.Kind, test.ShouldEqual, building.OpeningWindow)
	test.That(t, window.WidthM(), test.ShouldAlmostEqual, 0.6, 0.05)
	// an empty span has no sill points to measure
	test.That(t, window.SillHeightM, test.ShouldEqual, 0.0)

	// the window sits on the east wall
	test.That(t, window.Start.X, test.ShouldAlmostEqual, 6.0, 0.1)
	test.That(t, window.End.X, test.ShouldAlmostEqual, 6.0, 0.1)
}

func TestDetectOpeningsNoWalls(t *testing.T) {
	d := newDetector(t)
	scan := squareRoomScan()
	scan.Points = scan.Points[:5]

	test.That(t, d.DetectDoors(scan), test.ShouldBeEmpty)
	test.That(t, d.DetectWindows(scan), test.ShouldBeEmpty)
}
