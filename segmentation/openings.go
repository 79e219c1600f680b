package segmentation

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/buildscan/buildscan/building"
	"github.com/buildscan/buildscan/sensor"
)

// Opening gap bounds in meters, along the wall. The door range sits inside
// the window range, so classification checks doors first; only the
// leftover spans of the window range (very narrow or very wide gaps) read
// as windows. The window numbers are the same span the source system used
// for window heights and are kept as a documented approximation of gap
// length.
const (
	MinDoorGapM   = 0.7
	MaxDoorGapM   = 2.0
	MinWindowGapM = 0.6
	MaxWindowGapM = 2.1
)

// doorOpenResidualLimit is the number of residual points inside a door gap
// below which the door is judged open.
const doorOpenResidualLimit = 10

// DetectDoors re-runs wall detection on the scan and returns the gaps
// classified as doors. Failures yield an empty slice, never an error.
func (d *WallDetector) DetectDoors(scan sensor.LidarScan) []building.Opening {
	return d.detectOpenings(scan, building.OpeningDoor)
}

// DetectWindows re-runs wall detection on the scan and returns the gaps
// classified as windows. Failures yield an empty slice, never an error.
func (d *WallDetector) DetectWindows(scan sensor.LidarScan) []building.Opening {
	return d.detectOpenings(scan, building.OpeningWindow)
}

func (d *WallDetector) detectOpenings(scan sensor.LidarScan, kind building.OpeningKind) []building.Opening {
	points := scanVectors(scan)
	walls := d.DetectWalls(points)

	openings := []building.Opening{}
	for _, wall := range walls {
		for _, opening := range d.wallOpenings(wall, points) {
			if opening.Kind == kind {
				openings = append(openings, opening)
			}
		}
	}
	return openings
}

// wallOpenings sorts a wall's inliers along the wall direction and
// classifies every consecutive gap: door range first, then window range.
func (d *WallDetector) wallOpenings(wall Wall, allPoints []r3.Vector) []building.Opening {
	if len(wall.Inliers) < 2 {
		return nil
	}

	offsets := make([]float64, 0, len(wall.Inliers))
	for _, pt := range wall.Inliers {
		offsets = append(offsets, wall.project(pt))
	}
	sort.Float64s(offsets)

	var openings []building.Opening
	for i := 0; i+1 < len(offsets); i++ {
		gap := offsets[i+1] - offsets[i]
		opening := building.Opening{
			Start: wall.pointAt(offsets[i]),
			End:   wall.pointAt(offsets[i+1]),
		}
		switch {
		case gap >= MinDoorGapM && gap <= MaxDoorGapM:
			opening.Kind = building.OpeningDoor
			opening.Open = d.residualsInGap(wall, allPoints, offsets[i], offsets[i+1]) < doorOpenResidualLimit
		case gap >= MinWindowGapM && gap <= MaxWindowGapM:
			opening.Kind = building.OpeningWindow
			opening.SillHeightM = d.sillHeight(wall, allPoints, offsets[i], offsets[i+1])
		default:
			continue
		}
		openings = append(openings, opening)
	}
	return openings
}

// residualsInGap counts scan points inside the gap's footprint: within the
// inlier distance of the wall line and between the gap's offsets.
func (d *WallDetector) residualsInGap(wall Wall, points []r3.Vector, tStart, tEnd float64) int {
	count := 0
	for _, pt := range points {
		if wall.distanceToLine(pt) >= d.cfg.DistanceThresholdM {
			continue
		}
		t := wall.project(pt)
		if t > tStart && t < tEnd {
			count++
		}
	}
	return count
}

// sillHeight returns the minimum z among points near the window span, the
// best proxy for the sill without a vertical fit. Zero when the span holds
// no points.
func (d *WallDetector) sillHeight(wall Wall, points []r3.Vector, tStart, tEnd float64) float64 {
	sill := math.Inf(1)
	for _, pt := range points {
		if wall.distanceToLine(pt) >= d.cfg.DistanceThresholdM {
			continue
		}
		t := wall.project(pt)
		if t > tStart && t < tEnd && pt.Z < sill {
			sill = pt.Z
		}
	}
	if math.IsInf(sill, 1) {
		return 0
	}
	return sill
}
