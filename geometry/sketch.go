// Package geometry derives renderable projections, a 2D sketch and a 3D
// mesh, from a frozen Building. Both are pure functions of their input and
// are recomputed on every request; nothing here mutates the aggregate.
package geometry

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/buildscan/buildscan/building"
	"github.com/buildscan/buildscan/utils"
)

// Config holds rendering hints attached to derived artifacts.
type Config struct {
	// Scale is meters-to-unit scaling recorded on the sketch.
	Scale float64 `json:"scale"`
	// RotationDeg rotates the plan counterclockwise about the origin
	// before the view box is computed.
	RotationDeg float64 `json:"rotation_deg"`
	// ViewBoxMarginM pads the sketch view box around the outermost corners.
	ViewBoxMarginM float64 `json:"view_box_margin_m"`
}

// DefaultConfig returns the standard rendering settings.
func DefaultConfig() Config {
	return Config{Scale: 1.0, RotationDeg: 0, ViewBoxMarginM: 1.0}
}

// Validate checks the config for usable values.
func (cfg Config) Validate() error {
	if cfg.Scale <= 0 {
		return errors.New("scale must be positive")
	}
	if cfg.ViewBoxMarginM < 0 {
		return errors.New("view_box_margin_m must not be negative")
	}
	return nil
}

// ViewBox is the sketch's drawable region in meters.
type ViewBox struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Segment is one drawable line in a sketch layer.
type Segment struct {
	Start building.Point2D `json:"start"`
	End   building.Point2D `json:"end"`
}

// Layers groups sketch segments by what they depict.
type Layers struct {
	Walls   []Segment `json:"walls"`
	Doors   []Segment `json:"doors"`
	Windows []Segment `json:"windows"`
}

// Sketch2D is the flattened floor-plan projection of a building.
type Sketch2D struct {
	ViewBox     ViewBox `json:"view_box"`
	Layers      Layers  `json:"layers"`
	Scale       float64 `json:"scale"`
	RotationDeg float64 `json:"rotation_deg"`
}

// Builder derives sketches and models from buildings.
type Builder struct {
	cfg    Config
	logger golog.Logger
}

// NewBuilder returns a geometry builder with the given config.
func NewBuilder(cfg Config, logger golog.Logger) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid geometry config")
	}
	return &Builder{cfg: cfg, logger: logger}, nil
}

// BuildSketch projects every room of every floor into one 2D plan.
func (b *Builder) BuildSketch(bld *building.Building) *Sketch2D {
	sketch := &Sketch2D{
		Layers:      Layers{Walls: []Segment{}, Doors: []Segment{}, Windows: []Segment{}},
		Scale:       b.cfg.Scale,
		RotationDeg: b.cfg.RotationDeg,
	}

	sin, cos := 0.0, 1.0
	if b.cfg.RotationDeg != 0 {
		rad := utils.DegToRad(b.cfg.RotationDeg)
		sin, cos = math.Sin(rad), math.Cos(rad)
	}
	rotate := func(p building.Point2D) building.Point2D {
		return building.Point2D{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	extend := func(p building.Point2D) {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	for _, floor := range bld.Floors {
		for _, room := range floor.Rooms {
			corners := room.Boundary.Corners
			for i, corner := range corners {
				start := rotate(corner)
				end := rotate(corners[(i+1)%len(corners)])
				extend(start)
				sketch.Layers.Walls = append(sketch.Layers.Walls, Segment{Start: start, End: end})
			}
			for _, door := range room.Doors {
				sketch.Layers.Doors = append(sketch.Layers.Doors, Segment{Start: rotate(door.Start), End: rotate(door.End)})
			}
			for _, window := range room.Windows {
				sketch.Layers.Windows = append(sketch.Layers.Windows, Segment{Start: rotate(window.Start), End: rotate(window.End)})
			}
		}
	}

	if len(sketch.Layers.Walls) == 0 {
		b.logger.Debugw("sketch built from empty building", "building_id", bld.ID)
		return sketch
	}

	margin := b.cfg.ViewBoxMarginM
	sketch.ViewBox = ViewBox{
		MinX:   minX - margin,
		MinY:   minY - margin,
		Width:  (maxX - minX) + 2*margin,
		Height: (maxY - minY) + 2*margin,
	}
	return sketch
}
