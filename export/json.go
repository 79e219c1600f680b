// Package export persists session artifacts as JSON documents.
package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/buildscan/buildscan/mapper"
	"github.com/buildscan/buildscan/sensor"
)

// Artifact file names written under the output directory.
const (
	BuildingMapFile = "building_map.json"
	SketchFile      = "sketch.json"
	ModelFile       = "model.json"
	MetadataFile    = "metadata.json"
)

// JSONExporter writes one JSON file per artifact under the output
// directory, creating the directory as needed.
type JSONExporter struct {
	logger golog.Logger
}

// NewJSONExporter returns an exporter logging through the given logger.
func NewJSONExporter(logger golog.Logger) *JSONExporter {
	return &JSONExporter{logger: logger}
}

// Export writes the building map, sketch, model, and metadata files. The
// first write failure aborts the export.
func (e *JSONExporter) Export(ctx context.Context, outputDir string, artifacts *mapper.Artifacts) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %q", outputDir)
	}
	files := []struct {
		name string
		doc  interface{}
	}{
		{BuildingMapFile, artifacts.Map},
		{SketchFile, artifacts.Sketch},
		{ModelFile, artifacts.Model},
		{MetadataFile, artifacts.Metadata},
	}
	for _, f := range files {
		path := filepath.Join(outputDir, f.name)
		if err := e.writeJSON(path, f.doc); err != nil {
			return err
		}
	}
	e.logger.Infow("artifacts exported", "dir", outputDir, "partial", artifacts.Metadata.Partial)
	return nil
}

// ExportFaults writes the fault log to the given path.
func (e *JSONExporter) ExportFaults(ctx context.Context, path string, faults []sensor.Fault) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if faults == nil {
		faults = []sensor.Fault{}
	}
	return e.writeJSON(path, faults)
}

func (e *JSONExporter) writeJSON(path string, doc interface{}) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	defer func() {
		if err != nil {
			goutils.UncheckedErrorFunc(f.Close)
			return
		}
		err = f.Close()
	}()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrapf(err, "encoding %q", path)
	}
	return nil
}
