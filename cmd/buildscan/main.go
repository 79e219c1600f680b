// Package main contains a command to replay a recorded sensor capture
// through a mapping session and export the resulting artifacts.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/buildscan/buildscan/export"
	"github.com/buildscan/buildscan/mapper"
	"github.com/buildscan/buildscan/sensor"
)

var logger = golog.NewDevelopmentLogger("buildscan")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	CaptureFile string `flag:"0,required,usage=path to a JSONL sensor capture"`
	OutputDir   string `flag:"out,default=buildscan_out,usage=artifact output directory"`
	ConfigFile  string `flag:"config,usage=optional mapper config JSON"`
	Name        string `flag:"name,default=building,usage=building name"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg := mapper.DefaultConfig()
	if argsParsed.ConfigFile != "" {
		data, err := os.ReadFile(argsParsed.ConfigFile)
		if err != nil {
			return errors.Wrap(err, "reading config file")
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return errors.Wrap(err, "parsing config file")
		}
	}

	bm, err := mapper.NewBuildingMapper(cfg, export.NewJSONExporter(logger), logger)
	if err != nil {
		return err
	}
	return replayCapture(ctx, bm, argsParsed)
}

func replayCapture(ctx context.Context, bm *mapper.BuildingMapper, args Arguments) (err error) {
	f, err := os.Open(args.CaptureFile)
	if err != nil {
		return errors.Wrapf(err, "opening capture %q", args.CaptureFile)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if err := bm.StartMapping(uuid.NewString(), args.Name); err != nil {
		return err
	}

	scanner := bufio.NewScanner(f)
	// lidar scan lines can run long
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		reading, err := decodeCaptureRecord(line)
		if err != nil {
			return errors.Wrapf(err, "capture line %d", lineNo)
		}
		if err := bm.ProcessSensorData(reading); err != nil {
			return errors.Wrapf(err, "capture line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "reading capture")
	}

	artifacts, err := bm.CompleteMapping(ctx, args.OutputDir)
	if err != nil {
		return err
	}
	logger.Infow("capture replayed",
		"lines", lineNo,
		"rooms", artifacts.Metadata.RoomCount,
		"floors", artifacts.Metadata.FloorCount,
		"faults", artifacts.Metadata.FaultCount,
		"accuracy", artifacts.Metadata.AccuracyEstimate,
		"out", args.OutputDir,
	)

	if artifacts.Metadata.FaultCount > 0 {
		faultPath := filepath.Join(args.OutputDir, "faults.json")
		if err := bm.ExportErrorLog(ctx, faultPath); err != nil {
			return errors.Wrap(err, "writing fault log")
		}
		logger.Infow("fault log written", "path", faultPath)
	}
	return nil
}

// captureRecord is one line of a capture file: the sensor kind plus the
// raw sample payload.
type captureRecord struct {
	Kind   string          `json:"kind"`
	Sample json.RawMessage `json:"sample"`
}

func decodeCaptureRecord(data []byte) (sensor.Reading, error) {
	var rec captureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Kind {
	case "gnss":
		var s sensor.GNSSSample
		return s, json.Unmarshal(rec.Sample, &s)
	case "barometer":
		var s sensor.BarometricSample
		return s, json.Unmarshal(rec.Sample, &s)
	case "imu":
		var s sensor.InertialSample
		return s, json.Unmarshal(rec.Sample, &s)
	case "lidar":
		var s sensor.LidarScan
		return s, json.Unmarshal(rec.Sample, &s)
	default:
		return nil, errors.Errorf("unknown capture kind %q", rec.Kind)
	}
}
