package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"

	"pctile/engine"
	"pctile/estimate"
	"pctile/store"
	"pctile/web"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Process struct {
		Input      []string `help:"The input point files forming the catalog." placeholder:"<input-files>" arg:"" type:"existingfile"`
		Algorithm  string   `help:"The estimation algorithm." enum:"tin,idw,kriging" default:"tin"`
		Resolution float64  `help:"Cell size of the estimated output grid." default:"1"`
		K          int      `help:"Number of neighbors for idw and kriging." default:"10"`
		Power      float64  `help:"Inverse distance power for idw." default:"2"`
		Variogram  string   `help:"Variogram model for kriging." enum:"spherical,exponential,gaussian" default:"spherical"`
		Range      float64  `help:"Variogram range for kriging." default:"50"`
		Sill       float64  `help:"Variogram sill for kriging." default:"1"`
		Nugget     float64  `help:"Variogram nugget for kriging." default:"0"`
		ChunkSize  float64  `help:"Edge length of processing chunks. 0 processes one chunk per input file." default:"0"`
		Buffer     float64  `help:"Overlap margin around each chunk." default:"0"`
		Workers    int      `help:"Number of chunks processed in parallel." default:"4"`
		Output     string   `help:"Output path template containing the {id} placeholder. Without it, results are merged into one GeoJSON file." placeholder:"<template>" optional:""`
		Geojson    string   `help:"Path of the merged GeoJSON output file." default:"output.geojson"`
	} `cmd:"" help:"Runs a spatial estimator over the catalog and writes the estimated surface."`
	Info struct {
		Input []string `help:"The input point files forming the catalog." placeholder:"<input-files>" arg:"" type:"existingfile"`
	} `cmd:"" help:"Prints extent and file inventory of a catalog."`
	Serve struct {
		Input []string `help:"The input point files forming the catalog." placeholder:"<input-files>" arg:"" type:"existingfile"`
		Port  string   `help:"The port to serve the API on." default:"8080"`
	} `cmd:"" help:"Serves the estimation API over HTTP."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("pctile"),
		kong.Description("Chunked parallel processing of point-cloud catalogs."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "process <input>":
		process()
	case "info <input>":
		info()
	case "serve <input>":
		cat, err := store.OpenCatalog(cli.Serve.Input)
		sigolo.FatalCheck(err)
		web.StartServer(cli.Serve.Port, cat)
	default:
		sigolo.Fatalf("Unknown command '%s'", ctx.Command())
	}
}

func process() {
	cat, err := store.OpenCatalog(cli.Process.Input)
	sigolo.FatalCheck(err)

	var estimator estimate.Estimator
	switch cli.Process.Algorithm {
	case "tin":
		estimator = estimate.NewTIN()
	case "idw":
		estimator = estimate.NewIDW(cli.Process.K, cli.Process.Power)
	case "kriging":
		model, modelErr := estimate.VariogramModelFromString(cli.Process.Variogram)
		sigolo.FatalCheck(modelErr)
		kriging := estimate.NewKriging(cli.Process.K, model, cli.Process.Range, cli.Process.Sill, cli.Process.Nugget)
		kriging.Verbose = strings.ToLower(cli.Logging) != "info"
		estimator = kriging
	}

	processor := estimate.NewGridProcessor(estimator, cli.Process.Resolution)

	buffer := cli.Process.Buffer
	if buffer < processor.MinBuffer() {
		sigolo.Infof("Raising buffer from %f to the required minimum %f", buffer, processor.MinBuffer())
		buffer = processor.MinBuffer()
	}

	result, err := engine.Apply(cat, processor, engine.Environment{
		Loader:      store.NewLoader(),
		Writer:      store.NewFileWriter(),
		OpenCatalog: store.OpenCatalog,
	}, engine.Options{
		ChunkSize:      cli.Process.ChunkSize,
		Buffer:         buffer,
		Workers:        cli.Process.Workers,
		NeedOutputFile: cli.Process.Output != "",
		OutputTemplate: cli.Process.Output,
	})
	if err != nil {
		// Best-effort run: successes below are still written, the failures are reported here
		sigolo.Errorf("Processing finished with failures: %+v", err)
	}
	if result == nil {
		return
	}

	if result.OutputCatalog != nil {
		sigolo.Infof("Wrote %d output files covering %v", len(result.OutputCatalog.Files), result.OutputCatalog.Extent)
	} else if result.Points != nil {
		err = store.WritePointsAsGeoJsonFile(result.Points, cli.Process.Geojson)
		sigolo.FatalCheck(err)
		sigolo.Infof("Wrote %d estimated points to %s", result.Points.Len(), cli.Process.Geojson)
	} else {
		sigolo.Info("No chunk produced a result")
	}
}

func info() {
	cat, err := store.OpenCatalog(cli.Info.Input)
	sigolo.FatalCheck(err)

	sigolo.Infof("Catalog extent: x=[%f, %f], y=[%f, %f]",
		cat.Extent.Min[0], cat.Extent.Max[0], cat.Extent.Min[1], cat.Extent.Max[1])
	sigolo.Infof("Total points: %d in %d files", cat.NumPoints(), len(cat.Files))
	for _, f := range cat.Files {
		sigolo.Infof("  %s: %d points, x=[%f, %f], y=[%f, %f]",
			f.Path, f.NumPoints, f.Bound.Min[0], f.Bound.Max[0], f.Bound.Min[1], f.Bound.Max[1])
	}
}
