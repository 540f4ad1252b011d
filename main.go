/*
Copyright 2022 The l7mp/stunner team.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/l7mp/dataset/internal/buildinfo"
	"github.com/l7mp/dataset/pkg/config"
	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/derived"
	"github.com/l7mp/dataset/pkg/parser"
)

var (
	version    = "dev"
	commitHash = "n/a"
	buildDate  = "<unknown>"
)

func main() {
	var dataFile, format, path, planFile, show, output, metricsAddr string

	flag.StringVar(&dataFile, "data", "", "The data file to load, '-' for the standard input.")
	flag.StringVar(&format, "format", "",
		"Input format: strict, objects, csv, tsv or arrow. Inferred from the file extension if empty.")
	flag.StringVar(&path, "path", "", "A JSONPath expression selecting the rows of an object document.")
	flag.StringVar(&planFile, "plan", "", "A derivation plan to apply to the loaded dataset.")
	flag.StringVar(&show, "show", config.SourceName, "The dataset to print.")
	flag.StringVar(&output, "output", "table", "Output format: table, json, arrow, dot or mermaid.")
	flag.StringVar(&metricsAddr, "metrics-bind-address", "",
		"Serve the recomputation metrics on this address after printing, until interrupted.")

	opts := zap.Options{
		Development:     true,
		DestWriter:      os.Stderr,
		StacktraceLevel: zapcore.Level(3),
		TimeEncoder:     zapcore.RFC3339NanoTimeEncoder,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := zap.New(zap.UseFlagOptions(&opts))
	ctrl.SetLogger(logger.WithName("dataset"))
	setupLog := logger.WithName("setup")

	buildInfo := buildinfo.BuildInfo{Version: version, CommitHash: commitHash, BuildDate: buildDate}
	setupLog.V(1).Info(fmt.Sprintf("starting dataset %s", buildInfo.String()))

	if err := derived.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		setupLog.Error(err, "unable to register metrics")
		os.Exit(1)
	}

	if dataFile == "" {
		setupLog.Error(errors.New("no data file"), "the -data flag is mandatory")
		os.Exit(1)
	}

	spec, err := readData(dataFile, format, path)
	if err != nil {
		setupLog.Error(err, "unable to read data", "file", dataFile)
		os.Exit(1)
	}

	source, err := dataset.New(dataset.Options{
		Name:     strings.TrimSuffix(filepath.Base(dataFile), filepath.Ext(dataFile)),
		Syncable: true,
		Logger:   logger,
	})
	if err != nil {
		setupLog.Error(err, "unable to create dataset")
		os.Exit(1)
	}
	if err := source.Load(spec); err != nil {
		setupLog.Error(err, "unable to load dataset", "file", dataFile)
		os.Exit(1)
	}
	setupLog.V(2).Info("dataset loaded", "name", source.Name(), "rows", source.Len(),
		"columns", source.ColumnNames())

	plan := &config.Plan{}
	if planFile != "" {
		if plan, err = config.ReadFile(planFile); err != nil {
			setupLog.Error(err, "unable to read plan", "file", planFile)
			os.Exit(1)
		}
	}

	res, err := plan.Apply(source, derived.Options{Logger: logger})
	if err != nil {
		setupLog.Error(err, "unable to apply plan", "file", planFile)
		os.Exit(1)
	}

	if err := render(os.Stdout, res, show, output); err != nil {
		setupLog.Error(err, "unable to print dataset", "dataset", show)
		os.Exit(1)
	}

	if metricsAddr == "" {
		return
	}

	ctx := ctrl.SetupSignalHandler()
	srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()} //nolint:gosec
	go func() {
		<-ctx.Done()
		srv.Close() //nolint:errcheck
	}()

	setupLog.Info("serving metrics", "address", metricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		setupLog.Error(err, "problem serving metrics")
		os.Exit(1)
	}
}

func readData(file, format, path string) (dataset.LoadSpec, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(file), ".")
	}

	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return dataset.LoadSpec{}, err
		}
		defer f.Close()
		r = f
	}

	switch format {
	case "csv":
		return parser.Delimited(r, parser.Options{})
	case "tsv":
		return parser.Delimited(r, parser.Options{Delimiter: '\t'})
	case "arrow", "arrows":
		return parser.Stream(r, parser.Options{})
	case "strict", "objects", "json", "yaml", "yml":
	default:
		return dataset.LoadSpec{}, fmt.Errorf("unknown input format %q", format)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return dataset.LoadSpec{}, err
	}

	// A bare list of objects is taken as object rows, anything else as a strict document.
	if format == "objects" || path != "" ||
		(format != "strict" && strings.HasPrefix(strings.TrimSpace(string(b)), "[")) {
		return parser.Objects(b, parser.Options{Path: path})
	}
	return parser.Strict(b, parser.Options{})
}
