package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/inspa-build/inspa/internal/builder"
	"github.com/inspa-build/inspa/internal/logsink"
)

const buildHelp = `inspa build -c <config.json> -o <output.exe> -stub <stub.exe> [--verbose]

Builds a self-extracting installer from a configuration document and a
collected file manifest (spec.md §4.5).`

func cmdbuild(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		configPath = fset.String("c", "", "path to the installer configuration (JSON)")
		outputPath = fset.String("o", "", "path to write the built installer to")
		stubPath   = fset.String("stub", "", "path to the runtime stub executable to prepend")
		verbose    = fset.Bool("verbose", false, "also log build progress to stderr")
	)
	fset.Usage = usage(fset, buildHelp)
	fset.Parse(args)

	if *configPath == "" || *outputPath == "" || *stubPath == "" {
		return withCode(exitUserError, fmt.Errorf("syntax: inspa build -c <config> -o <output> -stub <stub>"))
	}

	sink, err := logsink.Open(os.TempDir(), *verbose)
	if err != nil {
		return err
	}
	defer sink.Close()

	result, err := builder.Build(ctx, builder.Options{
		ConfigPath: *configPath,
		StubPath:   *stubPath,
		OutputPath: *outputPath,
		Log:        sink,
	})
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d files, %d bytes payload, %s)\n", result.OutputPath, result.FileCount, result.PayloadSize, result.AlgoUsed)
	return nil
}
