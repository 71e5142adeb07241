package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/inspa-build/inspa/internal/config"
)

const exampleHelp = `inspa example -o <path>

Writes a sample configuration document to <path>, as a starting point
for a new installer (spec.md §6.1).`

func sampleConfig() config.Config {
	return config.Config{
		SchemaVersion: config.CurrentSchemaVersion,
		Product: config.Product{
			Name:        "Acme Widget",
			Version:     "1.0.0",
			Company:     "Acme Corporation",
			Description: "The Acme Widget desktop application.",
		},
		UI: config.UI{
			WindowTitle:    "Acme Widget Setup",
			WelcomeHeading: "Welcome to the Acme Widget Setup Wizard",
		},
		Install: config.Install{
			DefaultPath:   `C:\Program Files\Acme Widget`,
			AllowUserPath: true,
			SilentAllowed: true,
		},
		Compression: config.Compression{
			Algo:          config.AlgoZstd,
			Level:         9,
			FallbackToZip: true,
		},
		Inputs: []config.InputSpec{
			{Path: "dist", Recursive: true, PreserveStructure: false},
		},
		Exclude: []string{"*.pdb", "*.log"},
		PostActions: []config.PostAction{
			{
				Type:       config.ScriptPowerShell,
				Command:    "post-install.ps1",
				TimeoutSec: 60,
				RunIf:      config.RunAlways,
				ShowInUI:   true,
			},
		},
		Env: config.Env{
			AddPath: []string{`%INSTALL_DIR%\bin`},
		},
	}
}

func cmdexample(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("example", flag.ExitOnError)
	out := fset.String("o", "", "path to write the sample configuration to")
	fset.Usage = usage(fset, exampleHelp)
	fset.Parse(args)

	if *out == "" {
		return withCode(exitUserError, fmt.Errorf("syntax: inspa example -o <path>"))
	}

	b, err := json.MarshalIndent(sampleConfig(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		return withCode(exitIO, err)
	}
	fmt.Printf("wrote sample configuration to %s\n", *out)
	return nil
}
