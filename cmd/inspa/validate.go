package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/inspa-build/inspa/internal/config"
)

const validateHelp = `inspa validate -c <config.json> [--json]

Loads and validates a configuration document, printing the first
violation found (spec.md §3.1).`

func cmdvalidate(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("validate", flag.ExitOnError)
	var (
		configPath = fset.String("c", "", "path to the installer configuration (JSON)")
		asJSON     = fset.Bool("json", false, "emit the result as JSON")
	)
	fset.Usage = usage(fset, validateHelp)
	fset.Parse(args)

	if *configPath == "" {
		return withCode(exitUserError, fmt.Errorf("syntax: inspa validate -c <config>"))
	}

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		return withCode(exitIO, err)
	}
	cfg, err := config.Load(raw)
	if err != nil {
		return reportValidation(*asJSON, err)
	}
	if err := cfg.Validate(); err != nil {
		return reportValidation(*asJSON, err)
	}

	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"valid": true})
	}
	fmt.Println("configuration is valid")
	return nil
}

func reportValidation(asJSON bool, verr error) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(map[string]interface{}{"valid": false, "error": verr.Error()}); err != nil {
			return err
		}
		return withCode(exitUserError, verr)
	}
	return withCode(exitUserError, verr)
}
