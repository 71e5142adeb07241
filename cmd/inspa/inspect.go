package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/inspa-build/inspa/internal/container"
)

const inspectHelp = `inspa inspect <installer.exe> [--json]

Locates the container embedded in <installer.exe> and prints its header
metadata, without extracting anything (spec.md §6.1).`

func cmdinspect(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("inspect", flag.ExitOnError)
	asJSON := fset.Bool("json", false, "print the header as JSON")
	fset.Usage = usage(fset, inspectHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		return withCode(exitUserError, fmt.Errorf("syntax: inspa inspect <installer>"))
	}

	c, err := container.Open(fset.Arg(0))
	if err != nil {
		return withCode(exitRuntime, err)
	}
	defer c.Close()

	if c.Header == nil {
		fmt.Println("legacy cpio container: no header metadata available")
		fmt.Printf("files: %d\n", len(c.LegacyManifest))
		return nil
	}

	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(c.Header)
	}

	h := c.Header
	fmt.Printf("product:     %s %s\n", h.Product.Name, h.Product.Version)
	fmt.Printf("schema:      %d\n", h.SchemaVersion)
	fmt.Printf("compression: %s (level %d)\n", h.Compression.Algo, h.Compression.Level)
	fmt.Printf("files:       %d\n", len(h.Files))
	fmt.Printf("scripts:     %d\n", len(h.Scripts))
	fmt.Printf("hash:        %s\n", h.Hash.Archive)
	fmt.Printf("built:       %s (builder %s)\n", h.Build.Timestamp, h.Build.BuilderVersion)
	if c.Legacy {
		fmt.Println("note: read via the legacy header-scan compatibility path")
	}
	return nil
}
