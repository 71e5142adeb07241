package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/inspa-build/inspa/internal/container"
	"github.com/inspa-build/inspa/internal/extractor"
	"github.com/inspa-build/inspa/internal/progress"
)

const extractHelp = `inspa extract <installer.exe> -d <dir>

Runs the Container Reader and Extractor into <dir> without running any
post-install actions or environment edits (spec.md §6.1).`

func cmdextract(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("extract", flag.ExitOnError)
	dir := fset.String("d", "", "directory to extract into")
	fset.Usage = usage(fset, extractHelp)
	fset.Parse(args)

	if fset.NArg() != 1 || *dir == "" {
		return withCode(exitUserError, fmt.Errorf("syntax: inspa extract <installer> -d <dir>"))
	}

	c, err := container.Open(fset.Arg(0))
	if err != nil {
		return withCode(exitRuntime, err)
	}
	defer c.Close()

	if err := c.Verify(); err != nil {
		return withCode(exitRuntime, err)
	}

	q := progress.New(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range q.Events() {
			if ev.Kind == progress.FileStarted || ev.Kind == progress.BytesProgressed {
				fmt.Printf("\r%s: %d/%d bytes", ev.CurrentFile, ev.BytesDone, ev.BytesTotal)
			}
		}
		fmt.Println()
	}()

	err = extractor.Extract(ctx, c, *dir, q)
	q.Close()
	<-done
	if err != nil {
		return withCode(exitRuntime, err)
	}
	fmt.Printf("extracted to %s\n", *dir)
	return nil
}
