package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"

	"github.com/inspa-build/inspa/internal/container"
)

const hashHelp = `inspa hash <installer.exe>

Prints the installer's footer payload_sha256 (spec.md §6.1).`

func cmdhash(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("hash", flag.ExitOnError)
	fset.Usage = usage(fset, hashHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		return withCode(exitUserError, fmt.Errorf("syntax: inspa hash <installer>"))
	}

	c, err := container.Open(fset.Arg(0))
	if err != nil {
		return withCode(exitRuntime, err)
	}
	defer c.Close()

	fmt.Println(hex.EncodeToString(c.PayloadSHA256[:]))
	return nil
}
