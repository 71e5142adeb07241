package main

import (
	"context"
	"flag"

	"golang.org/x/xerrors"
)

const guiHelp = `inspa gui

Launches the builder GUI. The GUI itself is an external collaborator
(spec.md §6.1 Non-goals) — this verb only exists so "inspa gui" fails
with a clear message on a build of inspa that doesn't bundle one, rather
than "unknown command".`

func cmdgui(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("gui", flag.ExitOnError)
	fset.Usage = usage(fset, guiHelp)
	fset.Parse(args)

	return withCode(exitUserError, xerrors.Errorf("gui: no builder GUI is bundled with this build of inspa"))
}
