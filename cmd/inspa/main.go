// Command inspa is the installer Builder's CLI: build, validate, inspect,
// extract and hash installer containers from the command line (spec.md
// §6.1). Verb dispatch follows the teacher's exact shape
// (cmd/distri/distri.go): a map[string]func(ctx, args) error keyed by
// verb name, one flag.FlagSet per verb, and inspa.InterruptibleContext
// for SIGINT/SIGTERM handling.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/inspa-build/inspa"
)

// Exit codes (spec.md §6.1): 0 success, 1 user/config error, 2
// integrity/runtime error, 3 I/O error.
const (
	exitOK        = 0
	exitUserError = 1
	exitRuntime   = 2
	exitIO        = 3
)

type cmd struct {
	fn func(ctx context.Context, args []string) error
}

func funcmain() int {
	verbs := map[string]cmd{
		"build":    {cmdbuild},
		"validate": {cmdvalidate},
		"inspect":  {cmdinspect},
		"extract":  {cmdextract},
		"hash":     {cmdhash},
		"gui":      {cmdgui},
		"example":  {cmdexample},
	}

	args := os.Args[1:]
	verb := "build"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		fmt.Fprintln(os.Stderr, "syntax: inspa <command> [-flags] [args]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "\tbuild    - build an installer from a configuration")
		fmt.Fprintln(os.Stderr, "\tvalidate - validate a configuration document")
		fmt.Fprintln(os.Stderr, "\tinspect  - print an installer's header metadata")
		fmt.Fprintln(os.Stderr, "\textract  - extract an installer's payload without running scripts")
		fmt.Fprintln(os.Stderr, "\thash     - print an installer's payload_sha256")
		fmt.Fprintln(os.Stderr, "\tgui      - launch the builder GUI")
		fmt.Fprintln(os.Stderr, "\texample  - write a sample configuration")
		return exitUserError
	}

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintln(os.Stderr, "syntax: inspa <command> [options]")
		return exitUserError
	}

	ctx, canc := inspa.InterruptibleContext()
	defer canc()

	fnErr := v.fn(ctx, args)
	if err := inspa.RunAtExit(); err != nil && fnErr == nil {
		fnErr = err
	}
	if fnErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", verb, fnErr)
		return exitCodeFor(fnErr)
	}
	return exitOK
}

func main() {
	os.Exit(funcmain())
}
