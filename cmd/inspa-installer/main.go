// Command inspa-installer is the runtime stub binary: the "Stub
// Executable" spec.md §3.3 treats as opaque bytes the Builder copies
// verbatim ahead of the header/payload/tail/footer it appends. Built on
// its own, this binary is a bare stub with no container spliced on yet;
// the Builder appends one to produce a real installer. At runtime it
// locates the container appended to its own executable, extracts it,
// and runs post-install actions and environment edits (spec.md
// §4.6-§4.9).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inspa-build/inspa"
	"github.com/inspa-build/inspa/internal/logsink"
	"github.com/inspa-build/inspa/internal/progress"
	"github.com/inspa-build/inspa/internal/runtime"
)

func main() {
	os.Exit(run())
}

// run performs a single install and returns the process exit code. Every
// return path funnels through inspa.RunAtExit before main exits, the
// same guarantee the teacher's own funcmain gives its registered
// finalization hooks (cmd/distri/distri.go) — here it is the extractor's
// staging-dir cleanup backstop that needs to fire exactly once,
// regardless of which error path was taken.
func run() int {
	code := runInstall()
	if err := inspa.RunAtExit(); err != nil {
		fmt.Fprintf(os.Stderr, "inspa-installer: cleanup: %v\n", err)
		if code == 0 {
			code = 2
		}
	}
	return code
}

func runInstall() int {
	// Accept the Windows-style "/S" switch as an alias for -S.
	for i, a := range os.Args[1:] {
		if a == "/S" {
			os.Args[i+1] = "-S"
		}
	}
	silent := flag.Bool("S", false, "silent install: no UI, use install.default_path")
	installDirFlag := flag.String("d", "", "override the install directory (requires install.allow_user_path)")
	flag.Parse()

	exePath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspa-installer: %v\n", err)
		return 3
	}

	logDir := os.TempDir()
	sink, err := logsink.Open(logDir, !*silent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspa-installer: %v\n", err)
		return 3
	}

	q := progress.New(64)
	if !*silent {
		go printProgress(q)
	} else {
		go drainProgress(q)
	}

	ctx, canc := inspa.InterruptibleContext()
	defer canc()

	installDir := ""
	if *installDirFlag != "" {
		installDir = filepath.Clean(*installDirFlag)
	}
	outcome, err := runtime.Install(ctx, runtime.Options{
		ExecutablePath: exePath,
		InstallDir:     installDir,
		Silent:         *silent,
		Log:            sink,
		Queue:          q,
	})
	q.Close()

	if err != nil {
		sink.Printf("install failed: %v", err)
		sink.Close()
		fmt.Fprintf(os.Stderr, "inspa-installer: %v\n", err)
		return 2
	}

	sink.Printf("install succeeded: %s", outcome.InstallDir)
	if rerr := sink.Rotate(); rerr != nil {
		fmt.Fprintf(os.Stderr, "inspa-installer: log rotation: %v\n", rerr)
	}
	return 0
}

func printProgress(q *progress.Queue) {
	for ev := range q.Events() {
		switch ev.Kind {
		case progress.BytesProgressed:
			fmt.Printf("\r%s: %d/%d bytes", ev.CurrentFile, ev.BytesDone, ev.BytesTotal)
		case progress.PhaseChanged:
			fmt.Printf("\n%s...\n", ev.Phase)
		case progress.LogLine:
			fmt.Println(ev.Line)
		case progress.Completed:
			fmt.Println("\ndone")
		}
	}
}

func drainProgress(q *progress.Queue) {
	for range q.Events() {
	}
}
