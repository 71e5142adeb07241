package runtime

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inspa-build/inspa/internal/config"
	"github.com/inspa-build/inspa/internal/container"
	"github.com/inspa-build/inspa/internal/manifest"
	"github.com/inspa-build/inspa/internal/progress"
)

func buildTestInstaller(t *testing.T, path string, cfg *config.Config, m manifest.Manifest, files map[string][]byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	stub := bytes.NewReader([]byte("MZ-fake-stub-bytes"))
	open := func(sourcePath string) (io.ReadCloser, error) {
		return ioutil.NopCloser(bytes.NewReader(files[sourcePath])), nil
	}
	if _, err := container.Build(f, stub, cfg, m, open, time.Unix(1700000000, 0)); err != nil {
		t.Fatal(err)
	}
}

func TestInstallExtractsAndCompletes(t *testing.T) {
	dir := t.TempDir()
	exePath := filepath.Join(dir, "installer.exe")
	installDir := filepath.Join(dir, "install")

	cfg := &config.Config{
		SchemaVersion: config.CurrentSchemaVersion,
		Product:       config.Product{Name: "Acme Widget", Version: "1.0.0"},
		Install:       config.Install{DefaultPath: installDir, AllowUserPath: true},
		Compression:   config.Compression{Algo: config.AlgoZstd, Level: 3, FallbackToZip: true},
		Inputs:        []config.InputSpec{{Path: "readme.txt"}},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	m := manifest.Manifest{{LogicalPath: "readme.txt", SourcePath: "readme.txt", Size: 6, MTime: 1000}}
	buildTestInstaller(t, exePath, cfg, m, map[string][]byte{"readme.txt": []byte("hello\n")})

	q := progress.New(64)
	outcome, err := Install(context.Background(), Options{
		ExecutablePath: exePath,
		InstallDir:     installDir,
		Queue:          q,
	})
	if err != nil {
		t.Fatal(err)
	}
	q.Close()

	if outcome.InstallDir != installDir {
		t.Fatalf("InstallDir = %q, want %q", outcome.InstallDir, installDir)
	}
	got, err := os.ReadFile(filepath.Join(installDir, "readme.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello\n" {
		t.Fatalf("content = %q", got)
	}

	var sawCompleted bool
	for ev := range q.Events() {
		if ev.Kind == progress.Completed {
			sawCompleted = true
		}
	}
	if !sawCompleted {
		t.Fatal("expected a Completed event")
	}
}

func TestInstallFailsOnTamperedPayload(t *testing.T) {
	dir := t.TempDir()
	exePath := filepath.Join(dir, "installer.exe")
	installDir := filepath.Join(dir, "install")

	cfg := &config.Config{
		SchemaVersion: config.CurrentSchemaVersion,
		Product:       config.Product{Name: "Acme Widget", Version: "1.0.0"},
		Install:       config.Install{DefaultPath: installDir, AllowUserPath: true},
		Compression:   config.Compression{Algo: config.AlgoZstd, Level: 3, FallbackToZip: true},
		Inputs:        []config.InputSpec{{Path: "readme.txt"}},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	m := manifest.Manifest{{LogicalPath: "readme.txt", SourcePath: "readme.txt", Size: 6, MTime: 1000}}
	buildTestInstaller(t, exePath, cfg, m, map[string][]byte{"readme.txt": []byte("hello\n")})

	raw, err := os.ReadFile(exePath)
	if err != nil {
		t.Fatal(err)
	}
	// Last payload byte: only the 32-byte legacy tail and the 72-byte
	// footer follow it.
	raw[len(raw)-72-32-1] ^= 0xFF
	if err := os.WriteFile(exePath, raw, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err = Install(context.Background(), Options{ExecutablePath: exePath, InstallDir: installDir})
	if err == nil {
		t.Fatal("Install() = nil error, want a verification failure")
	}
}

func TestResolveInstallDirRejectsOverrideWhenDisallowed(t *testing.T) {
	h := &config.Install{DefaultPath: `C:\Acme`, AllowUserPath: false}
	if _, err := ResolveInstallDir(h, `C:\Other`); err == nil {
		t.Fatal("ResolveInstallDir() = nil error, want a disallowed-override failure")
	}
	got, err := ResolveInstallDir(h, "")
	if err != nil {
		t.Fatal(err)
	}
	if got != `C:\Acme` {
		t.Fatalf("ResolveInstallDir() = %q, want default_path", got)
	}
}
