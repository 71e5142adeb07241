package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		SchemaVersion: 1,
		Product:       Product{Name: "Acme Widget", Version: "1.0.0"},
		Install:       Install{DefaultPath: `C:\Users\me\AppData\Local\Acme\Widget`},
		Compression:   Compression{Algo: AlgoZstd, Level: 9},
		Inputs:        []InputSpec{{Path: "dist", Recursive: true}},
	}
}

func TestValidateAccepts(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRequireAdminPromotion(t *testing.T) {
	c := validConfig()
	c.Install.DefaultPath = `C:\Program Files\Acme\Widget`
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if !c.Install.RequireAdmin {
		t.Errorf("RequireAdmin = false, want true for a Program Files install path")
	}
}

func TestValidateRejectsBadSchema(t *testing.T) {
	c := validConfig()
	c.SchemaVersion = 99
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want error for unsupported schema_version")
	}
}

func TestValidateRejectsBadZstdLevel(t *testing.T) {
	c := validConfig()
	c.Compression.Level = 0
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "level") {
		t.Fatalf("Validate() = %v, want error mentioning level", err)
	}
}

func TestValidateRejectsMissingInputs(t *testing.T) {
	c := validConfig()
	c.Inputs = nil
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want error for empty inputs")
	}
}

func TestValidateRejectsBadPostAction(t *testing.T) {
	c := validConfig()
	c.PostActions = []PostAction{{Type: "vbscript", Command: "x", TimeoutSec: 1, RunIf: RunAlways}}
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want error for unsupported script type")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	c1 := validConfig()
	c2 := validConfig()
	f1, err := c1.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	f2, err := c2.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Errorf("Fingerprint() not deterministic: %s != %s", f1, f2)
	}

	c2.Product.Version = "1.0.1"
	f3, err := c2.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	if f1 == f3 {
		t.Errorf("Fingerprint() unchanged after config edit")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	c := validConfig()
	_ = c
	b := []byte(`{
		"schema_version": 1,
		"product": {"name": "Acme Widget", "version": "1.0.0"},
		"install": {"default_path": "C:\\Users\\me\\AppData\\Local\\Acme\\Widget"},
		"compression": {"algo": "zstd", "level": 9},
		"inputs": [{"path": "dist", "recursive": true}]
	}`)
	got, err := Load(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate() after Load = %v", err)
	}
	if got.Product.Name != "Acme Widget" {
		t.Errorf("Product.Name = %q, want Acme Widget", got.Product.Name)
	}
}
