// Package config holds the Configuration Record (spec.md §3.1): a
// validated, immutable description of a single installer build. Loading it
// from YAML text is outside this package's concern (spec.md §1 scopes YAML
// parsing mechanics out); callers hand this package an already-populated
// Config, or unmarshal one from JSON, which reuses the same encoding the
// header already commits to on the wire.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// CompressionAlgo identifies a payload compression algorithm.
type CompressionAlgo string

const (
	AlgoZstd CompressionAlgo = "zstd"
	AlgoZip  CompressionAlgo = "zip"
)

// ScriptType identifies a post-install action's interpreter.
type ScriptType string

const (
	ScriptPowerShell ScriptType = "powershell"
	ScriptBatch      ScriptType = "batch"
)

// RunIf identifies when a post-install action runs relative to the
// actions preceding it.
type RunIf string

const (
	RunAlways  RunIf = "always"
	RunSuccess RunIf = "success"
	RunFailure RunIf = "failure"
)

// CurrentSchemaVersion is the newest schema_version this builder
// understands. Config.SchemaVersion is the version the configuration
// document itself declares; Validate accepts 1 through
// CurrentSchemaVersion, and the Container Writer copies the declared
// value into the header.
const CurrentSchemaVersion = 1

// Product carries the installer's displayed identity.
type Product struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description,omitempty"`
}

// UI carries strings and theme hints opaque to the core; copied verbatim
// into the header for the (externally implemented) installer GUI.
type UI struct {
	WindowTitle     string `json:"window_title,omitempty"`
	WelcomeHeading  string `json:"welcome_heading,omitempty"`
	WelcomeSubtitle string `json:"welcome_subtitle,omitempty"`
	Theme           string `json:"theme,omitempty"`
}

// Install carries install-directory and privilege policy.
type Install struct {
	DefaultPath    string `json:"default_path"`
	AllowUserPath  bool   `json:"allow_user_path"`
	ForceHiddenPath bool  `json:"force_hidden_path"`
	SilentAllowed  bool   `json:"silent_allowed"`
	RequireAdmin   bool   `json:"require_admin"`
	LicenseFile    string `json:"license_file,omitempty"`
	PrivacyFile    string `json:"privacy_file,omitempty"`
}

// Compression carries the payload compression policy.
type Compression struct {
	Algo          CompressionAlgo `json:"algo"`
	Level         int             `json:"level,omitempty"`
	FallbackToZip bool            `json:"fallback_to_zip,omitempty"`
}

// InputSpec describes one root the File Collector walks.
type InputSpec struct {
	Path              string `json:"path"`
	Recursive         bool   `json:"recursive"`
	PreserveStructure bool   `json:"preserve_structure"`
}

// PostAction describes one post-install script invocation.
type PostAction struct {
	Type       ScriptType `json:"type"`
	Command    string     `json:"command"`
	Args       []string   `json:"args,omitempty"`
	TimeoutSec int        `json:"timeout_sec"`
	RunIf      RunIf      `json:"run_if"`
	Hidden     bool       `json:"hidden"`
	ShowInUI   bool       `json:"show_in_ui"`
	WorkingDir string     `json:"working_dir,omitempty"`
}

// Env describes PATH and variable edits to apply after extraction.
type Env struct {
	AddPath     []string          `json:"add_path,omitempty"`
	Set         map[string]string `json:"set,omitempty"`
	SystemScope bool              `json:"system_scope,omitempty"`
}

// Resources names inputs consumed only by the external resource patcher.
type Resources struct {
	Icon string `json:"icon,omitempty"`
}

// Config is the full Configuration Record.
type Config struct {
	SchemaVersion int         `json:"schema_version"`
	Product       Product     `json:"product"`
	UI            UI          `json:"ui"`
	Install       Install     `json:"install"`
	Compression   Compression `json:"compression"`
	Inputs        []InputSpec `json:"inputs"`
	Exclude       []string    `json:"exclude,omitempty"`
	PostActions   []PostAction `json:"post_actions,omitempty"`
	Env           Env         `json:"env"`
	Resources     Resources   `json:"resources,omitempty"`
}

// systemPrefixes are install-path prefixes considered privileged; a
// default_path under one of them promotes RequireAdmin to true during
// validation (spec.md §3.1).
var systemPrefixes = []string{
	`C:\Program Files`,
	`C:\Program Files (x86)`,
	`C:\Windows`,
}

// Validate checks invariants and normalizes derived fields (the
// RequireAdmin promotion). It mutates the receiver in place and returns
// an error describing the first violation found.
func (c *Config) Validate() error {
	if !SupportedSchemaVersion(c.SchemaVersion) {
		return xerrors.Errorf("config: unsupported schema_version %d", c.SchemaVersion)
	}
	if c.Product.Name == "" {
		return xerrors.Errorf("config: product.name is required")
	}
	if c.Product.Version == "" {
		return xerrors.Errorf("config: product.version is required")
	}
	if c.Install.DefaultPath == "" {
		return xerrors.Errorf("config: install.default_path is required")
	}
	switch c.Compression.Algo {
	case AlgoZstd:
		if c.Compression.Level < 1 || c.Compression.Level > 22 {
			return xerrors.Errorf("config: compression.level must be in [1,22] for zstd, got %d", c.Compression.Level)
		}
	case AlgoZip:
		// level is not meaningful for the stored-ZIP fallback.
	default:
		return xerrors.Errorf("config: compression.algo must be zstd or zip, got %q", c.Compression.Algo)
	}
	if len(c.Inputs) == 0 {
		return xerrors.Errorf("config: at least one input is required")
	}
	for i, in := range c.Inputs {
		if in.Path == "" {
			return xerrors.Errorf("config: inputs[%d].path is required", i)
		}
	}
	for i, pa := range c.PostActions {
		switch pa.Type {
		case ScriptPowerShell, ScriptBatch:
		default:
			return xerrors.Errorf("config: post_actions[%d].type must be powershell or batch, got %q", i, pa.Type)
		}
		switch pa.RunIf {
		case RunAlways, RunSuccess, RunFailure:
		default:
			return xerrors.Errorf("config: post_actions[%d].run_if must be always, success or failure, got %q", i, pa.RunIf)
		}
		if pa.TimeoutSec <= 0 {
			return xerrors.Errorf("config: post_actions[%d].timeout_sec must be positive", i)
		}
		if pa.Command == "" {
			return xerrors.Errorf("config: post_actions[%d].command is required", i)
		}
	}

	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(strings.ToLower(c.Install.DefaultPath), strings.ToLower(prefix)) {
			c.Install.RequireAdmin = true
			break
		}
	}

	return nil
}

// SupportedSchemaVersion reports whether this builder understands the
// given configuration schema_version.
func SupportedSchemaVersion(v int) bool {
	return v >= 1 && v <= CurrentSchemaVersion
}

// Fingerprint returns the SHA-256 digest of a canonical JSON re-encoding
// of c, used as header.build.config_fingerprint (spec.md §3.4).
func (c *Config) Fingerprint() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", xerrors.Errorf("config: fingerprint encode: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return fmt.Sprintf("%x", sum), nil
}

// Load unmarshals a JSON-encoded configuration document.
func Load(b []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, xerrors.Errorf("config: %w", err)
	}
	return &c, nil
}
