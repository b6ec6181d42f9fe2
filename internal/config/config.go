// Package config holds the runtime settings shared by the CLI, the merge
// loop, and the dashboard. Settings come from an optional docmerger.yml and
// can be overridden per-flag by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogFileName is the process log written under the output directory.
const LogFileName = "docmerger.log"

// Settings holds every tunable of the merger.
type Settings struct {
	// InputDir is the folder watched for source documents.
	InputDir string `yaml:"inputDir,omitempty"`
	// OutputDir receives the merged artifact and the process log.
	OutputDir string `yaml:"outputDir,omitempty"`
	// OutputFile is the artifact's filename inside OutputDir.
	OutputFile string `yaml:"outputFile,omitempty"`
	// ProcessedFile is the path of the outcome ledger CSV.
	ProcessedFile string `yaml:"processedFile,omitempty"`
	// Extension filters candidate files in InputDir.
	Extension string `yaml:"extension,omitempty"`
	// Strategy selects the extraction behavior: "splice" or "structural".
	Strategy string `yaml:"strategy,omitempty"`
	// IntervalSeconds is the sleep between passes in loop mode.
	IntervalSeconds int `yaml:"intervalSeconds,omitempty"`
	// Addr is the dashboard listen address.
	Addr string `yaml:"addr,omitempty"`
	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose,omitempty"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		InputDir:        "input_docs",
		OutputDir:       "merged_output",
		OutputFile:      "merged.docx",
		ProcessedFile:   "processed.csv",
		Extension:       ".docx",
		Strategy:        "splice",
		IntervalSeconds: 300,
		Addr:            ":8080",
	}
}

// Load attempts to read docmerger.yml or docmerger.yaml from the given
// directory and lays the file's values over the defaults. Returns the plain
// defaults (not an error) if no config file exists.
func Load(dir string) (Settings, error) {
	for _, name := range []string{"docmerger.yml", "docmerger.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return parse(data, path)
	}
	return Default(), nil
}

// LoadFile reads settings from an explicitly named file. Unlike Load, a
// missing file is an error.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) (Settings, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first problem that would make the settings unusable.
func (s Settings) Validate() error {
	if s.InputDir == "" {
		return errors.New("config: inputDir must not be empty")
	}
	if s.OutputDir == "" {
		return errors.New("config: outputDir must not be empty")
	}
	if s.OutputFile == "" {
		return errors.New("config: outputFile must not be empty")
	}
	if s.ProcessedFile == "" {
		return errors.New("config: processedFile must not be empty")
	}
	if !strings.HasPrefix(s.Extension, ".") {
		return fmt.Errorf("config: extension must start with a dot, got %q", s.Extension)
	}
	if s.IntervalSeconds < 1 {
		return fmt.Errorf("config: intervalSeconds must be at least 1, got %d", s.IntervalSeconds)
	}
	return nil
}

// ArtifactPath is the full path of the merged artifact.
func (s Settings) ArtifactPath() string {
	return filepath.Join(s.OutputDir, s.OutputFile)
}

// LogPath is the full path of the process log file.
func (s Settings) LogPath() string {
	return filepath.Join(s.OutputDir, LogFileName)
}

// Interval is IntervalSeconds as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}
