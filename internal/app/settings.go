// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings is the settings file, TOML or YAML by extension. Every field is
// optional; command-line flags take precedence over it.
type Settings struct {
	Root   string `toml:"root" yaml:"root"`
	Output string `toml:"output" yaml:"output"`
	Edits  string `toml:"edits" yaml:"edits"`
	Watch  bool   `toml:"watch" yaml:"watch"`

	Log struct {
		Level  string `toml:"level" yaml:"level"`
		Format string `toml:"format" yaml:"format"`
	} `toml:"log" yaml:"log"`

	Healthcheck struct {
		Port int `toml:"port" yaml:"port"`
	} `toml:"healthcheck" yaml:"healthcheck"`

	Layout struct {
		Timeout       duration `toml:"timeout" yaml:"timeout"`
		MaxIterations int      `toml:"max_iterations" yaml:"max_iterations"`
		Tolerance     float64  `toml:"tolerance" yaml:"tolerance"`
		Strict        bool     `toml:"strict" yaml:"strict"`
	} `toml:"layout" yaml:"layout"`

	Publish struct {
		URL       string `toml:"url" yaml:"url"`
		Namespace string `toml:"namespace" yaml:"namespace"`
		Event     string `toml:"event" yaml:"event"`
	} `toml:"publish" yaml:"publish"`
}

// duration decodes strings such as "5s".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// LoadSettings reads a settings file: .yaml and .yml files are YAML,
// anything else is TOML. Unknown keys are rejected so typos do not go
// unnoticed.
func LoadSettings(path string) (*Settings, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadTOML(path)
	}
}

func loadYAML(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	defer f.Close()

	var s Settings
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("unknown settings in %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	return &s, nil
}

func loadTOML(path string) (*Settings, error) {
	var s Settings
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown settings in %s: %s", path, strings.Join(keys, ", "))
	}
	return &s, nil
}

// Apply copies the values set in s into cfg.
func (s *Settings) Apply(cfg *Config) {
	setString(&cfg.RootDir, s.Root)
	setString(&cfg.OutputPath, s.Output)
	setString(&cfg.EditsPath, s.Edits)
	cfg.Watch = cfg.Watch || s.Watch
	setString(&cfg.LogLevel, s.Log.Level)
	setString(&cfg.LogFormat, s.Log.Format)
	if s.Healthcheck.Port != 0 {
		cfg.HealthcheckPort = s.Healthcheck.Port
	}
	if s.Layout.Timeout.Duration != 0 {
		cfg.Timeout = s.Layout.Timeout.Duration
	}
	if s.Layout.MaxIterations != 0 {
		cfg.MaxIterations = s.Layout.MaxIterations
	}
	if s.Layout.Tolerance != 0 {
		cfg.Tolerance = s.Layout.Tolerance
	}
	cfg.Strict = cfg.Strict || s.Layout.Strict
	setString(&cfg.PublishURL, s.Publish.URL)
	setString(&cfg.PublishNamespace, s.Publish.Namespace)
	setString(&cfg.PublishEvent, s.Publish.Event)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
