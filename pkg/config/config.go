// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package config holds the static data driving the generators: which kernels are wrapped,
// which families are excluded or renamed, and the per-variant type tables.
//
// Defaults are embedded (see defaults.yaml) and can be overridden by a user YAML file.
package config

import (
	_ "embed"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/thnngen/internal/sets"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the complete static configuration of a generation run.
type Config struct {
	// Package is the Go package name of the emitted files.
	Package string `yaml:"package"`

	// AutogradImport is the import path of the runtime package the emitted code depends on.
	AutogradImport string `yaml:"autograd_import"`

	// Separator between family and suffix in kernel names.
	Separator string `yaml:"separator"`

	// Generate lists the variants for which a concrete Backend implementation is emitted.
	Generate []string `yaml:"generate"`

	Backend  BackendConfig  `yaml:"backend"`
	Families FamiliesConfig `yaml:"families"`
	Types    TypesConfig    `yaml:"types"`
}

// BackendConfig selects which kernels get a Backend method.
type BackendConfig struct {
	// Interface is the name of the emitted capability interface.
	Interface string `yaml:"interface"`

	QualifyingSuffixes []string `yaml:"qualifying_suffixes"`
	ExcludedPrefixes   []string `yaml:"excluded_prefixes"`
	ExcludedSubstrings []string `yaml:"excluded_substrings"`
}

// FamiliesConfig drives the resolution of operation families.
type FamiliesConfig struct {
	CriterionMarkers []string          `yaml:"criterion_markers"`
	Excluded         []string          `yaml:"excluded"`
	Rename           map[string]string `yaml:"rename"`
}

// TypesConfig holds the type transformation tables.
type TypesConfig struct {
	Dispatch VariantConfig           `yaml:"dispatch"`
	Common   map[string]string       `yaml:"common"`
	Buckets  map[string]BucketConfig `yaml:"buckets"`
	Variants []VariantConfig         `yaml:"variants"`
}

// BucketConfig is shared by all variants of a device class.
type BucketConfig struct {
	// Preamble is the cgo preamble of the implementation files of the bucket's variants.
	Preamble string            `yaml:"preamble"`
	Table    map[string]string `yaml:"table"`
}

// VariantConfig describes one precision variant.
type VariantConfig struct {
	Name         string            `yaml:"name"`
	Bucket       string            `yaml:"bucket,omitempty"`
	KernelPrefix string            `yaml:"kernel_prefix,omitempty"`
	Table        map[string]string `yaml:"table"`
}

// Default returns a fresh copy of the embedded default configuration.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		exceptions.Panicf("embedded defaults.yaml is invalid: %+v", err)
	}
	return cfg
}

// Load returns the default configuration overridden by the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration %q", path)
	}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode configuration %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid configuration %q", path)
	}
	return cfg, nil
}

// Validate checks the internal consistency of the configuration.
func (c *Config) Validate() error {
	if c.Package == "" {
		return errors.New("package name is empty")
	}
	if c.Separator == "" {
		return errors.New("separator is empty")
	}
	if c.Backend.Interface == "" {
		return errors.New("backend interface name is empty")
	}
	if c.Types.Dispatch.Name == "" {
		return errors.New("the dispatch variant has no name")
	}
	seen := sets.MakeWith(c.Types.Dispatch.Name)
	for _, v := range c.Types.Variants {
		if v.Name == "" {
			return errors.New("variant with empty name")
		}
		if seen.Has(v.Name) {
			return errors.Errorf("variant %q defined more than once", v.Name)
		}
		seen.Insert(v.Name)
		if _, found := c.Types.Buckets[v.Bucket]; !found {
			return errors.Errorf("variant %q uses unknown bucket %q", v.Name, v.Bucket)
		}
		if v.KernelPrefix == "" {
			return errors.Errorf("variant %q has no kernel prefix", v.Name)
		}
	}
	for _, name := range c.Generate {
		if _, found := c.Variant(name); !found {
			return errors.Errorf("cannot generate unknown variant %q", name)
		}
	}
	return nil
}

// Variant returns the configuration of the concrete variant with the given name.
func (c *Config) Variant(name string) (VariantConfig, bool) {
	idx := slices.IndexFunc(c.Types.Variants, func(v VariantConfig) bool { return v.Name == name })
	if idx == -1 {
		return VariantConfig{}, false
	}
	return c.Types.Variants[idx], true
}

// Qualifies returns whether the kernel gets a Backend method: its name ends with one of the qualifying
// suffixes and it is not excluded by prefix or substring.
func (c *Config) Qualifies(name string) bool {
	if sets.HasPrefixOf(sets.MakeWith(c.Backend.ExcludedPrefixes...), name) ||
		sets.HasSubstringOf(sets.MakeWith(c.Backend.ExcludedSubstrings...), name) {
		return false
	}
	for _, suffix := range c.Backend.QualifyingSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
