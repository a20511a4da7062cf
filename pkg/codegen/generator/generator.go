// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package generator runs the complete generation over a catalog: the Backend interface, one Backend
// implementation per selected variant and the differentiable operations.
//
// Failures are isolated: a variant with an unmapped type or a family that can't be planned is reported and
// skipped, everything else is still generated. A family whose kernels the dispatch variant can't declare
// is left out of every file, including the Backend interface.
package generator

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/thnngen/pkg/codegen/argplan"
	"github.com/gomlx/thnngen/pkg/codegen/backendgen"
	"github.com/gomlx/thnngen/pkg/codegen/catalog"
	"github.com/gomlx/thnngen/pkg/codegen/families"
	"github.com/gomlx/thnngen/pkg/codegen/opgen"
	"github.com/gomlx/thnngen/pkg/codegen/typemap"
	"github.com/gomlx/thnngen/pkg/config"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Generator holds the emitters configured for one catalog.
type Generator struct {
	cfg      *config.Config
	registry *typemap.Registry
	backends *backendgen.Emitter
	resolver *families.Resolver
	builder  *argplan.Builder
	ops      *opgen.Emitter
}

// New creates a Generator. The source names the catalog in the banner of the generated files.
func New(cfg *config.Config, source string) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid configuration")
	}
	registry, err := typemap.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return &Generator{
		cfg:      cfg,
		registry: registry,
		backends: backendgen.New(cfg, registry, source),
		resolver: families.NewResolver(cfg),
		builder:  argplan.NewBuilder(registry.Dispatch(), cfg.Separator),
		ops:      opgen.New(cfg, source),
	}, nil
}

// Artifact is one generated file.
type Artifact struct {
	Name    string
	Content []byte
}

// Artifacts holds the generated files, in a fixed order: the interface, the operations and then the
// implementations in the order of the selected variants.
type Artifacts struct {
	Files  []Artifact
	Report *Report
}

// File returns the contents of the named generated file.
func (a *Artifacts) File(name string) ([]byte, bool) {
	for _, f := range a.Files {
		if f.Name == name {
			return f.Content, true
		}
	}
	return nil, false
}

// WriteDir writes all files into dir, creating it if needed, and returns the number of bytes written.
func (a *Artifacts) WriteDir(dir string) (int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "failed to create output directory %q", dir)
	}
	var total int64
	for _, f := range a.Files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return total, errors.Wrapf(err, "failed to write %q", path)
		}
		klog.V(1).Infof("generator: wrote %s (%d bytes)", path, len(f.Content))
		total += int64(len(f.Content))
	}
	return total, nil
}

// Generate runs all emitters over the catalog functions.
func (g *Generator) Generate(functions []catalog.FunctionDescriptor) (*Artifacts, error) {
	var artifacts *Artifacts
	var err error
	if panicErr := exceptions.TryCatch[error](func() {
		artifacts, err = g.generate(functions)
	}); panicErr != nil {
		return nil, errors.WithMessage(panicErr, "generation failed")
	}
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (g *Generator) generate(functions []catalog.FunctionDescriptor) (*Artifacts, error) {
	report := &Report{Functions: len(functions)}
	artifacts := &Artifacts{Report: report}
	functions = g.dropUndeclarable(functions, report)
	report.Methods = len(g.backends.Qualifying(functions))

	backendSrc, err := g.backends.Interface(functions)
	if err != nil {
		return nil, err
	}
	artifacts.Files = append(artifacts.Files, Artifact{Name: backendgen.InterfaceFile, Content: backendSrc})

	// Operations.
	resolution := g.resolver.Resolve(functions)
	for _, key := range resolution.Excluded {
		report.Families = append(report.Families, FamilyOutcome{Key: key, Name: key, Status: StatusExcluded})
	}
	for _, err := range resolution.Errors {
		var incomplete *families.IncompleteFamilyError
		var collision *families.NameCollisionError
		key := ""
		switch {
		case errors.As(err, &incomplete):
			key = incomplete.Family
		case errors.As(err, &collision):
			key = collision.Family
		}
		report.Families = append(report.Families, FamilyOutcome{Key: key, Name: key, Status: StatusSkipped, Err: err})
		report.Errors = append(report.Errors, err)
	}
	var plans []*argplan.Plan
	for _, family := range resolution.Families {
		outcome := FamilyOutcome{Key: family.Key, Name: family.Name, Kind: family.Kind}
		plan, err := g.builder.Build(family)
		if err != nil {
			err = errors.WithMessagef(err, "family %s", family.Key)
			klog.Warningf("generator: skipping family %s: %v", family.Key, err)
			outcome.Status, outcome.Err = StatusSkipped, err
			report.Errors = append(report.Errors, err)
		} else {
			outcome.Status = StatusGenerated
			plans = append(plans, plan)
		}
		report.Families = append(report.Families, outcome)
	}
	sortFamilies(report.Families)
	artifacts.Files = append(artifacts.Files, Artifact{Name: opgen.File, Content: g.ops.Operations(plans)})

	// Implementations.
	for _, name := range g.cfg.Generate {
		outcome := VariantOutcome{Name: name, File: backendgen.ImplementationFile(name)}
		src, err := g.backends.Implementation(name, functions)
		if err != nil {
			err = errors.WithMessagef(err, "variant %s", name)
			klog.Warningf("generator: skipping variant %s: %v", name, err)
			outcome.Err = err
			report.Errors = append(report.Errors, err)
		} else {
			artifacts.Files = append(artifacts.Files, Artifact{Name: outcome.File, Content: src})
		}
		report.Variants = append(report.Variants, outcome)
	}
	klog.V(1).Infof("generator: %d files, %d errors", len(artifacts.Files), len(report.Errors))
	return artifacts, nil
}

// dropUndeclarable removes the families with a qualifying kernel the dispatch variant can't declare, and
// reports them as skipped.
func (g *Generator) dropUndeclarable(functions []catalog.FunctionDescriptor, report *Report) []catalog.FunctionDescriptor {
	dispatch := g.registry.Dispatch()
	rejected := make(map[string]error)
	var keys []string
	for _, fn := range g.backends.Qualifying(functions) {
		key := fn.Family(g.cfg.Separator)
		if _, found := rejected[key]; found {
			continue
		}
		if err := dispatch.Validate([]catalog.FunctionDescriptor{fn}); err != nil {
			err = errors.WithMessagef(err, "family %s: the dispatch variant %s can't declare %s", key, dispatch.Name, fn.Name)
			klog.Warningf("generator: skipping family %s: %v", key, err)
			rejected[key] = err
			keys = append(keys, key)
		}
	}
	if len(rejected) == 0 {
		return functions
	}
	slices.Sort(keys)
	for _, key := range keys {
		report.Families = append(report.Families, FamilyOutcome{Key: key, Name: key, Status: StatusSkipped, Err: rejected[key]})
		report.Errors = append(report.Errors, rejected[key])
	}
	return slices.DeleteFunc(slices.Clone(functions), func(fn catalog.FunctionDescriptor) bool {
		_, found := rejected[fn.Family(g.cfg.Separator)]
		return found
	})
}
