// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// thnngen generates, from a catalog of THNN kernel declarations, the Backend interface, one cgo
// Backend implementation per selected variant and the differentiable operations that call them.
//
// Usage:
//
//	thnngen THNN.h --out ./nn --variants Float,Double
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/thnngen/pkg/codegen/catalog"
	"github.com/gomlx/thnngen/pkg/codegen/generator"
	"github.com/gomlx/thnngen/pkg/config"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// options of the command line.
type options struct {
	config   string
	out      string
	pkg      string
	variants []string
	strict   bool
}

var errDiagnostics = errors.New("some families or variants were skipped")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "thnngen <catalog>",
		Short: "Generates differentiable operations for the THNN kernels",
		Long: "thnngen reads a catalog of THNN kernels (a THNN.h header or a YAML catalog) and writes the Backend " +
			"interface, one cgo implementation per variant and the differentiable operations into --out.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args[0], cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.config, "config", "", "YAML file merged over the default configuration.")
	flags.StringVarP(&opts.out, "out", "o", ".", "Directory where the generated files are written.")
	flags.StringVar(&opts.pkg, "package", "", "Package of the generated files, overrides the configuration.")
	flags.StringSliceVar(&opts.variants, "variants", nil,
		"Comma-separated variants to generate a Backend implementation for, overrides the configuration.")
	flags.BoolVar(&opts.strict, "strict", false, "Fail if any family or variant is skipped.")

	goFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(goFlags)
	cmd.PersistentFlags().AddGoFlagSet(goFlags)
	return cmd
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.config != "" {
		var err error
		cfg, err = config.Load(opts.config)
		if err != nil {
			return nil, err
		}
	}
	if opts.pkg != "" {
		cfg.Package = opts.pkg
	}
	if len(opts.variants) > 0 {
		cfg.Generate = opts.variants
	}
	return cfg, nil
}

func run(opts *options, catalogPath string, w io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	functions, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}
	klog.V(1).Infof("thnngen: %d functions read from %s", len(functions), catalogPath)
	g, err := generator.New(cfg, filepath.Base(catalogPath))
	if err != nil {
		return err
	}
	artifacts, err := g.Generate(functions)
	if err != nil {
		return errors.WithMessagef(err, "failed to generate from %s", catalogPath)
	}
	outDir := must.M1(filepath.Abs(opts.out))
	written, err := artifacts.WriteDir(outDir)
	if err != nil {
		return err
	}

	report := artifacts.Report
	printReport(w, artifacts)
	for _, f := range artifacts.Files {
		_, _ = fmt.Fprintf(w, "✅ thnngen: \tsuccessfully generated %s\n", filepath.Join(outDir, f.Name))
	}
	_, _ = fmt.Fprintf(w, "thnngen: %d files, %s written; %d operations (%s)\n",
		len(artifacts.Files), humanize.Bytes(uint64(written)), report.Count(generator.StatusGenerated),
		strings.Join(cfg.Generate, ", "))
	if report.Failed() {
		_, _ = fmt.Fprintf(w, "❌ thnngen: \t%d families or variants skipped\n", len(report.Errors))
		if opts.strict {
			return errDiagnostics
		}
	}
	return nil
}
