// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/thnngen/pkg/codegen/generator"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	redRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

// tableWithReds highlights the rows of failures.
type tableWithReds struct {
	table *lgtable.Table
	count int
	reds  map[int]bool
}

func (t *tableWithReds) Row(isRed bool, row ...string) {
	if isRed {
		t.reds[t.count] = true
	}
	t.table.Row(row...)
	t.count++
}

func newTable(headers ...string) *tableWithReds {
	t := &tableWithReds{reds: make(map[int]bool)}
	t.table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers(headers...).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			switch {
			case row == lgtable.HeaderRow:
				return headerRowStyle
			case t.reds[row]:
				s = redRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			return s.Align(lipgloss.Left)
		})
	return t
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func printReport(w io.Writer, artifacts *generator.Artifacts) {
	report := artifacts.Report
	_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Operations (%d kernels, %d backend methods)",
		report.Functions, report.Methods)))
	families := newTable("Family", "Operation", "Kind", "Status", "Error")
	for _, f := range report.Families {
		kind := ""
		if f.Status != generator.StatusExcluded {
			kind = f.Kind.String()
		}
		families.Row(f.Status == generator.StatusSkipped, f.Key, f.Name, kind, string(f.Status), errorText(f.Err))
	}
	_, _ = fmt.Fprintln(w, families.table.Render())

	_, _ = fmt.Fprintln(w, titleStyle.Render("Backends"))
	variants := newTable("Variant", "File", "Size", "Error")
	for _, v := range report.Variants {
		size := "-"
		if contents, found := artifacts.File(v.File); found {
			size = humanize.Bytes(uint64(len(contents)))
		}
		variants.Row(v.Err != nil, v.Name, v.File, size, errorText(v.Err))
	}
	_, _ = fmt.Fprintln(w, variants.table.Render())
}
