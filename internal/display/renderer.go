// Package display prints command results as text, JSON or YAML.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"bqdesc-backupper/internal/execution"
	"bqdesc-backupper/internal/reconcile"
	"bqdesc-backupper/internal/store"
)

// OutputFormat represents different output format options
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(name string) (OutputFormat, error) {
	switch OutputFormat(name) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return OutputFormat(name), nil
	default:
		return "", fmt.Errorf("unknown output format %q (text, json, yaml)", name)
	}
}

// Renderer writes results to an output stream
type Renderer struct {
	format OutputFormat
	out    io.Writer
	colors *ColorSystem
}

// NewRenderer creates a renderer for stdout
func NewRenderer(format OutputFormat, noColor bool) *Renderer {
	return &Renderer{
		format: format,
		out:    os.Stdout,
		colors: NewColorSystem(os.Stdout, noColor || format != FormatText),
	}
}

// NewRendererTo creates a renderer writing to w without colors
func NewRendererTo(format OutputFormat, w io.Writer) *Renderer {
	return &Renderer{format: format, out: w, colors: newColorSystem(false)}
}

type summaryView struct {
	Direction execution.Direction    `json:"direction" yaml:"direction"`
	DryRun    bool                   `json:"dry_run" yaml:"dry_run"`
	Success   bool                   `json:"success" yaml:"success"`
	Counts    map[string]int         `json:"counts" yaml:"counts"`
	Exception int                    `json:"exception" yaml:"exception"`
	Failed    int                    `json:"failed" yaml:"failed"`
	Duration  string                 `json:"duration" yaml:"duration"`
	Items     []execution.ItemResult `json:"items,omitempty" yaml:"items,omitempty"`
}

// Summary prints the result of a batch backup or restore
func (r *Renderer) Summary(summary *execution.BatchSummary) error {
	view := summaryView{
		Direction: summary.Direction,
		DryRun:    summary.DryRun,
		Success:   summary.Success(),
		Counts:    summary.Counts,
		Exception: summary.Exception,
		Failed:    summary.Failed,
		Duration:  summary.Duration.String(),
		Items:     summary.Items,
	}
	if r.format != FormatText {
		return r.encode(view)
	}

	theme := r.colors.Theme()
	title := fmt.Sprintf("%s summary", view.Direction)
	if view.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(r.out, r.colors.Colorize(title, theme.Primary))

	counts := NewTable(nil)
	for _, label := range summary.Labels() {
		counts.AddRow("  "+label, strconv.Itoa(view.Counts[label]))
	}
	counts.AddRow("  exception", strconv.Itoa(view.Exception))
	fmt.Fprint(r.out, counts.Render())

	notable := NewTable(r.colors, "ENTITY", "ID", "OUTCOME", "DETAIL")
	for _, item := range view.Items {
		if item.Success && (item.Label == execution.LabelOK || item.Label == string(reconcile.KindSame)) {
			continue
		}
		notable.AddRow(item.Entity, item.ID, item.Label, item.Detail)
	}
	if notable.Len() > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprint(r.out, notable.Render())
	}

	fmt.Fprintln(r.out)
	if view.Success {
		fmt.Fprintln(r.out, r.colors.Sprintf(theme.Success, "Result: OK (%s)", view.Duration))
	} else {
		fmt.Fprintln(r.out, r.colors.Sprintf(theme.Error, "Result: FAILED (%s)", view.Duration))
	}
	return nil
}

type outcomeView struct {
	Entity  string `json:"entity" yaml:"entity"`
	ID      string `json:"id" yaml:"id"`
	Kind    string `json:"kind" yaml:"kind"`
	Success bool   `json:"success" yaml:"success"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Outcome prints the result of restoring one dataset or table
func (r *Renderer) Outcome(entity, id string, outcome reconcile.Outcome) error {
	return r.item(outcomeView{
		Entity:  entity,
		ID:      id,
		Kind:    string(outcome.Kind),
		Success: outcome.Success,
		Detail:  outcome.Detail,
	})
}

// Backup prints the result of backing up one dataset or table
func (r *Renderer) Backup(entity, id string, written bool) error {
	view := outcomeView{Entity: entity, ID: id, Kind: execution.LabelOK, Success: written}
	if !written {
		view.Kind = execution.LabelSkip
		view.Detail = "no description"
	}
	return r.item(view)
}

func (r *Renderer) item(view outcomeView) error {
	if r.format != FormatText {
		return r.encode(view)
	}

	theme := r.colors.Theme()
	clr := theme.Success
	if !view.Success {
		clr = theme.Error
	}
	line := fmt.Sprintf("[%s] [%s] %s", view.Entity, r.colors.Colorize(view.Kind, clr), view.ID)
	if view.Detail != "" {
		line += " " + r.colors.Colorize(view.Detail, theme.Muted)
	}
	_, err := fmt.Fprintln(r.out, line)
	return err
}

// Stats prints a datacheck report
func (r *Renderer) Stats(stats *store.Stats) error {
	if r.format != FormatText {
		return r.encode(stats)
	}

	theme := r.colors.Theme()
	fmt.Fprintln(r.out, r.colors.Colorize("datacheck", theme.Primary))

	t := NewTable(nil)
	t.AddRow("  datasets", fmt.Sprintf("%d (%d described)", stats.Datasets, stats.DatasetsWithDescription))
	t.AddRow("  tables", fmt.Sprintf("%d (%d described)", stats.Tables, stats.TablesWithDescription))
	t.AddRow("  fields", fmt.Sprintf("%d (%d described)", stats.Fields, stats.FieldsWithDescription))
	fmt.Fprint(r.out, t.Render())

	if len(stats.TablesWithoutDescription) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, r.colors.Colorize("tables without description:", theme.Warning))
		for _, id := range stats.TablesWithoutDescription {
			fmt.Fprintf(r.out, "  %s\n", id)
		}
	}

	if len(stats.Problems) > 0 {
		fmt.Fprintln(r.out)
		problems := NewTable(r.colors, "COLLECTION", "DOCUMENT", "PROBLEM")
		for _, p := range stats.Problems {
			problems.AddRow(p.Collection, p.DocumentID, p.Reason)
		}
		fmt.Fprint(r.out, problems.Render())
	}

	fmt.Fprintln(r.out)
	if stats.OK() {
		fmt.Fprintln(r.out, r.colors.Colorize("Result: OK", theme.Success))
	} else {
		fmt.Fprintln(r.out, r.colors.Sprintf(theme.Error, "Result: %d problem(s)", len(stats.Problems)))
	}
	return nil
}

// Snapshots prints the available snapshot ids
func (r *Renderer) Snapshots(ids []string) error {
	if r.format != FormatText {
		if ids == nil {
			ids = []string{}
		}
		return r.encode(map[string][]string{"snapshots": ids})
	}
	if len(ids) == 0 {
		_, err := fmt.Fprintln(r.out, "no snapshots")
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(r.out, id)
	}
	return nil
}

// Message prints a one-line status. fields are included in structured output.
func (r *Renderer) Message(message string, fields map[string]string) error {
	if r.format != FormatText {
		data := map[string]string{"message": message}
		for k, v := range fields {
			data[k] = v
		}
		return r.encode(data)
	}
	_, err := fmt.Fprintln(r.out, r.colors.Colorize(message, r.colors.Theme().Info))
	return err
}

// Raw writes pre-rendered bytes, e.g. a YAML sample
func (r *Renderer) Raw(data []byte) error {
	_, err := r.out.Write(data)
	return err
}

func (r *Renderer) encode(v interface{}) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to marshal output to JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to marshal output to YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", r.format)
	}
	return nil
}
