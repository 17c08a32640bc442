package cmdutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cockroachdb/differ/reconcile"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

var outputFormat = string(OutputText)

func RegisterOutputFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&outputFormat,
		"format",
		outputFormat,
		"format of the result (text, json or yaml)",
	)
}

func Format() (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(outputFormat)); f {
	case OutputText, OutputJSON, OutputYAML:
		return f, nil
	}
	return "", errors.Newf("unknown format %q", outputFormat)
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))
)

type TableDoc struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

func tableDoc(t *rowset.Table) TableDoc {
	if t == nil {
		return TableDoc{}
	}
	return TableDoc{Columns: t.Columns, Rows: t.Strings()}
}

type SummaryDoc struct {
	Metric string `json:"metric" yaml:"metric"`
	Number int64  `json:"number" yaml:"number"`
}

type ColumnDoc struct {
	Column string   `json:"column" yaml:"column"`
	Rows   TableDoc `json:"rows" yaml:"rows"`
}

type SchemaMismatchDoc struct {
	LeftOnly  []string `json:"left_only" yaml:"left_only"`
	RightOnly []string `json:"right_only" yaml:"right_only"`
}

// ResultDoc is a run as printed by the CLI.
type ResultDoc struct {
	ID             string             `json:"id" yaml:"id"`
	Labels         [2]string          `json:"labels" yaml:"labels"`
	Match          bool               `json:"match" yaml:"match"`
	DurationMS     int64              `json:"duration_ms" yaml:"duration_ms"`
	SchemaMismatch *SchemaMismatchDoc `json:"schema_mismatch,omitempty" yaml:"schema_mismatch,omitempty"`
	Divergent      TableDoc           `json:"divergent" yaml:"divergent"`
	KeySummary     []SummaryDoc       `json:"key_summary" yaml:"key_summary"`
	RowSummary     []SummaryDoc       `json:"row_summary" yaml:"row_summary"`
	ColumnDiffs    []ColumnDoc        `json:"column_diffs,omitempty" yaml:"column_diffs,omitempty"`
	LeftOnly       TableDoc           `json:"left_only" yaml:"left_only"`
	RightOnly      TableDoc           `json:"right_only" yaml:"right_only"`
	Exported       []string           `json:"exported,omitempty" yaml:"exported,omitempty"`

	differentRows int64
}

func summaryDocs(rows []reconcile.SummaryRow) []SummaryDoc {
	ret := make([]SummaryDoc, len(rows))
	for i, r := range rows {
		ret[i] = SummaryDoc{Metric: r.Metric, Number: r.Number}
	}
	return ret
}

func NewResultDoc(result *reconcile.RunResult) (ResultDoc, error) {
	views, err := reconcile.BuildViews(result)
	if err != nil {
		return ResultDoc{}, err
	}
	labels := result.Labels()
	doc := ResultDoc{
		ID:         result.ID.String(),
		Labels:     labels,
		Match:      result.Match(),
		DurationMS: result.Duration.Milliseconds(),
		Divergent:  tableDoc(views.Divergent),
		LeftOnly:   tableDoc(views.LeftOnly),
		RightOnly:  tableDoc(views.RightOnly),
	}
	if m := result.SchemaMismatch; m != nil {
		doc.SchemaMismatch = &SchemaMismatchDoc{LeftOnly: m.LeftOnly, RightOnly: m.RightOnly}
	}
	if s := result.Summary; s != nil {
		doc.KeySummary = summaryDocs(s.KeyRows(labels))
		doc.RowSummary = summaryDocs(s.RowRows(labels))
		doc.differentRows = s.DifferentRows
	}
	for _, c := range views.ColumnDiffs {
		doc.ColumnDiffs = append(doc.ColumnDiffs, ColumnDoc{Column: c.Column, Rows: tableDoc(c.Rows)})
	}
	return doc, nil
}

// WriteResult prints doc in the given format.
func WriteResult(w io.Writer, format OutputFormat, doc ResultDoc) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case OutputYAML:
		b, err := yaml.MarshalWithOptions(doc, yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	_, err := io.WriteString(w, renderText(doc))
	return err
}

func renderTable(t TableDoc) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Columns...).
		Rows(t.Rows...).
		String()
}

func renderSummary(rows []SummaryDoc) string {
	t := TableDoc{Columns: []string{"Metric", "Number"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Metric, fmt.Sprintf("%d", r.Number)})
	}
	return renderTable(t)
}

func renderText(doc ResultDoc) string {
	var sections []string
	add := func(title string, body string) {
		sections = append(sections, titleStyle.Render(title), body)
	}
	if doc.Match {
		sections = append(sections, okStyle.Render("Datasets match!"))
	} else {
		sections = append(sections, warnStyle.Render("Differences found"))
	}
	if doc.SchemaMismatch != nil {
		sections = append(sections, warnStyle.Render(fmt.Sprintf(
			"Only shared columns were compared. Columns only in %s: [%s]; only in %s: [%s]",
			doc.Labels[0], strings.Join(doc.SchemaMismatch.LeftOnly, ", "),
			doc.Labels[1], strings.Join(doc.SchemaMismatch.RightOnly, ", "),
		)))
	}
	add(fmt.Sprintf("Divergent rows (%d)", len(doc.Divergent.Rows)), renderTable(doc.Divergent))
	if doc.KeySummary != nil {
		add("Key summary", renderSummary(doc.KeySummary))
		add("Row summary", renderSummary(doc.RowSummary))
	}
	if !doc.Match && doc.KeySummary != nil && doc.differentRows == 0 {
		sections = append(sections, okStyle.Render("All rows with matching keys are identical."))
	}
	for _, c := range doc.ColumnDiffs {
		add(fmt.Sprintf("%s (%d rows)", c.Column, len(c.Rows.Rows)), renderTable(c.Rows))
	}
	add(fmt.Sprintf("Only in %s (%d rows)", doc.Labels[0], len(doc.LeftOnly.Rows)), renderTable(doc.LeftOnly))
	add(fmt.Sprintf("Only in %s (%d rows)", doc.Labels[1], len(doc.RightOnly.Rows)), renderTable(doc.RightOnly))
	for _, loc := range doc.Exported {
		sections = append(sections, "exported "+loc)
	}
	return strings.Join(sections, "\n") + "\n"
}
