// Package report emits the findings of a reconciliation run.
package report

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

type ReportableObject interface{}

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type StatusReport struct {
	Info string
}

// InvalidInput is a query or key that failed validation.
type InvalidInput struct {
	Side  string
	Label string
	Field string
	Value string
}

// SchemaMismatch lists the columns present on only one side.
type SchemaMismatch struct {
	LeftOnly  []string
	RightOnly []string
	Allowed   bool
}

// DatasetsMatch is reported when no row differs.
type DatasetsMatch struct {
	Labels [2]string
}

// DifferencesFound is reported when at least one row differs.
type DifferencesFound struct {
	Labels        [2]string
	DivergentRows int
}

// MismatchingRow is a key present on both sides with differing columns.
type MismatchingRow struct {
	Key                string
	MismatchingColumns []string
	LeftVals           []string
	RightVals          []string
}

// MissingRow is a key present on only one side.
type MissingRow struct {
	Label string
	Key   string
}

// Metric is a line of a summary.
type Metric struct {
	Name  string
	Value int64
}

type Summary struct {
	Title   string
	Metrics []Metric
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case StatusReport:
		l.Info().Msg(obj.Info)
	case InvalidInput:
		l.Error().
			Str("side", obj.Side).
			Str("label", obj.Label).
			Str(obj.Field, obj.Value).
			Msgf("invalid %s", obj.Field)
	case SchemaMismatch:
		ev := l.Error()
		if obj.Allowed {
			ev = l.Warn()
		}
		ev.
			Strs("left_only_columns", obj.LeftOnly).
			Strs("right_only_columns", obj.RightOnly).
			Bool("allowed", obj.Allowed).
			Msg("column sets differ")
	case DatasetsMatch:
		l.Info().
			Str("left", obj.Labels[0]).
			Str("right", obj.Labels[1]).
			Msg("Datasets match!")
	case DifferencesFound:
		l.Warn().
			Str("left", obj.Labels[0]).
			Str("right", obj.Labels[1]).
			Int("divergent_rows", obj.DivergentRows).
			Msg("Differences found")
	case MismatchingRow:
		leftVals := zerolog.Dict()
		rightVals := zerolog.Dict()
		for i, col := range obj.MismatchingColumns {
			leftVals = leftVals.Str(col, obj.LeftVals[i])
			rightVals = rightVals.Str(col, obj.RightVals[i])
		}
		l.Warn().
			Str("key", obj.Key).
			Dict("left_values", leftVals).
			Dict("right_values", rightVals).
			Msg("mismatching row")
	case MissingRow:
		l.Warn().
			Str("key", obj.Key).
			Str("only_in", obj.Label).
			Msg("key present on one side only")
	case Summary:
		ev := l.Info()
		for _, m := range obj.Metrics {
			ev = ev.Int64(m.Name, m.Value)
		}
		ev.Msg(obj.Title)
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func (l LogReporter) Close() {
}

// Collector keeps every reported object in memory.
type Collector struct {
	mu      sync.Mutex
	objects []ReportableObject
	closed  bool
}

func (c *Collector) Report(obj ReportableObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = append(c.objects, obj)
}

func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Objects returns the reported objects in order.
func (c *Collector) Objects() []ReportableObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ReportableObject(nil), c.objects...)
}

func (c *Collector) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
