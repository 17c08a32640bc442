package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/reconcile"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// File is a table exported under Name and the extension of the export.
type File struct {
	Name  string
	Table *rowset.Table
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Files lists the files of an export of views. Summary tables are skipped
// when absent.
func Files(views *reconcile.Views) []File {
	files := []File{{Name: "divergent", Table: views.Divergent}}
	if views.KeySummary != nil {
		files = append(files, File{Name: "key_summary", Table: views.KeySummary})
	}
	if views.RowSummary != nil {
		files = append(files, File{Name: "row_summary", Table: views.RowSummary})
	}
	// Sanitized names may collide, also on case-insensitive file systems.
	used := make(map[string]struct{})
	for _, c := range views.ColumnDiffs {
		base := "column_" + unsafeChars.ReplaceAllString(c.Column, "_")
		name := base
		for i := 2; ; i++ {
			if _, ok := used[strings.ToLower(name)]; !ok {
				break
			}
			name = fmt.Sprintf("%s_%d", base, i)
		}
		used[strings.ToLower(name)] = struct{}{}
		files = append(files, File{Name: name, Table: c.Rows})
	}
	return append(
		files,
		File{Name: "left_only", Table: views.LeftOnly},
		File{Name: "right_only", Table: views.RightOnly},
	)
}

// WriteCSV writes the header and rows of t. NULLs are written as empty
// fields.
func WriteCSV(buf *bytes.Buffer, t *rowset.Table) error {
	w := csv.NewWriter(buf)
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, d := range row {
			if d != nil && d != tree.DNull {
				rec[i] = rowset.FormatDatum(d)
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Export writes every view of result to the store under the run ID and
// returns the created locations.
func Export(
	ctx context.Context,
	logger zerolog.Logger,
	store Store,
	result *reconcile.RunResult,
	opts Options,
) ([]string, error) {
	views, err := reconcile.BuildViews(result)
	if err != nil {
		return nil, err
	}
	var locations []string
	for _, f := range Files(views) {
		var out bytes.Buffer
		if err := opts.Encode(&out, f.Table); err != nil {
			return locations, errors.Wrapf(err, "error encoding %s", f.Name)
		}
		key := path.Join(result.ID.String(), f.Name+opts.Extension())
		loc, err := store.CreateFromReader(ctx, &out, key)
		if err != nil {
			return locations, errors.Wrapf(err, "error exporting %s", f.Name)
		}
		logger.Debug().Str("location", loc).Int("rows", f.Table.Len()).Msg("exported table")
		locations = append(locations, loc)
	}
	logger.Info().Int("files", len(locations)).Msg("export complete")
	return locations, nil
}
