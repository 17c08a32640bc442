package export

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
)

// Format is the file format tables are exported in.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return f, nil
	}
	return "", errors.Newf("unknown export format %q, expected one of csv, parquet", s)
}

// Options control how each table is encoded.
type Options struct {
	Format      Format
	Compression Compression
}

// Extension is appended to the name of each exported table. Parquet files
// compress their column chunks, so they keep the plain extension.
func (o Options) Extension() string {
	if o.Format == FormatParquet {
		return ".parquet"
	}
	return ".csv" + o.Compression.Extension()
}

// Encode writes t to buf.
func (o Options) Encode(buf *bytes.Buffer, t *rowset.Table) error {
	if o.Format == FormatParquet {
		return WriteParquet(buf, t, o.Compression)
	}
	var raw bytes.Buffer
	if err := WriteCSV(&raw, t); err != nil {
		return err
	}
	w, err := o.Compression.NewWriter(buf)
	if err != nil {
		return err
	}
	if _, err := w.Write(raw.Bytes()); err != nil {
		return errors.CombineErrors(err, w.Close())
	}
	return w.Close()
}

func parquetCompression(c Compression) parquet.WriterOption {
	switch c {
	case CompressionGzip:
		return parquet.Compression(&parquet.Gzip)
	case CompressionZstd:
		return parquet.Compression(&parquet.Zstd)
	case CompressionLZ4:
		return parquet.Compression(&parquet.Lz4Raw)
	}
	return parquet.Compression(&parquet.Uncompressed)
}

// WriteParquet writes t with an optional string column per table column,
// NULLs as parquet nulls.
func WriteParquet(buf *bytes.Buffer, t *rowset.Table, c Compression) error {
	group := make(parquet.Group, len(t.Columns))
	for _, col := range t.Columns {
		group[col] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("differ", group)

	rows := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make(map[string]any, len(row))
		for j, d := range row {
			var v any
			if d != nil && d != tree.DNull {
				v = rowset.FormatDatum(d)
			}
			rows[i][t.Columns[j]] = v
		}
	}

	w := parquet.NewGenericWriter[map[string]any](buf, schema, parquetCompression(c))
	if _, err := w.Write(rows); err != nil {
		return errors.CombineErrors(errors.Wrap(err, "failed to write parquet rows"), w.Close())
	}
	return errors.Wrap(w.Close(), "failed to close parquet writer")
}
