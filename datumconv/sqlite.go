package datumconv

import (
	"time"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
)

// FromSQLiteValue converts a value scanned into an `any` from the sqlite3
// driver. SQLite is dynamically typed, so the datum type follows the value.
func FromSQLiteValue(val any) (tree.Datum, error) {
	switch val := val.(type) {
	case nil:
		return tree.DNull, nil
	case int64:
		return tree.NewDInt(tree.DInt(val)), nil
	case float64:
		return tree.NewDFloat(tree.DFloat(val)), nil
	case bool:
		return tree.MakeDBool(tree.DBool(val)), nil
	case string:
		return tree.NewDString(val), nil
	case []byte:
		return tree.NewDBytes(tree.DBytes(val)), nil
	case time.Time:
		return tree.MakeDTimestampTZ(val.UTC(), time.Microsecond)
	}
	return nil, errors.AssertionFailedf("sqlite value %v (%T) not yet translatable", val, val)
}

// FromSQLiteValues converts a full row.
func FromSQLiteValues(vals []any) (tree.Datums, error) {
	ret := make(tree.Datums, len(vals))
	for i, v := range vals {
		var err error
		if ret[i], err = FromSQLiteValue(v); err != nil {
			return nil, errors.Wrapf(err, "error converting column %d", i)
		}
	}
	return ret, nil
}
