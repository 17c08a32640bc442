package datumconv

import (
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/cockroachdb-parser/pkg/util/json"
	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
)

// MySQLTypeToOID maps a MySQL type name, as reported by
// sql.ColumnType.DatabaseTypeName, to the OID its values decode as.
// Unknown types decode as text.
func MySQLTypeToOID(dataType string) oid.Oid {
	dataType = strings.ToLower(strings.TrimSpace(dataType))
	dataType = strings.TrimPrefix(dataType, "unsigned ")
	switch dataType {
	case "integer", "int", "mediumint":
		return oid.T_int4
	case "smallint", "tinyint", "year":
		return oid.T_int2
	case "bigint":
		return oid.T_int8
	case "decimal", "numeric":
		return oid.T_numeric
	case "float":
		return oid.T_float4
	case "double", "real":
		return oid.T_float8
	case "bit":
		return oid.T_varbit
	case "date":
		return oid.T_date
	case "datetime":
		return oid.T_timestamp
	case "timestamp":
		return oid.T_timestamptz
	case "time":
		return oid.T_time
	case "varchar", "char":
		return oid.T_varchar
	case "binary", "varbinary", "blob", "tinyblob", "mediumblob", "longblob":
		return oid.T_bytea
	case "json":
		return oid.T_jsonb
	default:
		return oid.T_text
	}
}

// FromMySQLBytes converts the text protocol representation of a MySQL
// value into a datum.
func FromMySQLBytes(val []byte, typOID oid.Oid) (tree.Datum, error) {
	if val == nil {
		return tree.DNull, nil
	}
	switch typOID {
	case oid.T_varchar, oid.T_text:
		return tree.NewDString(string(val)), nil
	case oid.T_float4, oid.T_float8:
		return tree.ParseDFloat(string(val))
	case oid.T_int2, oid.T_int4, oid.T_int8:
		d, err := tree.ParseDInt(string(val))
		if err != nil {
			// Unsigned values past the int64 range.
			return tree.ParseDDecimal(string(val))
		}
		return d, nil
	case oid.T_json, oid.T_jsonb:
		j, err := json.ParseJSON(string(val))
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding json for %s", val)
		}
		return tree.NewDJSON(j), nil
	case oid.T_timestamp:
		v := string(val)
		if strings.HasPrefix(v, "0000-") {
			return tree.DNull, nil
		}
		ret, _, err := tree.ParseDTimestamp(timeCtx, v, time.Microsecond)
		return ret, err
	case oid.T_timestamptz:
		v := string(val)
		if strings.HasPrefix(v, "0000-") {
			return tree.DNull, nil
		}
		ret, _, err := tree.ParseDTimestampTZ(timeCtx, v, time.Microsecond)
		return ret, err
	case oid.T_date:
		ret, _, err := tree.ParseDDate(timeCtx, string(val))
		return ret, err
	case oid.T_time:
		ret, _, err := tree.ParseDTime(timeCtx, string(val), time.Microsecond)
		return ret, err
	case oid.T_bytea:
		return tree.NewDBytes(tree.DBytes(val)), nil
	case oid.T_numeric:
		return tree.ParseDDecimal(string(val))
	case oid.T_varbit:
		var sb strings.Builder
		for _, b := range val {
			for i := 7; i >= 0; i-- {
				if b&(1<<i) > 0 {
					sb.WriteByte('1')
				} else {
					sb.WriteByte('0')
				}
			}
		}
		return tree.ParseDBitArray(sb.String())
	}
	return nil, errors.AssertionFailedf("value type OID %d not yet translatable", typOID)
}

// FromMySQLRow converts a row scanned as raw bytes.
func FromMySQLRow(vals [][]byte, typOIDs []oid.Oid) (tree.Datums, error) {
	if err := checkWidth(vals, typOIDs); err != nil {
		return nil, err
	}
	ret := make(tree.Datums, len(vals))
	for i := range vals {
		var err error
		if ret[i], err = FromMySQLBytes(vals[i], typOIDs[i]); err != nil {
			return nil, errors.Wrapf(err, "error converting column %d", i)
		}
	}
	return ret, nil
}

// ScanMySQLRow reads the current row of rows. Values are scanned as
// bytes since their types are only known at runtime.
func ScanMySQLRow(rows *sql.Rows, typOIDs []oid.Oid) (tree.Datums, error) {
	vals := make([][]byte, len(typOIDs))
	valPtrs := make([]any, len(typOIDs))
	for i := range vals {
		valPtrs[i] = &vals[i]
	}
	if err := rows.Scan(valPtrs...); err != nil {
		return nil, errors.Wrap(err, "failed to scan row")
	}
	return FromMySQLRow(vals, typOIDs)
}
