package datumconv

import (
	"testing"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/require"
)

func TestMySQLTypeToOID(t *testing.T) {
	for _, tc := range []struct {
		dataType string
		expected oid.Oid
	}{
		{"INT", oid.T_int4},
		{"UNSIGNED BIGINT", oid.T_int8},
		{"TINYINT", oid.T_int2},
		{"DECIMAL", oid.T_numeric},
		{"DOUBLE", oid.T_float8},
		{"VARCHAR", oid.T_varchar},
		{"DATETIME", oid.T_timestamp},
		{"JSON", oid.T_jsonb},
		{"VARBINARY", oid.T_bytea},
		{"ENUM", oid.T_text},
		{"GEOMETRY", oid.T_text},
	} {
		t.Run(tc.dataType, func(t *testing.T) {
			require.Equal(t, tc.expected, MySQLTypeToOID(tc.dataType))
		})
	}
}

func TestFromMySQLBytes(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		val      []byte
		typOID   oid.Oid
		expected string
	}{
		{desc: "null", val: nil, typOID: oid.T_int4, expected: "NULL"},
		{desc: "int", val: []byte("42"), typOID: oid.T_int8, expected: "42"},
		{desc: "unsigned overflow", val: []byte("18446744073709551615"), typOID: oid.T_int8, expected: "18446744073709551615"},
		{desc: "string", val: []byte("hello"), typOID: oid.T_varchar, expected: "hello"},
		{desc: "decimal", val: []byte("12.50"), typOID: oid.T_numeric, expected: "12.50"},
		{desc: "zero datetime", val: []byte("0000-00-00 00:00:00"), typOID: oid.T_timestamp, expected: "NULL"},
		{desc: "date", val: []byte("2023-04-05"), typOID: oid.T_date, expected: "2023-04-05"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			d, err := FromMySQLBytes(tc.val, tc.typOID)
			require.NoError(t, err)
			if tc.expected == "NULL" {
				require.Equal(t, tree.DNull, d)
				return
			}
			f := tree.NewFmtCtx(tree.FmtBareStrings)
			f.FormatNode(d)
			require.Equal(t, tc.expected, f.CloseAndGetString())
		})
	}
}

func TestFromMySQLRowWidth(t *testing.T) {
	_, err := FromMySQLRow([][]byte{[]byte("1")}, []oid.Oid{oid.T_int4, oid.T_text})
	require.Error(t, err)
}
