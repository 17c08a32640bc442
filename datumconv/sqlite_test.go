package datumconv

import (
	"testing"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func TestFromSQLiteValues(t *testing.T) {
	row, err := FromSQLiteValues([]any{int64(7), 1.5, "x", []byte("y"), true, nil})
	require.NoError(t, err)
	require.Len(t, row, 6)
	require.Equal(t, types.IntFamily, row[0].ResolvedType().Family())
	require.Equal(t, types.FloatFamily, row[1].ResolvedType().Family())
	require.Equal(t, types.StringFamily, row[2].ResolvedType().Family())
	require.Equal(t, types.BytesFamily, row[3].ResolvedType().Family())
	require.Equal(t, tree.DBoolTrue, row[4])
	require.Equal(t, tree.DNull, row[5])

	_, err = FromSQLiteValues([]any{struct{}{}})
	require.Error(t, err)
}
