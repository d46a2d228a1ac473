package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banks-etl/models"
	"banks-etl/storage"
)

func newSQLiteStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	s, err := storage.NewSQLStore(context.Background(), "sqlite", filepath.Join(t.TempDir(), "Banks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestQueryRunnerLimitFive(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	rows := make([]*models.BankRecord, 10)
	for i := range rows {
		rows[i] = &models.BankRecord{Name: fmt.Sprintf("Bank %d", i), MCUSDBillion: float64(10 - i)}
	}
	require.NoError(t, s.ReplaceTable(ctx, "T", rows))

	var out bytes.Buffer
	res, err := NewQueryRunner(s, &out, newTestLogger()).Run(ctx, "SELECT Name FROM T LIMIT 5")
	require.NoError(t, err)

	require.Len(t, res.Rows, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("Bank %d", i), res.Rows[i][0])
	}
	assert.True(t, strings.HasPrefix(out.String(), "SELECT Name FROM T LIMIT 5\n"))
	assert.Contains(t, out.String(), "Bank 4")
	assert.NotContains(t, out.String(), "Bank 5")
}

func TestQueryRunnerScalar(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceTable(ctx, "T", []models.EnrichedBankRecord{
		{Name: "A", MCGBPBillion: 64},
		{Name: "B", MCGBPBillion: 36},
	}))

	var out bytes.Buffer
	res, err := NewQueryRunner(s, &out, newTestLogger()).Run(ctx, "SELECT AVG(MC_GBP_Billion) FROM T")
	require.NoError(t, err)
	v, ok := res.Scalar()
	require.True(t, ok)
	assert.Equal(t, 50.0, v)
	assert.Contains(t, out.String(), "AVG(MC_GBP_Billion)")
	assert.Contains(t, out.String(), "50")
}

func TestQueryRunnerError(t *testing.T) {
	s := newSQLiteStore(t)
	var out bytes.Buffer
	_, err := NewQueryRunner(s, &out, newTestLogger()).Run(context.Background(), "SELECT nope FROM nowhere")
	assert.ErrorIs(t, err, models.ErrStore)
	assert.Equal(t, "SELECT nope FROM nowhere\n", out.String())
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	Print(&out, &models.QueryResult{
		Columns: []string{"Name", "MC_USD_Billion"},
		Rows: [][]any{
			{"JPMorgan Chase", 432.92},
			{"Bank of America", 231.52},
			{nil, int64(7)},
		},
	})

	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "Name")
	assert.Contains(t, lines[0], "MC_USD_Billion")
	assert.Contains(t, lines[1], "JPMorgan Chase")
	assert.Contains(t, lines[1], "432.92")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[2]), "1"))
	assert.Contains(t, lines[3], "NULL")
}

func TestPrintEmpty(t *testing.T) {
	var out bytes.Buffer
	Print(&out, &models.QueryResult{Columns: []string{"Name"}})
	assert.Contains(t, out.String(), "(no rows)")
}
