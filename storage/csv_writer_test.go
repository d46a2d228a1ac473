package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banks-etl/models"
)

func sampleEnriched() []*models.EnrichedBankRecord {
	return []*models.EnrichedBankRecord{
		{Name: "Bank A", MCUSDBillion: 80, MCGBPBillion: 64, MCEURBillion: 74.4, MCINRBillion: 6568},
		{Name: "Bank, with comma", MCUSDBillion: 185.22, MCGBPBillion: 148.18, MCEURBillion: 172.25, MCINRBillion: 15206.56},
	}
}

func TestCSVWriterHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "current_exchange_rate.csv")

	require.NoError(t, WriteCSV(path, sampleEnriched()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Name,MC_USD_Billion,MC_GBP_Billion,MC_EUR_Billion,MC_INR_Billion", lines[0])
	assert.Equal(t, "Bank A,80,64,74.4,6568", lines[1])
}

func TestCSVWriterLargeValuesStayDecimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banks.csv")
	recs := []*models.EnrichedBankRecord{
		{Name: "Bank B", MCUSDBillion: 12345.67, MCGBPBillion: 9876.54, MCEURBillion: 11481.47, MCINRBillion: 1013536.51},
		{Name: "Bank C", MCUSDBillion: 1e6, MCGBPBillion: 0.05, MCEURBillion: 1, MCINRBillion: 25000000},
	}

	require.NoError(t, WriteCSV(path, recs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Bank B,12345.67,9876.54,11481.47,1013536.51", lines[1])
	assert.Equal(t, "Bank C,1000000,0.05,1,25000000", lines[2])

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banks.csv")
	want := sampleEnriched()

	require.NoError(t, WriteCSV(path, want))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCSVWriterOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banks.csv")
	require.NoError(t, WriteCSV(path, sampleEnriched()))
	require.NoError(t, WriteCSV(path, sampleEnriched()[:1]))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bank A", got[0].Name)
}

func TestCSVWriterEmptySetWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banks.csv")
	require.NoError(t, WriteCSV(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,MC_USD_Billion,MC_GBP_Billion,MC_EUR_Billion,MC_INR_Billion\n", string(data))
}

func TestCSVWriterCreateFailure(t *testing.T) {
	// The target path is an existing directory.
	err := WriteCSV(t.TempDir(), sampleEnriched())
	assert.ErrorIs(t, err, models.ErrIO)
}
