package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	header, rows, err := ReadCSV([]byte("a,b\n1,2\n3\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	assert.Equal(t, [][]string{{"1", "2"}, {"3"}}, rows)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	header, rows, err := ReadCSV([]byte("a,b\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	assert.Empty(t, rows)
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(nil, CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestReadCSV_Latin1(t *testing.T) {
	// "Côte d'Ivoire" with ô encoded as a single ISO-8859-1 byte.
	data := []byte("name\nC\xf4te d'Ivoire\n")
	_, rows, err := ReadCSV(data, CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Côte d'Ivoire", rows[0][0])
}

func TestReadCSV_TrimSpaceAndDelimiter(t *testing.T) {
	header, rows, err := ReadCSV([]byte(" a ; b \n 1 ; 2 \n"), CSVOptions{
		Delimiter: ';',
		TrimSpace: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	assert.Equal(t, [][]string{{"1", "2"}}, rows)
}

func TestReadCSV_MalformedQuote(t *testing.T) {
	_, _, err := ReadCSV([]byte("a,\"b\nc"), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read all")
}
