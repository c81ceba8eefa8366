package frame

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricesCSV = `item,price,qty
apple,1.5,3
pear,0.333,10
`

func loadPrices(t *testing.T) *Frame {
	t.Helper()
	f, err := ReadCSV(strings.NewReader(pricesCSV))
	require.NoError(t, err)
	return f
}

func TestReadCSV(t *testing.T) {
	f := loadPrices(t)
	assert.Equal(t, []string{"item", "price", "qty"}, f.Columns())
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []string{"pear", "0.333", "10"}, f.Row(1))

	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b\n1\n"))
	assert.Error(t, err)
}

func TestNewRejectsRaggedRows(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]string{{"1", "2"}, {"3"}})
	assert.ErrorContains(t, err, "row 2")
}

func TestFormatColumnsFloat(t *testing.T) {
	f := loadPrices(t)
	fn, err := Printf("%.2f")
	require.NoError(t, err)

	require.NoError(t, f.FormatColumns([]string{"price"}, fn))

	col, err := f.Column("price")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.50", "0.33"}, col)

	qty, _ := f.Column("qty")
	assert.Equal(t, []string{"3", "10"}, qty, "other columns untouched")
}

func TestFormatColumnsInteger(t *testing.T) {
	f := loadPrices(t)
	fn, err := Printf("%03d")
	require.NoError(t, err)
	require.NoError(t, f.FormatColumns([]string{"qty", "price"}, fn))

	qty, _ := f.Column("qty")
	assert.Equal(t, []string{"003", "010"}, qty)
	price, _ := f.Column("price")
	assert.Equal(t, []string{"001", "000"}, price)
}

func TestFormatColumnsString(t *testing.T) {
	f := loadPrices(t)
	fn, err := Printf("<%s>")
	require.NoError(t, err)
	require.NoError(t, f.FormatColumns(nil, fn))
	assert.Equal(t, []string{"<apple>", "<1.5>", "<3>"}, f.Row(0))
}

func TestFormatColumnsErrorsLeaveFrameUnchanged(t *testing.T) {
	f := loadPrices(t)
	fn, err := Printf("%.1f")
	require.NoError(t, err)

	err = f.FormatColumns([]string{"price", "item"}, fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `row 1, column "item"`)
	assert.Equal(t, []string{"apple", "1.5", "3"}, f.Row(0))

	err = f.FormatColumns([]string{"missing"}, fn)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestPrintfValidation(t *testing.T) {
	for _, bad := range []string{"", "no verbs", "%d %d", "%", "%t", "%5"} {
		_, err := Printf(bad)
		assert.Error(t, err, "format %q", bad)
	}
	for _, good := range []string{"%.2f", "%d%%", "$%8.3e", "%x", "%q", "%-10s|"} {
		_, err := Printf(good)
		assert.NoError(t, err, "format %q", good)
	}
}

func TestMarkdownAndHTML(t *testing.T) {
	f, err := New([]string{"name", "note"}, [][]string{{"a|b", "*bold*"}})
	require.NoError(t, err)

	md := f.Markdown()
	assert.Equal(t, "| name | note |\n| --- | --- |\n| a\\|b | \\*bold\\* |\n", md)

	html, err := f.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<th>name</th>")
	assert.Contains(t, html, "<td>a|b</td>")
	assert.Contains(t, html, "<td>*bold*</td>")
}

func TestWriteTable(t *testing.T) {
	f := loadPrices(t)
	var buf bytes.Buffer
	require.NoError(t, f.WriteTable(&buf))

	out := buf.String()
	assert.Contains(t, out, "apple")
	assert.Contains(t, out, "0.333")
	assert.Contains(t, strings.ToUpper(out), "PRICE")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	f := loadPrices(t)
	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Equal(t, pricesCSV, buf.String())
}
