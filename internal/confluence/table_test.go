package confluence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePageBody = `<p>Phantom scans, refreshed nightly.</p>` +
	`<table><thead><tr><th>id</th><th>notes</th></tr></thead>` +
	`<tbody><tr><td>NS001QC</td><td>ok</td></tr>` +
	`<tr><td>UC003QC</td><td>re-scan requested</td></tr></tbody></table>` +
	`<p>Contact the QC team with questions.</p>`

func TestParseFirstTable(t *testing.T) {
	header, rows, err := ParseFirstTable(samplePageBody)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "notes"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"NS001QC", "ok"}, rows[0])
	assert.Equal(t, []string{"UC003QC", "re-scan requested"}, rows[1])
}

func TestParseFirstTableIgnoresLaterTables(t *testing.T) {
	body := samplePageBody + `<table><tr><th>other</th></tr><tr><td>x</td></tr></table>`
	header, rows, err := ParseFirstTable(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "notes"}, header)
	assert.Len(t, rows, 2)
}

func TestParseFirstTableNoTable(t *testing.T) {
	_, _, err := ParseFirstTable("<p>nothing here</p>")
	require.Error(t, err)
}

func TestRenderTableEscapesCells(t *testing.T) {
	out := RenderTable([]string{"id"}, [][]string{{"a<b>c"}})
	assert.Contains(t, out, "a&lt;b&gt;c")
}

func TestReplaceFirstTablePreservesSurroundingContent(t *testing.T) {
	replacement := RenderTable([]string{"id", "notes"}, [][]string{{"WS002QC", ""}})

	body, err := ReplaceFirstTable(samplePageBody, replacement)
	require.NoError(t, err)

	assert.Contains(t, body, "Phantom scans, refreshed nightly.")
	assert.Contains(t, body, "Contact the QC team with questions.")
	assert.Contains(t, body, "WS002QC")
	assert.NotContains(t, body, "NS001QC")
	assert.Equal(t, 1, strings.Count(body, "<table>"))
}

func TestRenderParseRoundTrip(t *testing.T) {
	header := []string{"id", "notes"}
	records := [][]string{{"NS001QC", "ok"}, {"WS002QC", ""}}

	gotHeader, gotRows, err := ParseFirstTable(RenderTable(header, records))
	require.NoError(t, err)
	assert.Equal(t, header, gotHeader)
	assert.Equal(t, records, gotRows)
}
