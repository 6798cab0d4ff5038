package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRows_FilesWin(t *testing.T) {
	header, rows := tableRows(sampleDoc())

	assert.Equal(t, []string{"SIZE", "PATH"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1.0 KiB", "/Users/dev/Library/Caches/app.log"}, rows[0])
}

func TestTableRows_ProcessesWhenNoFiles(t *testing.T) {
	doc := &Document{
		Processes: []ProcessRow{
			{PID: 312, User: "dev", Name: "Safari", ResidentBytes: 1048576, CPUPercent: 3.25},
		},
	}

	header, rows := tableRows(doc)
	assert.Equal(t, []string{"PID", "USER", "MEM", "CPU", "NAME"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"312", "dev", "1.0 MiB", "3.2", "Safari"}, rows[0])
}

func TestTableRows_FactsFallback(t *testing.T) {
	doc := &Document{}
	doc.AddSection("Memory", Fact{Label: "Used", Value: "12.4 GiB"})
	doc.AddSection("Disk", Fact{Label: "Free", Value: "88.1 GiB"})

	header, rows := tableRows(doc)
	assert.Equal(t, []string{"LABEL", "VALUE"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Used", "12.4 GiB"}, rows[0])
	assert.Equal(t, []string{"Free", "88.1 GiB"}, rows[1])
}

func TestTSVFormatter(t *testing.T) {
	formatter := &TSVFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, sampleDoc())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "SIZE\tPATH", lines[0])
	assert.Equal(t, "1.0 KiB\t/Users/dev/Library/Caches/app.log", lines[1])
	assert.Equal(t, "1.0 GiB\t/Users/dev/Library/Caches/big.dmg", lines[2])
}

func TestCSVFormatter(t *testing.T) {
	formatter := &CSVFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, sampleDoc())
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"SIZE", "PATH"}, records[0])
	assert.Equal(t, []string{"1.0 KiB", "/Users/dev/Library/Caches/app.log"}, records[1])
}

func TestCSVFormatter_QuotesSpecialCharacters(t *testing.T) {
	formatter := &CSVFormatter{}
	var buf bytes.Buffer

	doc := &Document{
		Files: []FileRow{
			{Path: `/Users/dev/archive, "old".zip`, Size: 1024},
		},
	}

	err := formatter.Format(&buf, doc)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `/Users/dev/archive, "old".zip`, records[1][1])
}

func TestMarkdownFormatter(t *testing.T) {
	formatter := &MarkdownFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, sampleDoc())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| SIZE | PATH |", lines[0])
	assert.Equal(t, "|------|------|", lines[1])
	assert.Contains(t, lines[2], "| 1.0 KiB |")
}

func TestMarkdownFormatter_EscapesPipes(t *testing.T) {
	formatter := &MarkdownFormatter{}
	var buf bytes.Buffer

	doc := &Document{
		Files: []FileRow{
			{Path: "/Users/dev/weird|name.txt", Size: 10},
		},
	}

	err := formatter.Format(&buf, doc)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `weird\|name.txt`)
}

func TestTableFormatters_Registration(t *testing.T) {
	for name, want := range map[string]Formatter{
		"tsv":      &TSVFormatter{},
		"csv":      &CSVFormatter{},
		"markdown": &MarkdownFormatter{},
	} {
		formatter, err := Get(name)
		require.NoError(t, err)
		assert.IsType(t, want, formatter)
	}
}
