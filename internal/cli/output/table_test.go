package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

func TestTableData(t *testing.T) {
	table := NewTableData("Name", "Value")
	assert.Empty(t, table.Rows())

	table.AddRow("key1", "value1")
	table.AddRow("key2", "value2")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "VALUE")
	assert.Contains(t, out, "key1")
	assert.Contains(t, out, "value2")
}

func TestPrintKeyValues(t *testing.T) {
	kv := KeyValues{}.Add("Name", "alpha").Add("Outcome", "created")

	var buf bytes.Buffer
	require.NoError(t, PrintKeyValues(&buf, kv))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Name")
	assert.Contains(t, lines[0], "alpha")
	assert.Contains(t, lines[1], "created")
}

func sampleEntries() []*metadata.FileEntry {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*metadata.FileEntry{
		{
			FileID:         metadata.FileID{Instance: 1, ID: 2},
			ChangeInstance: 1,
			ChangeID:       5,
			Path:           "/",
			Filename:       "docs",
			Timestamp:      ts,
			Permissions:    metadata.NewPermissions(0o755, false),
		},
		{
			FileID:         metadata.FileID{Instance: 1, ID: 1},
			ChangeInstance: 1,
			ChangeID:       1,
			Path:           "/",
			Filename:       "notes.txt",
			Timestamp:      ts,
			Permissions:    metadata.NewPermissions(0o644, true),
		},
	}
}

func TestEntry(t *testing.T) {
	e := NewEntry(sampleEntries()[1])

	assert.Equal(t, "/notes.txt", e.Path)
	assert.Equal(t, "file", e.Type)
	assert.Equal(t, "-rw-r--r--", e.Mode)
	assert.Equal(t, "1:1", e.FileID)
	assert.Equal(t, "1:1", e.Version)

	kv := e.KeyValues()
	require.Len(t, kv, 6)
	assert.Equal(t, [2]string{"Type", "file"}, kv[1])

	root := NewEntry(metadata.NewRootEntry(time.Time{}))
	assert.Equal(t, "/", root.Path)
	assert.Equal(t, "dir", root.Type)
	assert.Equal(t, "-", FormatTime(root.Timestamp))
}

func TestEntryList(t *testing.T) {
	l := NewEntryList(sampleEntries())
	require.Len(t, l.Rows(), 2)
	assert.Equal(t, "drwxr-xr-x", l.Rows()[0][0])
	assert.Equal(t, "/notes.txt", l.Rows()[1][4])

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, l))
	assert.Contains(t, buf.String(), "FILE ID")
	assert.Contains(t, buf.String(), "/docs")

	buf.Reset()
	require.NoError(t, PrintJSON(&buf, l))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "dir", decoded[0]["type"])
	assert.Equal(t, "2026-03-01T12:00:00Z", decoded[0]["timestamp"])
}
