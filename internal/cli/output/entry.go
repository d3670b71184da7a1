package output

import (
	"fmt"
	"time"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

// LocalTimeFormat is how timestamps appear in tables.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// Entry is the printable form of a metadata.FileEntry.
type Entry struct {
	Path      string    `json:"path" yaml:"path"`
	Type      string    `json:"type" yaml:"type"`
	Mode      string    `json:"mode" yaml:"mode"`
	FileID    string    `json:"file_id" yaml:"file_id"`
	Version   string    `json:"version" yaml:"version"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewEntry converts e.
func NewEntry(e *metadata.FileEntry) Entry {
	typ := "dir"
	if e.IsFile() {
		typ = "file"
	}
	return Entry{
		Path:      e.FullPath(),
		Type:      typ,
		Mode:      e.Permissions.String(),
		FileID:    e.FileID.String(),
		Version:   fmt.Sprintf("%d:%d", e.ChangeInstance, e.ChangeID),
		Timestamp: e.Timestamp,
	}
}

// KeyValues returns the stat view of the entry.
func (e Entry) KeyValues() KeyValues {
	return KeyValues{}.
		Add("Path", e.Path).
		Add("Type", e.Type).
		Add("Mode", e.Mode).
		Add("File ID", e.FileID).
		Add("Version", e.Version).
		Add("Modified", FormatTime(e.Timestamp))
}

func (e Entry) Headers() []string { return entryHeaders }

func (e Entry) Rows() [][]string { return [][]string{e.row()} }

func (e Entry) row() []string {
	return []string{e.Mode, e.FileID, e.Version, FormatTime(e.Timestamp), e.Path}
}

var entryHeaders = []string{"MODE", "FILE ID", "VERSION", "MODIFIED", "PATH"}

// EntryList is a directory listing.
type EntryList []Entry

// NewEntryList converts entries, keeping their order.
func NewEntryList(entries []*metadata.FileEntry) EntryList {
	l := make(EntryList, 0, len(entries))
	for _, e := range entries {
		l = append(l, NewEntry(e))
	}
	return l
}

func (l EntryList) Headers() []string { return entryHeaders }

func (l EntryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, e.row())
	}
	return rows
}

// FormatTime renders t in local time, or "-" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(LocalTimeFormat)
}
