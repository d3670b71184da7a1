package metadata

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// FileID identifies an entry by its owning instance index and the local id
// that instance allocated for it.
type FileID struct {
	Instance uint64
	ID       uint64
}

// RootID is the identity of every share's root directory.
var RootID = FileID{}

func (id FileID) String() string {
	return fmt.Sprintf("%d:%d", id.Instance, id.ID)
}

// IsRoot reports whether id is the root directory.
func (id FileID) IsRoot() bool { return id == RootID }

// FileEntry is one file or directory row.
//
// Path is the parent directory ("/" for children of the root, "" for the
// root itself); Filename is the last path component.
type FileEntry struct {
	FileID

	// Version stamp: the instance that last changed the entry and the
	// change counter value it allocated.
	ChangeInstance uint64
	ChangeID       uint64

	Path        string
	Filename    string
	Timestamp   time.Time
	Permissions Permissions
}

// IsFile reports whether the entry is a regular file.
func (e *FileEntry) IsFile() bool { return e.Permissions.IsFile() }

// IsDir reports whether the entry is a directory.
func (e *FileEntry) IsDir() bool { return e.Permissions.IsDir() }

// Permission bits of the entry.
func (e *FileEntry) OwnerRead() bool    { return e.Permissions.OwnerRead() }
func (e *FileEntry) OwnerWrite() bool   { return e.Permissions.OwnerWrite() }
func (e *FileEntry) OwnerExecute() bool { return e.Permissions.OwnerExecute() }
func (e *FileEntry) GroupRead() bool    { return e.Permissions.GroupRead() }
func (e *FileEntry) GroupWrite() bool   { return e.Permissions.GroupWrite() }
func (e *FileEntry) GroupExecute() bool { return e.Permissions.GroupExecute() }
func (e *FileEntry) OtherRead() bool    { return e.Permissions.OtherRead() }
func (e *FileEntry) OtherWrite() bool   { return e.Permissions.OtherWrite() }
func (e *FileEntry) OtherExecute() bool { return e.Permissions.OtherExecute() }

// FullPath returns the absolute logical path of the entry. For a directory
// this is also the Path its children carry.
func (e *FileEntry) FullPath() string {
	return JoinPath(e.Path, e.Filename)
}

// Clone returns a copy of e.
func (e *FileEntry) Clone() *FileEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// NewRootEntry returns the root directory entry stamped with t.
func NewRootEntry(t time.Time) *FileEntry {
	return &FileEntry{
		FileID:      RootID,
		Timestamp:   t.UTC(),
		Permissions: RootPermissions,
	}
}

// SplitPath splits an absolute, cleaned logical path into the parent Path
// and Filename columns. "/" splits into ("", "").
func SplitPath(p string) (dir, name string) {
	if p == "/" || p == "" {
		return "", ""
	}
	i := strings.LastIndexByte(p, '/')
	dir, name = p[:i], p[i+1:]
	if dir == "" {
		dir = "/"
	}
	return dir, name
}

// JoinPath is the inverse of SplitPath.
func JoinPath(dir, name string) string {
	switch {
	case dir == "" && name == "":
		return "/"
	case dir == "/":
		return "/" + name
	default:
		return dir + "/" + name
	}
}

// CleanPath normalizes p to an absolute path without trailing slashes.
func CleanPath(p string) string {
	return path.Clean("/" + p)
}

// TimeFromStorage converts stored Unix nanoseconds to UTC time.
func TimeFromStorage(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// TimeToStorage converts t to Unix nanoseconds.
func TimeToStorage(t time.Time) int64 {
	return t.UnixNano()
}
