package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

// Key layout
//
//	Data               Prefix  Key                                  Value
//	=========================================================================
//	Schema version     "v:"    v:schema                             uint32 BE
//	Counters           "n:"    n:file | n:change | n:instance       uint64 BE
//	Instances          "i:"    i:<name>\x00<uuid bytes>             uint64 BE
//	File rows          "f:"    f:<instance BE><id BE>               fileRecord (JSON)
//	Path index         "x:"    x:<path>\x00<filename>               FileID (16 bytes)
//	Ancestry           "a:"    a:<instance BE><id BE>               FileID (16 bytes)
//
// Paths never contain NUL, so the path index sorts each directory's
// children contiguously and by filename bytes.
const (
	prefixVersion  = "v:"
	prefixCounter  = "n:"
	prefixInstance = "i:"
	prefixFile     = "f:"
	prefixPath     = "x:"
	prefixAncestry = "a:"
)

var (
	keySchemaVersion   = []byte(prefixVersion + "schema")
	keyFileCounter     = []byte(prefixCounter + "file")
	keyChangeCounter   = []byte(prefixCounter + "change")
	keyInstanceCounter = []byte(prefixCounter + "instance")
)

func appendFileID(b []byte, id metadata.FileID) []byte {
	b = binary.BigEndian.AppendUint64(b, id.Instance)
	return binary.BigEndian.AppendUint64(b, id.ID)
}

func encodeFileID(id metadata.FileID) []byte {
	return appendFileID(make([]byte, 0, 16), id)
}

func decodeFileID(b []byte) (metadata.FileID, error) {
	if len(b) != 16 {
		return metadata.FileID{}, fmt.Errorf("file id: want 16 bytes, got %d", len(b))
	}
	return metadata.FileID{
		Instance: binary.BigEndian.Uint64(b[:8]),
		ID:       binary.BigEndian.Uint64(b[8:]),
	}, nil
}

func keyFile(id metadata.FileID) []byte {
	return appendFileID([]byte(prefixFile), id)
}

func keyAncestry(child metadata.FileID) []byte {
	return appendFileID([]byte(prefixAncestry), child)
}

// keyPathPrefix selects every child of the directory at path.
func keyPathPrefix(path string) []byte {
	return []byte(prefixPath + path + "\x00")
}

func keyPath(path, filename string) []byte {
	return append(keyPathPrefix(path), filename...)
}

func keyInstance(name string, id uuid.UUID) []byte {
	k := []byte(prefixInstance + name + "\x00")
	return append(k, id[:]...)
}

func encodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("counter: want 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// fileRecord is the stored form of a FileEntry. The key carries the
// FileID.
type fileRecord struct {
	ChangeInstance uint64 `json:"ci"`
	ChangeID       uint64 `json:"cid"`
	Path           string `json:"p"`
	Filename       string `json:"n"`
	Modified       int64  `json:"t"`
	Permissions    uint16 `json:"m"`
}

func encodeFile(e *metadata.FileEntry) ([]byte, error) {
	return json.Marshal(fileRecord{
		ChangeInstance: e.ChangeInstance,
		ChangeID:       e.ChangeID,
		Path:           e.Path,
		Filename:       e.Filename,
		Modified:       metadata.TimeToStorage(e.Timestamp),
		Permissions:    uint16(e.Permissions),
	})
}

func decodeFile(id metadata.FileID, b []byte) (*metadata.FileEntry, error) {
	var r fileRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode file %s: %w", id, err)
	}
	return &metadata.FileEntry{
		FileID:         id,
		ChangeInstance: r.ChangeInstance,
		ChangeID:       r.ChangeID,
		Path:           r.Path,
		Filename:       r.Filename,
		Timestamp:      metadata.TimeFromStorage(r.Modified),
		Permissions:    metadata.Permissions(r.Permissions),
	}, nil
}
