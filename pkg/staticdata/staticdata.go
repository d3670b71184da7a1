// Package staticdata reads and writes the share's static record: the
// instance name and identifier fixed at creation time.
package staticdata

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/marmos91/dittoshare/pkg/codec"
)

// Protocol is the frame protocol number of static records ("SHST").
var Protocol = codec.ProtocolID("SHST")

// Known versions. Last is the version Write produces.
const (
	V1   uint32 = 1
	Last        = V1
)

var (
	// ErrCorrupt is returned when the record is truncated or its body
	// does not decode.
	ErrCorrupt = errors.New("static data corrupt")

	// ErrUnknownProtocol is returned when the frame is not a static record.
	ErrUnknownProtocol = errors.New("static data: unknown protocol")

	// ErrUnknownVersion is returned for a static record version this build
	// does not know how to read.
	ErrUnknownVersion = errors.New("static data: unknown version")
)

// Instance identifies one replica of a share.
type Instance struct {
	Name string
	ID   uuid.UUID
}

// NewInstance returns an instance with a fresh random identifier.
func NewInstance(name string) (Instance, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Instance{}, fmt.Errorf("generate instance id: %w", err)
	}
	return Instance{Name: name, ID: id}, nil
}

// Filename returns the instance name joined with the lowercase hex of its
// identifier bytes, e.g. "alpha-0a1b...".
func (i Instance) Filename() string {
	return i.Name + "-" + hex.EncodeToString(i.ID[:])
}

func (i Instance) String() string {
	return i.Filename()
}

type bodyV1 struct {
	Name       string
	InstanceID [16]byte
}

// Write encodes inst using version Last.
func Write(inst Instance) ([]byte, error) {
	return encode(Last, inst)
}

func encode(version uint32, inst Instance) ([]byte, error) {
	tag := codec.Tag{Protocol: Protocol, Version: version}
	switch version {
	case V1:
		return codec.Encode(tag, &bodyV1{Name: inst.Name, InstanceID: inst.ID})
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
}

// Read decodes a static record of any known version.
func Read(data []byte) (Instance, error) {
	f, err := codec.Parse(data)
	if err != nil {
		return Instance{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if f.Protocol != Protocol {
		return Instance{}, fmt.Errorf("%w: %s", ErrUnknownProtocol, f.Tag)
	}

	switch f.Version {
	case V1:
		return readV1(f)
	default:
		return Instance{}, fmt.Errorf("%w: %d", ErrUnknownVersion, f.Version)
	}
}

func readV1(f codec.Frame) (Instance, error) {
	var b bodyV1
	if err := f.Decode(&b); err != nil {
		return Instance{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return Instance{Name: b.Name, ID: uuid.UUID(b.InstanceID)}, nil
}

// Save writes inst to path atomically.
func Save(path string, inst Instance) error {
	data, err := Write(inst)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp static file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write static file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync static file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close static file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod static file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename static file: %w", err)
	}
	return nil
}

// Load reads and decodes the static record at path.
func Load(path string) (Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Instance{}, err
	}
	return Read(data)
}
