package txlog

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// Kind identifies the operation a record describes.
type Kind uint32

const (
	KindCreateFile    Kind = 1
	KindSetAttributes Kind = 2
	KindDeleteFile    Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindCreateFile:
		return "create_file"
	case KindSetAttributes:
		return "set_attributes"
	case KindDeleteFile:
		return "delete_file"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Op is the payload of a transaction record. Each kind has one concrete
// type; replay switches over them.
type Op interface {
	Kind() Kind
}

// CreateFile records a new entry before its blob and row are written.
// Timestamp is Unix nanoseconds.
type CreateFile struct {
	ID             uint64
	Owner          uint64
	ChangeID       uint64
	ChangeInstance uint64
	Path           string
	IsFile         bool
	Permissions    uint32
	Timestamp      int64
}

func (*CreateFile) Kind() Kind { return KindCreateFile }

// SetAttributes records a permission or timestamp change together with
// the version stamp it replaces, so the blob can be renamed on replay.
type SetAttributes struct {
	ID                uint64
	Owner             uint64
	OldChangeInstance uint64
	OldChangeID       uint64
	ChangeInstance    uint64
	ChangeID          uint64
	IsFile            bool
	Permissions       uint32
	HasPermissions    bool
	Timestamp         int64
	HasTimestamp      bool
}

func (*SetAttributes) Kind() Kind { return KindSetAttributes }

// DeleteFile records the removal of an entry at a given version.
type DeleteFile struct {
	ID             uint64
	Owner          uint64
	ChangeInstance uint64
	ChangeID       uint64
	IsFile         bool
}

func (*DeleteFile) Kind() Kind { return KindDeleteFile }

func marshalOp(op Op) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, op); err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", op.Kind(), err)
	}
	return buf.Bytes(), nil
}

func unmarshalOp(kind Kind, payload []byte) (Op, error) {
	var op Op
	switch kind {
	case KindCreateFile:
		op = &CreateFile{}
	case KindSetAttributes:
		op = &SetAttributes{}
	case KindDeleteFile:
		op = &DeleteFile{}
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrCorruptRecord, uint32(kind))
	}

	dec := xdr.NewDecoderLimited(bytes.NewReader(payload), uint(len(payload)))
	if _, err := dec.Decode(op); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrCorruptRecord, kind, err)
	}
	return op, nil
}
