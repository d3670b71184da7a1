package metadata

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Permissions packs the nine rwx bits in POSIX order (0o400 owner read
// down to 0o001 other execute) plus an IsFile flag at bit 9.
type Permissions uint16

const (
	PermOtherExec  Permissions = 1 << iota // 0o001
	PermOtherWrite                         // 0o002
	PermOtherRead                          // 0o004
	PermGroupExec                          // 0o010
	PermGroupWrite                         // 0o020
	PermGroupRead                          // 0o040
	PermOwnerExec                          // 0o100
	PermOwnerWrite                         // 0o200
	PermOwnerRead                          // 0o400
	PermIsFile                             // bit 9

	// PermMask selects the rwx bits.
	PermMask Permissions = 0o777

	// PermissionsSize is the encoded size of a Permissions value.
	PermissionsSize = 2
)

// RootPermissions is the mode of a share's root directory (rwxr-xr-x).
const RootPermissions Permissions = 0o755

// NewPermissions builds a Permissions value from a mode and kind.
func NewPermissions(mode uint32, isFile bool) Permissions {
	p := Permissions(mode) & PermMask
	if isFile {
		p |= PermIsFile
	}
	return p
}

// IsFile reports whether the entry is a regular file.
func (p Permissions) IsFile() bool { return p&PermIsFile != 0 }

// IsDir reports whether the entry is a directory.
func (p Permissions) IsDir() bool { return !p.IsFile() }

// Mode returns the rwx bits.
func (p Permissions) Mode() uint32 { return uint32(p & PermMask) }

func (p Permissions) OwnerRead() bool    { return p&PermOwnerRead != 0 }
func (p Permissions) OwnerWrite() bool   { return p&PermOwnerWrite != 0 }
func (p Permissions) OwnerExecute() bool { return p&PermOwnerExec != 0 }
func (p Permissions) GroupRead() bool    { return p&PermGroupRead != 0 }
func (p Permissions) GroupWrite() bool   { return p&PermGroupWrite != 0 }
func (p Permissions) GroupExecute() bool { return p&PermGroupExec != 0 }
func (p Permissions) OtherRead() bool    { return p&PermOtherRead != 0 }
func (p Permissions) OtherWrite() bool   { return p&PermOtherWrite != 0 }
func (p Permissions) OtherExecute() bool { return p&PermOtherExec != 0 }

// WithMode replaces the rwx bits and keeps the kind.
func (p Permissions) WithMode(mode uint32) Permissions {
	return (p &^ PermMask) | Permissions(mode)&PermMask
}

// Encode returns the 2-byte big-endian storage form.
func (p Permissions) Encode() []byte {
	b := make([]byte, PermissionsSize)
	binary.BigEndian.PutUint16(b, uint16(p))
	return b
}

// DecodePermissions parses the storage form produced by Encode.
func DecodePermissions(b []byte) (Permissions, error) {
	if len(b) != PermissionsSize {
		return 0, fmt.Errorf("permissions: want %d bytes, got %d", PermissionsSize, len(b))
	}
	v := binary.BigEndian.Uint16(b)
	if v>>10 != 0 {
		return 0, fmt.Errorf("permissions: unknown bits set in %#04x", v)
	}
	return Permissions(v), nil
}

// String renders the value like ls(1), e.g. "-rw-r--r--" or "drwxr-xr-x".
func (p Permissions) String() string {
	const rwx = "rwxrwxrwx"
	var sb strings.Builder
	if p.IsFile() {
		sb.WriteByte('-')
	} else {
		sb.WriteByte('d')
	}
	for i := 0; i < 9; i++ {
		if p&(1<<(8-i)) != 0 {
			sb.WriteByte(rwx[i])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// ParseMode parses an octal mode string such as "644" or "0o755".
func ParseMode(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", s, err)
	}
	if v > uint64(PermMask) {
		return 0, fmt.Errorf("invalid mode %q: out of range", s)
	}
	return uint32(v), nil
}
