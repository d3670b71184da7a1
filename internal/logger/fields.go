package logger

import (
	"fmt"
	"log/slog"
	"time"
)

// Field keys used across dittoshare log statements. Keep them stable: log
// queries and dashboards match on these names.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Share
	KeyShare     = "share"     // share name as given at creation
	KeyInstance  = "instance"  // instance filename (name + hex id)
	KeyRoot      = "root"      // share root directory on disk
	KeyOperation = "operation" // create, set_permissions, delete, ...
	KeyOutcome   = "outcome"   // created, restored

	// Files
	KeyPath        = "path"
	KeyFilename    = "filename"
	KeyFileID      = "file_id"
	KeyChangeID    = "change_id"
	KeyPermissions = "permissions"
	KeyTimestamp   = "timestamp"

	// Transaction log
	KeyTxnSeq  = "txn_seq"
	KeyTxnKind = "txn_kind"

	// Storage
	KeyStore   = "store"    // metadata backend: sqlite, postgres, badger, memory
	KeyBlobKey = "blob_key" // blob object key
	KeyVersion = "version"  // schema or static data version

	// Misc
	KeyDuration = "duration_ms"
	KeyError    = "error"
	KeyCount    = "count"
)

// Share returns a share name attribute.
func Share(name string) slog.Attr { return slog.String(KeyShare, name) }

// Instance returns an instance filename attribute.
func Instance(filename string) slog.Attr { return slog.String(KeyInstance, filename) }

// Operation returns an operation name attribute.
func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }

// Path returns a path attribute.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Filename returns a filename attribute.
func Filename(name string) slog.Attr { return slog.String(KeyFilename, name) }

// FileID formats a (instance, local id) pair as "instance:id".
func FileID(instance, id uint64) slog.Attr {
	return slog.String(KeyFileID, fmt.Sprintf("%d:%d", instance, id))
}

// ChangeID formats a (instance, change id) pair as "instance:id".
func ChangeID(instance, id uint64) slog.Attr {
	return slog.String(KeyChangeID, fmt.Sprintf("%d:%d", instance, id))
}

// Permissions renders a permission mask in octal.
func Permissions(mode uint16) slog.Attr {
	return slog.String(KeyPermissions, fmt.Sprintf("%#o", mode))
}

// TxnSeq returns a transaction record sequence attribute.
func TxnSeq(seq uint64) slog.Attr { return slog.Uint64(KeyTxnSeq, seq) }

// TxnKind returns a transaction record kind attribute.
func TxnKind(kind string) slog.Attr { return slog.String(KeyTxnKind, kind) }

// Store returns a metadata store type attribute.
func Store(kind string) slog.Attr { return slog.String(KeyStore, kind) }

// BlobKey returns a blob key attribute.
func BlobKey(key string) slog.Attr { return slog.String(KeyBlobKey, key) }

// DurationMs returns the elapsed time since start in milliseconds.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDuration, Duration(start))
}

// Err returns an error attribute. A nil error yields an empty attr that
// handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
