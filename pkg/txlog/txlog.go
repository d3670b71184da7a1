// Package txlog is a directory-backed intent log for share mutations.
//
// Each in-flight operation is one file, <seq>.txn, holding a codec frame
// ("SHTX" v1). A record is made durable before the operation touches blob
// storage or metadata, and removed once both are committed. Records still
// present at startup describe operations that may have been interrupted
// and are replayed through Recover.
package txlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/marmos91/dittoshare/internal/logger"
	"github.com/marmos91/dittoshare/pkg/codec"
)

// Protocol is the frame protocol number of transaction records ("SHTX").
var Protocol = codec.ProtocolID("SHTX")

// Version is the only record version written and read.
const Version uint32 = 1

const (
	recordExt = ".txn"
	tempExt   = ".tmp"
)

var (
	// ErrCorruptRecord is returned for records that cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt transaction record")

	// ErrLogClosed is returned when operations are attempted on a closed log.
	ErrLogClosed = errors.New("transaction log is closed")
)

type record struct {
	Seq     uint64
	Kind    uint32
	Payload []byte
}

// Handle refers to a record written by Begin.
type Handle struct {
	Seq uint64
}

// Entry is a pending record.
type Entry struct {
	Seq uint64
	Op  Op
}

// Log manages the records in one directory.
type Log struct {
	mu     sync.Mutex
	dir    string
	next   uint64
	closed bool
}

// Open opens the log in dir, creating the directory if needed. Leftover
// temp files from an interrupted Begin are removed.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transaction directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read transaction directory: %w", err)
	}

	l := &Log{dir: dir, next: 1}
	for _, de := range entries {
		name := de.Name()
		switch {
		case strings.HasSuffix(name, tempExt):
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("remove stale record %s: %w", name, err)
			}
			logger.Debug("Removed stale transaction temp file", logger.KeyPath, name)
		case strings.HasSuffix(name, recordExt):
			seq, ok := parseName(name)
			if ok && seq >= l.next {
				l.next = seq + 1
			}
		}
	}
	return l, nil
}

// Dir returns the directory holding the records.
func (l *Log) Dir() string { return l.dir }

func recordName(seq uint64) string {
	return fmt.Sprintf("%020d%s", seq, recordExt)
}

func parseName(name string) (uint64, bool) {
	seq, err := strconv.ParseUint(strings.TrimSuffix(name, recordExt), 10, 64)
	return seq, err == nil
}

// Begin durably records op and returns its handle.
func (l *Log) Begin(op Op) (Handle, error) {
	payload, err := marshalOp(op)
	if err != nil {
		return Handle{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Handle{}, ErrLogClosed
	}

	seq := l.next
	data, err := codec.Encode(codec.Tag{Protocol: Protocol, Version: Version},
		&record{Seq: seq, Kind: uint32(op.Kind()), Payload: payload})
	if err != nil {
		return Handle{}, err
	}

	final := filepath.Join(l.dir, recordName(seq))
	if err := writeDurable(final, data); err != nil {
		return Handle{}, fmt.Errorf("write transaction record: %w", err)
	}
	l.next++

	logger.Debug("Transaction begun", logger.KeyTxnSeq, seq, logger.KeyTxnKind, op.Kind().String())
	return Handle{Seq: seq}, nil
}

// Complete removes the record for h.
func (l *Log) Complete(h Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLogClosed
	}

	if err := os.Remove(filepath.Join(l.dir, recordName(h.Seq))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove transaction record: %w", err)
	}
	if err := syncDir(l.dir); err != nil {
		return err
	}

	logger.Debug("Transaction completed", logger.KeyTxnSeq, h.Seq)
	return nil
}

// Pending returns every record on disk in sequence order.
func (l *Log) Pending() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLogClosed
	}
	return l.pendingLocked()
}

func (l *Log) pendingLocked() ([]Entry, error) {
	des, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read transaction directory: %w", err)
	}

	var names []string
	for _, de := range des {
		if !de.IsDir() && strings.HasSuffix(de.Name(), recordExt) {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read transaction record %s: %w", name, err)
		}
		e, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if seq, ok := parseName(name); !ok || seq != e.Seq {
			return nil, fmt.Errorf("%w: %s holds sequence %d", ErrCorruptRecord, name, e.Seq)
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeRecord(data []byte) (Entry, error) {
	f, err := codec.Parse(data)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if f.Protocol != Protocol || f.Version != Version {
		return Entry{}, fmt.Errorf("%w: unexpected frame %s", ErrCorruptRecord, f.Tag)
	}

	var rec record
	if err := f.Decode(&rec); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	op, err := unmarshalOp(Kind(rec.Kind), rec.Payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Seq: rec.Seq, Op: op}, nil
}

// ApplyFunc re-applies a pending operation. It must be idempotent.
type ApplyFunc func(ctx context.Context, op Op) error

// Recover replays every pending record in order and removes it once
// apply succeeds. The first failure stops replay and is returned; the
// failed record and those after it stay on disk.
func (l *Log) Recover(ctx context.Context, apply ApplyFunc) (int, error) {
	pending, err := l.Pending()
	if err != nil {
		return 0, err
	}

	for i, e := range pending {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := apply(ctx, e.Op); err != nil {
			return i, fmt.Errorf("replay transaction %d (%s): %w", e.Seq, e.Op.Kind(), err)
		}
		if err := l.Complete(Handle{Seq: e.Seq}); err != nil {
			return i, err
		}
		logger.InfoCtx(ctx, "Replayed transaction", logger.KeyTxnSeq, e.Seq, logger.KeyTxnKind, e.Op.Kind().String())
	}
	return len(pending), nil
}

// Close marks the log closed. Records on disk are kept.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// writeDurable writes data to a temp file beside path, syncs it, renames
// it into place and syncs the directory.
func writeDurable(path string, data []byte) error {
	tmp := strings.TrimSuffix(path, recordExt) + tempExt
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return syncDir(filepath.Dir(path))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open directory for sync: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync directory: %w", err)
	}
	return nil
}
