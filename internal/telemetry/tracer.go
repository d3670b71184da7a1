package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys.
const (
	AttrShare     = "share.name"
	AttrInstance  = "share.instance"
	AttrOperation = "fs.operation"
	AttrPath      = "fs.path"
	AttrFileID    = "fs.file_id"
	AttrChangeID  = "fs.change_id"
	AttrMode      = "fs.mode"
	AttrIsFile    = "fs.is_file"
	AttrOffset    = "fs.offset"
	AttrCount     = "fs.count"
	AttrTxnSeq    = "txn.seq"
	AttrTxnKind   = "txn.kind"
	AttrStoreType = "store.type"
	AttrBlobKey   = "blob.key"
)

// Span names outside the share.<op> family.
const (
	SpanOpen     = "share.open"
	SpanRecover  = "share.recover"
	SpanTxnBegin = "txlog.begin"
	SpanBlobPut  = "blob.put"
)

func Share(name string) attribute.KeyValue       { return attribute.String(AttrShare, name) }
func Instance(filename string) attribute.KeyValue { return attribute.String(AttrInstance, filename) }
func Operation(op string) attribute.KeyValue      { return attribute.String(AttrOperation, op) }
func Path(p string) attribute.KeyValue            { return attribute.String(AttrPath, p) }
func IsFile(v bool) attribute.KeyValue            { return attribute.Bool(AttrIsFile, v) }
func Offset(n int) attribute.KeyValue             { return attribute.Int(AttrOffset, n) }
func Count(n int) attribute.KeyValue              { return attribute.Int(AttrCount, n) }
func TxnKind(kind string) attribute.KeyValue      { return attribute.String(AttrTxnKind, kind) }
func StoreType(t string) attribute.KeyValue       { return attribute.String(AttrStoreType, t) }
func BlobKey(key string) attribute.KeyValue       { return attribute.String(AttrBlobKey, key) }

// FileID formats an entry identity as "instance:id".
func FileID(id string) attribute.KeyValue { return attribute.String(AttrFileID, id) }

// ChangeID formats a version stamp as "instance:id".
func ChangeID(v string) attribute.KeyValue { return attribute.String(AttrChangeID, v) }

// Mode records permission bits.
func Mode(mode uint32) attribute.KeyValue { return attribute.Int64(AttrMode, int64(mode)) }

// TxnSeq records a transaction log sequence number.
func TxnSeq(seq uint64) attribute.KeyValue { return attribute.Int64(AttrTxnSeq, int64(seq)) }

// StartShareSpan starts the span for a share operation, named share.<op>.
func StartShareSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, Operation(op))
	all = append(all, attrs...)
	return StartSpan(ctx, "share."+op, all...)
}
