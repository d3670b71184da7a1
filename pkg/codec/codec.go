// Package codec implements the versioned frame format shared by the static
// data record and the transaction log.
//
// A frame is a fixed 12-byte big-endian header followed by an XDR body:
//
//	+----------+---------+--------+------------------+
//	| protocol | version | length | body (length B)  |
//	+----------+---------+--------+------------------+
//
// The length prefix lets a reader built against an older body shape stop at
// the frame boundary, so fields appended by later versions are skipped.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// HeaderSize is the encoded size of a frame header.
const HeaderSize = 12

// MaxBodySize bounds the body length accepted by ReadFrame.
const MaxBodySize = 16 << 20

var (
	// ErrTruncated is returned when the input ends inside a header or body.
	ErrTruncated = errors.New("codec: truncated frame")

	// ErrOversized is returned when a header announces a body above MaxBodySize.
	ErrOversized = errors.New("codec: frame body too large")

	// ErrMalformed is returned when a body does not decode into the target.
	ErrMalformed = errors.New("codec: malformed frame body")
)

// Tag identifies the protocol and version of a frame.
type Tag struct {
	Protocol uint32
	Version  uint32
}

// ProtocolID packs a four character code into a protocol number.
func ProtocolID(code string) uint32 {
	if len(code) != 4 {
		panic(fmt.Sprintf("codec: protocol code %q must be 4 bytes", code))
	}
	return binary.BigEndian.Uint32([]byte(code))
}

func (t Tag) String() string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], t.Protocol)
	return fmt.Sprintf("%q/v%d", b[:], t.Version)
}

// Frame is a decoded header plus its raw body.
type Frame struct {
	Tag
	Body []byte
}

// Decode unmarshals the frame body into v, which must be a pointer.
// Variable-length fields are capped at the body size so a corrupt length
// prefix cannot trigger a large allocation.
func (f Frame) Decode(v any) error {
	dec := xdr.NewDecoderLimited(bytes.NewReader(f.Body), uint(len(f.Body)))
	if _, err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, f.Tag, err)
	}
	return nil
}

// Encode returns the frame for body tagged with tag.
func Encode(tag Tag, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, tag, body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFrame writes a single frame to w.
func WriteFrame(w io.Writer, tag Tag, body any) error {
	var payload bytes.Buffer
	if _, err := xdr.Marshal(&payload, body); err != nil {
		return fmt.Errorf("encode %s body: %w", tag, err)
	}
	if payload.Len() > MaxBodySize {
		return fmt.Errorf("%w: %d bytes", ErrOversized, payload.Len())
	}

	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], tag.Protocol)
	binary.BigEndian.PutUint32(hdr[4:8], tag.Version)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(payload.Len()))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// ReadFrame reads one frame from r. Bytes after the frame are not consumed.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrTruncated
		}
		return Frame{}, err
	}

	f := Frame{Tag: Tag{
		Protocol: binary.BigEndian.Uint32(hdr[0:4]),
		Version:  binary.BigEndian.Uint32(hdr[4:8]),
	}}
	n := binary.BigEndian.Uint32(hdr[8:12])
	if n > MaxBodySize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrOversized, n)
	}

	f.Body = make([]byte, n)
	if _, err := io.ReadFull(r, f.Body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrTruncated
		}
		return Frame{}, err
	}
	return f, nil
}

// Parse reads a frame from the start of data.
func Parse(data []byte) (Frame, error) {
	return ReadFrame(bytes.NewReader(data))
}
