package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTag = Tag{Protocol: ProtocolID("TEST"), Version: 2}

type bodyV1 struct {
	Name string
	N    uint64
}

type bodyV2 struct {
	Name  string
	N     uint64
	Extra uint32
	Flag  bool
}

func TestProtocolID(t *testing.T) {
	assert.Equal(t, uint32(0x53485354), ProtocolID("SHST"))
	assert.Panics(t, func() { ProtocolID("TOOLONG") })
}

func TestRoundTrip(t *testing.T) {
	in := bodyV2{Name: "alpha", N: 42, Extra: 7, Flag: true}

	data, err := Encode(testTag, &in)
	require.NoError(t, err)
	assert.Equal(t, testTag.Protocol, binary.BigEndian.Uint32(data[0:4]))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(len(data)-HeaderSize), binary.BigEndian.Uint32(data[8:12]))

	f, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, testTag, f.Tag)

	var out bodyV2
	require.NoError(t, f.Decode(&out))
	assert.Equal(t, in, out)
}

func TestOlderReaderSkipsAppendedFields(t *testing.T) {
	data, err := Encode(testTag, &bodyV2{Name: "n", N: 9, Extra: 1})
	require.NoError(t, err)

	f, err := Parse(data)
	require.NoError(t, err)

	var old bodyV1
	require.NoError(t, f.Decode(&old))
	assert.Equal(t, bodyV1{Name: "n", N: 9}, old)
}

func TestTrailingDataTolerated(t *testing.T) {
	data, err := Encode(testTag, &bodyV1{Name: "x"})
	require.NoError(t, err)

	r := bytes.NewReader(append(data, 0xde, 0xad, 0xbe, 0xef))
	f, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Len())

	var out bodyV1
	require.NoError(t, f.Decode(&out))
	assert.Equal(t, "x", out.Name)
}

func TestTruncated(t *testing.T) {
	data, err := Encode(testTag, &bodyV1{Name: "truncate me", N: 1})
	require.NoError(t, err)

	for n := 0; n < len(data); n++ {
		_, err := Parse(data[:n])
		assert.ErrorIs(t, err, ErrTruncated, "prefix of %d bytes", n)
	}
}

func TestMalformedBody(t *testing.T) {
	t.Run("ShortBody", func(t *testing.T) {
		f := Frame{Tag: testTag, Body: []byte{0, 0, 0}}
		var out bodyV1
		assert.ErrorIs(t, f.Decode(&out), ErrMalformed)
	})

	t.Run("HugeStringLength", func(t *testing.T) {
		f := Frame{Tag: testTag, Body: []byte{0xff, 0xff, 0xff, 0xf0, 'a', 'b', 'c', 'd'}}
		var out bodyV1
		assert.ErrorIs(t, f.Decode(&out), ErrMalformed)
	})
}

func TestOversized(t *testing.T) {
	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint32(hdr[8:12], MaxBodySize+1)

	_, err := Parse(hdr[:])
	assert.True(t, errors.Is(err, ErrOversized))
}

func TestTagString(t *testing.T) {
	assert.Equal(t, `"TEST"/v2`, testTag.String())
}
