package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, data []byte, typ Type) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, typ)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	original := []byte(strings.Repeat(`{"id":4096,"class":"RubyBasicObject"}`, 64))

	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd} {
		t.Run(typ.String(), func(t *testing.T) {
			compressed := encode(t, original, typ)
			assert.Equal(t, typ, Detect(compressed))

			r, detected, err := NewReader(bytes.NewReader(compressed))
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, typ, detected)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, original, got)
		})
	}
}

func TestWriterShrinksRepetitiveData(t *testing.T) {
	original := bytes.Repeat([]byte("abcdefgh"), 1024)

	for _, typ := range []Type{TypeGzip, TypeZstd} {
		assert.Less(t, len(encode(t, original, typ)), len(original), typ.String())
	}
}

func TestNewWriter_UnknownType(t *testing.T) {
	_, err := NewWriter(io.Discard, Type(42))
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Type
	}{
		{name: "empty", data: nil, want: TypeNone},
		{name: "json", data: []byte(`{"classes":[]}`), want: TypeNone},
		{name: "gzip", data: []byte{0x1f, 0x8b, 0x08, 0x00}, want: TypeGzip},
		{name: "zstd", data: []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, want: TypeZstd},
		{name: "short zstd prefix", data: []byte{0x28, 0xb5}, want: TypeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.data))
		})
	}
}

func TestNewReader_ShortInput(t *testing.T) {
	r, typ, err := NewReader(bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, TypeNone, typ)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestNewReader_CorruptGzip(t *testing.T) {
	_, _, err := NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "", want: TypeNone},
		{in: "none", want: TypeNone},
		{in: "GZIP", want: TypeGzip},
		{in: "zst", want: TypeZstd},
		{in: "brotli", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTypeFromKey(t *testing.T) {
	assert.Equal(t, TypeGzip, TypeFromKey("a/heap.json.gz"))
	assert.Equal(t, TypeZstd, TypeFromKey("heap.json.zst"))
	assert.Equal(t, TypeNone, TypeFromKey("heap.json"))
	assert.Equal(t, ".zst", TypeZstd.Extension())
	assert.Equal(t, "", TypeNone.Extension())
}

func TestWithExtension(t *testing.T) {
	assert.Equal(t, "dumps/a.json.zst", WithExtension("dumps/a.json.gz", TypeZstd))
	assert.Equal(t, "dumps/a.json.gz", WithExtension("dumps/a.json", TypeGzip))
	assert.Equal(t, "dumps/a.json", WithExtension("dumps/a.json.zst", TypeNone))
	assert.Equal(t, "a.json.zst", WithExtension("a.json.zst", TypeZstd))
}
