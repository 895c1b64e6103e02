package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	ID      string            `json:"id"`
	Indexes []string          `json:"indexes"`
	Rows    map[string][]int  `json:"rows"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func sample() snapshot {
	rows := make(map[string][]int)
	for i := range 200 {
		rows[string(rune('a'+i%26))] = append(rows[string(rune('a'+i%26))], i)
	}
	return snapshot{
		ID:      "catalog",
		Indexes: []string{"path", "review_state"},
		Rows:    rows,
		Meta:    map[string]string{"states": strings.Repeat("published private pending ", 64)},
	}
}

func TestByName(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		got, ok := ByName(c.Name())
		require.True(t, ok)
		assert.Equal(t, c, got)
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
			t.Run(c.Name()+"/"+comp.String(), func(t *testing.T) {
				in := sample()
				data, err := Encode(c, comp, in)
				require.NoError(t, err)

				var out snapshot
				h, err := Decode(data, &out)
				require.NoError(t, err)
				assert.Equal(t, in, out)
				assert.Equal(t, c.Name(), h.Codec)
				assert.Equal(t, comp, h.Compression)
			})
		}
	}
}

func TestEnvelope_IncompressibleStoredRaw(t *testing.T) {
	data, err := Wrap("json", CompressionZSTD, []byte(`"x"`))
	require.NoError(t, err)

	h, payload, err := Unwrap(data)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, h.Compression)
	assert.Equal(t, []byte(`"x"`), payload)
}

func TestEnvelope_Corrupt(t *testing.T) {
	good, err := Encode(JSON{}, CompressionLZ4, sample())
	require.NoError(t, err)

	flipped := bytes.Clone(good)
	flipped[len(flipped)-1] ^= 0xff

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XXXX"), good[4:]...)},
		{"truncated", good[:10]},
		{"flipped payload", flipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out snapshot
			_, err := Decode(tt.data, &out)
			assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
		})
	}
}

func TestEnvelope_UnknownCodec(t *testing.T) {
	data, err := Wrap("msgpack", CompressionNone, []byte{1, 2, 3})
	require.NoError(t, err)

	var out any
	_, err = Decode(data, &out)
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.ErrorIs(t, err, ErrUnknownCompression)
}
