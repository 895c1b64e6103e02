package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Envelope layout (little endian):
//
//	magic    [4]byte "CTLG"
//	version  uint8
//	comp     uint8   Compression actually applied
//	nameLen  uint8
//	name     [nameLen]byte codec name
//	size     uint32  uncompressed payload size
//	checksum uint64  xxhash of the uncompressed payload
//	payload  []byte
const (
	envelopeVersion = 1
	fixedHeaderSize = 4 + 1 + 1 + 1
	trailerSize     = 4 + 8
)

var magic = [4]byte{'C', 'T', 'L', 'G'}

var (
	// ErrCorrupt is returned for envelopes that fail validation.
	ErrCorrupt = errors.New("corrupt envelope")

	// ErrUnknownCodec is returned for envelopes written with a codec this
	// build does not know.
	ErrUnknownCodec = errors.New("unknown codec")
)

// Header describes an envelope.
type Header struct {
	Version     uint8
	Codec       string
	Compression Compression
	Size        int
}

// Encode marshals v with c and wraps it in an envelope. The payload is
// stored uncompressed when comp does not pay off.
func Encode(c Codec, comp Compression, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	payload, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	return Wrap(c.Name(), comp, payload)
}

// Wrap wraps an already encoded payload in an envelope.
func Wrap(codecName string, comp Compression, payload []byte) ([]byte, error) {
	if len(codecName) > 255 {
		return nil, fmt.Errorf("codec name too long: %q", codecName)
	}
	body, ok, err := compress(payload, comp)
	if err != nil {
		return nil, fmt.Errorf("compress %s: %w", comp, err)
	}
	if !ok {
		comp = CompressionNone
		body = payload
	}

	out := make([]byte, 0, fixedHeaderSize+len(codecName)+trailerSize+len(body))
	out = append(out, magic[:]...)
	out = append(out, envelopeVersion, byte(comp), byte(len(codecName)))
	out = append(out, codecName...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = binary.LittleEndian.AppendUint64(out, xxhash.Sum64(payload))
	return append(out, body...), nil
}

// Unwrap validates an envelope and returns its header and uncompressed
// payload.
func Unwrap(data []byte) (Header, []byte, error) {
	var h Header
	if len(data) < fixedHeaderSize || [4]byte(data[:4]) != magic {
		return h, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	h.Version = data[4]
	if h.Version != envelopeVersion {
		return h, nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	h.Compression = Compression(data[5])
	nameLen := int(data[6])
	rest := data[fixedHeaderSize:]
	if len(rest) < nameLen+trailerSize {
		return h, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	h.Codec = string(rest[:nameLen])
	rest = rest[nameLen:]
	h.Size = int(binary.LittleEndian.Uint32(rest))
	sum := binary.LittleEndian.Uint64(rest[4:])
	rest = rest[trailerSize:]

	payload, err := decompress(rest, h.Compression, h.Size)
	if err != nil {
		return h, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if len(payload) != h.Size || xxhash.Sum64(payload) != sum {
		return h, nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return h, payload, nil
}

// Decode unwraps an envelope and unmarshals its payload into v with the
// codec named in the header.
func Decode(data []byte, v any) (Header, error) {
	h, payload, err := Unwrap(data)
	if err != nil {
		return h, err
	}
	c, ok := ByName(h.Codec)
	if !ok {
		return h, fmt.Errorf("%w: %q", ErrUnknownCodec, h.Codec)
	}
	if err := c.Unmarshal(payload, v); err != nil {
		return h, fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	return h, nil
}
