package blob

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoding names the byte encoding payloads are decoded with.
type Encoding string

const (
	// Latin1 maps every byte to one rune, so byte offsets and lengths survive
	// decoding. UTF-8 text stored in the dump comes out as mojibake and is
	// repaired downstream.
	Latin1 Encoding = "latin1"
	CP1252 Encoding = "cp1252"
	UTF8   Encoding = "utf-8"
)

// Codec turns payload bytes into text using a declared encoding. It never
// guesses: decoding failures are reported, not repaired.
type Codec struct {
	enc Encoding
	dec *encoding.Decoder
}

// NewCodec returns a codec for the named encoding.
func NewCodec(name string) (Codec, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(name))) {
	case "", Latin1, "iso-8859-1":
		return Codec{enc: Latin1, dec: charmap.ISO8859_1.NewDecoder()}, nil
	case CP1252, "windows-1252":
		return Codec{enc: CP1252, dec: charmap.Windows1252.NewDecoder()}, nil
	case UTF8, "utf8":
		return Codec{enc: UTF8}, nil
	default:
		return Codec{}, fmt.Errorf("unsupported encoding %q (supported: latin1, cp1252, utf-8)", name)
	}
}

// Encoding reports the codec's encoding.
func (c Codec) Encoding() Encoding {
	if c.enc == "" {
		return Latin1
	}
	return c.enc
}

// Decode converts payload bytes to a string. For UTF-8, invalid sequences are
// replaced with U+FFFD.
func (c Codec) Decode(b []byte) (string, error) {
	switch {
	case c.enc == UTF8:
		return strings.ToValidUTF8(string(b), "�"), nil
	case c.dec == nil:
		// zero Codec: Latin-1
		return decodeLatin1(b), nil
	}
	out, err := c.dec.Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s payload: %w", c.enc, err)
	}
	return string(out), nil
}

func decodeLatin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
