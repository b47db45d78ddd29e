// Package relay implements the wire-text codec. The charset is a single
// global configuration value shared by all connections.
package relay

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Codec converts between wire bytes and text using one configured charset.
// The zero value is not usable; construct with NewCodec.
type Codec struct {
	name string
	enc  encoding.Encoding // nil means plain UTF-8
}

// NewCodec resolves the named charset via the IANA index. Names are matched
// case-insensitively; "utf-8" and "utf8" select the native passthrough path.
func NewCodec(name string) (*Codec, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" || normalized == "utf-8" || normalized == "utf8" {
		return &Codec{name: "utf-8"}, nil
	}

	enc, err := ianaindex.IANA.Encoding(normalized)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("relay: unknown encoding %q", name)
	}

	return &Codec{name: normalized, enc: enc}, nil
}

// Name returns the normalized charset name.
func (c *Codec) Name() string {
	return c.name
}

// Decode converts one inbound message unit to text. A message that is not
// valid in the configured charset yields an error; the caller drops the
// message without closing the connection.
//
// The x/text decoders substitute U+FFFD for undecodable sequences instead of
// failing, so a replacement rune in the output is treated as the malformed
// case.
func (c *Codec) Decode(p []byte) (string, error) {
	if c.enc == nil {
		if !utf8.Valid(p) {
			return "", fmt.Errorf("relay: message is not valid %s", c.name)
		}
		return string(p), nil
	}

	decoded, err := c.enc.NewDecoder().Bytes(p)
	if err != nil {
		return "", fmt.Errorf("relay: decode %s: %w", c.name, err)
	}
	if strings.ContainsRune(string(decoded), utf8.RuneError) {
		return "", fmt.Errorf("relay: message is not valid %s", c.name)
	}
	return string(decoded), nil
}

// Encode converts outbound text to wire bytes. Runes the charset cannot
// represent are replaced rather than failing, so delivery never errors on
// charset gaps.
func (c *Codec) Encode(s string) []byte {
	if c.enc == nil {
		return []byte(s)
	}

	encoded, err := encoding.ReplaceUnsupported(c.enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return encoded
}
