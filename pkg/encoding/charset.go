// Package encoding converts the fixed-size, NUL-padded name fields of stored
// morph records between UTF-8 and the legacy code pages older hosts wrote.
package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// ErrTooLong is returned when an encoded name does not fit its field.
var ErrTooLong = errors.New("encoded string too long")

// Charset names the byte encoding of a stored string.
type Charset int

// Supported charsets.
const (
	UTF8 Charset = iota
	ShiftJIS
	EUCKR
)

// String returns the canonical charset name.
func (c Charset) String() string {
	switch c {
	case UTF8:
		return "utf-8"
	case ShiftJIS:
		return "shift_jis"
	case EUCKR:
		return "euc-kr"
	default:
		return fmt.Sprintf("Charset(%d)", int(c))
	}
}

// ParseCharset maps a configuration value to a Charset. Matching ignores
// case, dashes and underscores; the empty string means UTF-8.
func ParseCharset(name string) (Charset, error) {
	n := strings.ToLower(name)
	n = strings.NewReplacer("-", "", "_", "").Replace(n)
	switch n {
	case "", "utf8":
		return UTF8, nil
	case "shiftjis", "sjis", "cp932":
		return ShiftJIS, nil
	case "euckr", "cp949":
		return EUCKR, nil
	}
	return UTF8, fmt.Errorf("unknown charset %q", name)
}

func (c Charset) encoding() encoding.Encoding {
	switch c {
	case ShiftJIS:
		return japanese.ShiftJIS
	case EUCKR:
		return korean.EUCKR
	default:
		return nil
	}
}

// Decode converts raw bytes in c to a UTF-8 string. Bytes that are not valid
// in c come back unchanged.
func (c Charset) Decode(data []byte) string {
	enc := c.encoding()
	if enc == nil {
		return string(data)
	}
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// Encode converts a UTF-8 string to bytes in c. Characters c cannot
// represent are an error.
func (c Charset) Encode(s string) ([]byte, error) {
	enc := c.encoding()
	if enc == nil {
		return []byte(s), nil
	}
	result, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %q as %s: %w", s, c, err)
	}
	return result, nil
}

// TrimNullBytes cuts data at the first NUL byte.
func TrimNullBytes(data []byte) []byte {
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		return data[:idx]
	}
	return data
}

// FixedString decodes a NUL-padded field.
func FixedString(data []byte, c Charset) string {
	return c.Decode(TrimNullBytes(data))
}

// ToFixedString encodes s into a field of size bytes, NUL padded. At least
// one NUL always terminates the field.
func ToFixedString(s string, size int, c Charset) ([]byte, error) {
	encoded, err := c.Encode(s)
	if err != nil {
		return nil, err
	}
	if len(encoded) >= size {
		return nil, fmt.Errorf("%w: %d bytes for a %d byte field", ErrTooLong, len(encoded), size)
	}
	result := make([]byte, size)
	copy(result, encoded)
	return result, nil
}
