// Package formats reads and writes the binary morph record a host attaches to
// a mesh: the rest positions followed by every morph target.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/morphutil/pkg/encoding"
)

// Morph record errors.
var (
	ErrTruncatedMorphData      = errors.New("truncated morph data")
	ErrUnsupportedMorphVersion = errors.New("unsupported morph data version")
	ErrMorphCountMismatch      = errors.New("morph target index and vertex counts differ")
	ErrInvalidMorphCount       = errors.New("invalid morph count")
	ErrMorphIndexOutOfRange    = errors.New("morph target index out of range")
	ErrNameTooLong             = errors.New("morph target name too long")
)

// MorphVersion is the only record version written and accepted.
const MorphVersion int32 = 0x100

// MorphNameSize is the fixed width of a target name field.
const MorphNameSize = 128

// MorphTarget is one stored target.
type MorphTarget struct {
	Name     string
	Indices  []int32
	Vertices [][3]float32
	Weight   float32
}

// MorphData is a decoded morph record.
type MorphData struct {
	Version int32
	Base    [][3]float32
	Targets []MorphTarget
}

// Options selects how names are encoded.
type Options struct {
	Names encoding.Charset
}

// HasMorphData reports whether data starts a morph record at all. An absent
// or empty stream means the mesh has no targets.
func HasMorphData(data []byte) bool {
	return len(data) >= 4
}

// ParseMorphData decodes a record with UTF-8 names.
func ParseMorphData(data []byte) (*MorphData, error) {
	return ParseMorphDataWith(data, Options{})
}

// ParseMorphDataWith decodes a record. It fails closed: a count mismatch, a
// bad index or truncation yields an error and no partial result. Targets
// with no entries are dropped.
func ParseMorphDataWith(data []byte, opts Options) (*MorphData, error) {
	r := bytes.NewReader(data)

	md := &MorphData{}
	if err := binary.Read(r, binary.LittleEndian, &md.Version); err != nil {
		return nil, fmt.Errorf("%w: reading version", ErrTruncatedMorphData)
	}
	if md.Version != MorphVersion {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupportedMorphVersion, md.Version)
	}

	base, err := readVec3s(r, "base")
	if err != nil {
		return nil, err
	}
	md.Base = base

	targetCount, err := readCount(r, "targets", 1)
	if err != nil {
		return nil, err
	}

	name := make([]byte, MorphNameSize)
	for i := 0; i < targetCount; i++ {
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("%w: reading target %d name", ErrTruncatedMorphData, i)
		}
		t := MorphTarget{Name: encoding.FixedString(name, opts.Names)}

		n, err := readCount(r, "indices", 4)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		t.Indices = make([]int32, n)
		if err := binary.Read(r, binary.LittleEndian, t.Indices); err != nil {
			return nil, fmt.Errorf("%w: reading target %d indices", ErrTruncatedMorphData, i)
		}
		for _, idx := range t.Indices {
			if idx < 0 || int(idx) >= len(md.Base) {
				return nil, fmt.Errorf("%w: target %d index %d, base has %d", ErrMorphIndexOutOfRange, i, idx, len(md.Base))
			}
		}

		if t.Vertices, err = readVec3s(r, "vertices"); err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		if len(t.Vertices) != len(t.Indices) {
			return nil, fmt.Errorf("%w: target %d has %d indices, %d vertices", ErrMorphCountMismatch, i, len(t.Indices), len(t.Vertices))
		}

		if err := binary.Read(r, binary.LittleEndian, &t.Weight); err != nil {
			return nil, fmt.Errorf("%w: reading target %d weight", ErrTruncatedMorphData, i)
		}

		if len(t.Indices) == 0 {
			continue
		}
		md.Targets = append(md.Targets, t)
	}

	return md, nil
}

// readCount reads an int32 count and checks that count items of elemSize
// bytes can still follow.
func readCount(r *bytes.Reader, what string, elemSize int) (int, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("%w: reading %s count", ErrTruncatedMorphData, what)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s count %d", ErrInvalidMorphCount, what, n)
	}
	if int64(n)*int64(elemSize) > int64(r.Len()) {
		return 0, fmt.Errorf("%w: %d %s", ErrTruncatedMorphData, n, what)
	}
	return int(n), nil
}

func readVec3s(r *bytes.Reader, what string) ([][3]float32, error) {
	n, err := readCount(r, what, 12)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, n)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("%w: reading %s", ErrTruncatedMorphData, what)
	}
	return out, nil
}

// Encode writes the record with UTF-8 names.
func (md *MorphData) Encode() ([]byte, error) {
	return md.EncodeWith(Options{})
}

// EncodeWith writes the record. Version is always MorphVersion.
func (md *MorphData) EncodeWith(opts Options) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := func(v any) {
		// bytes.Buffer writes cannot fail.
		_ = binary.Write(buf, binary.LittleEndian, v)
	}

	w(MorphVersion)
	w(int32(len(md.Base)))
	w(md.Base)

	w(int32(len(md.Targets)))
	for i := range md.Targets {
		t := &md.Targets[i]
		if len(t.Indices) != len(t.Vertices) {
			return nil, fmt.Errorf("%w: target %q has %d indices, %d vertices", ErrMorphCountMismatch, t.Name, len(t.Indices), len(t.Vertices))
		}
		name, err := encoding.ToFixedString(t.Name, MorphNameSize, opts.Names)
		if err != nil {
			if errors.Is(err, encoding.ErrTooLong) {
				return nil, fmt.Errorf("%w: %q", ErrNameTooLong, t.Name)
			}
			return nil, err
		}
		buf.Write(name)
		w(int32(len(t.Indices)))
		w(t.Indices)
		w(int32(len(t.Vertices)))
		w(t.Vertices)
		w(t.Weight)
	}
	return buf.Bytes(), nil
}

// ParseMorphDataFile parses a record with UTF-8 names from disk.
func ParseMorphDataFile(path string) (*MorphData, error) {
	return ParseMorphDataFileWith(path, Options{})
}

// ParseMorphDataFileWith parses a record from disk.
func ParseMorphDataFileWith(path string, opts Options) (*MorphData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading morph file: %w", err)
	}
	return ParseMorphDataWith(data, opts)
}

// WriteMorphDataFile writes md to path with UTF-8 names.
func WriteMorphDataFile(path string, md *MorphData) error {
	return WriteMorphDataFileWith(path, md, Options{})
}

// WriteMorphDataFileWith writes md to path.
func WriteMorphDataFileWith(path string, md *MorphData, opts Options) error {
	data, err := md.EncodeWith(opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing morph file: %w", err)
	}
	return nil
}
