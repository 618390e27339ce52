// Package codec reads and writes automata in the OpenFst "vector" binary
// layout with standard (tropical, float32) arcs, and archives of keyed
// automata stored back to back.
package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// #region constants
const (
	Magic   int32 = 2125659606
	FstType       = "vector"
	ArcType       = "standard"
	Version int32 = 2

	flagHasISymbols = 0x1
	flagHasOSymbols = 0x2
	flagIsAligned   = 0x4

	// expanded | mutable
	properties uint64 = 0x3

	maxTypeName = 1 << 10
)

// #endregion constants

// #region errors
var (
	ErrBadMagic          = errors.New("codec: bad magic number")
	ErrUnsupportedFormat = errors.New("codec: unsupported automaton format")
)

// #endregion errors

// #region header
type header struct {
	fstType   string
	arcType   string
	version   int32
	flags     int32
	props     uint64
	start     int64
	numStates int64
	numArcs   int64
}

func readHeader(r io.Reader) (header, error) {
	var h header
	var magic int32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return h, fmt.Errorf("read magic: %w", err)
	}
	if magic != Magic {
		return h, fmt.Errorf("%w: %d", ErrBadMagic, magic)
	}
	var err error
	if h.fstType, err = readString(r); err != nil {
		return h, fmt.Errorf("read fst type: %w", err)
	}
	if h.arcType, err = readString(r); err != nil {
		return h, fmt.Errorf("read arc type: %w", err)
	}
	fields := []any{&h.version, &h.flags, &h.props, &h.start, &h.numStates, &h.numArcs}
	for _, p := range fields {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return h, fmt.Errorf("read header: %w", err)
		}
	}

	switch {
	case h.fstType != FstType:
		return h, fmt.Errorf("%w: fst type %q", ErrUnsupportedFormat, h.fstType)
	case h.arcType != ArcType:
		return h, fmt.Errorf("%w: arc type %q", ErrUnsupportedFormat, h.arcType)
	case h.version < 1 || h.version > Version:
		return h, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, h.version)
	case h.flags&(flagHasISymbols|flagHasOSymbols) != 0:
		return h, fmt.Errorf("%w: embedded symbol tables", ErrUnsupportedFormat)
	case h.flags&flagIsAligned != 0:
		return h, fmt.Errorf("%w: aligned layout", ErrUnsupportedFormat)
	case h.numStates < 0:
		return h, fmt.Errorf("%w: unknown state count", ErrUnsupportedFormat)
	}
	return h, nil
}

func writeHeader(w io.Writer, f *fst.Fst) error {
	total := 0
	for _, s := range f.States() {
		total += f.NumArcs(s)
	}
	if err := binary.Write(w, binary.LittleEndian, Magic); err != nil {
		return err
	}
	if err := writeString(w, FstType); err != nil {
		return err
	}
	if err := writeString(w, ArcType); err != nil {
		return err
	}
	fields := []any{Version, int32(0), properties, int64(f.Start()), int64(f.NumStates()), int64(total)}
	for _, v := range fields {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n < 0 || n > maxTypeName {
		return "", fmt.Errorf("%w: string length %d", ErrUnsupportedFormat, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// #endregion header

// #region read-write
type wireArc struct {
	ILabel    int32
	OLabel    int32
	Weight    float32
	NextState int32
}

// Read decodes one automaton from r. It consumes exactly the bytes of that
// automaton, so archives can be read entry after entry.
func Read(r io.Reader) (*fst.Fst, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	// States are created as their records arrive, so a header claiming more
	// states than the input holds fails at EOF without allocating them.
	type pendingArc struct {
		src int
		arc fst.Arc
	}
	f := fst.New()
	var arcs []pendingArc
	for s := 0; int64(s) < h.numStates; s++ {
		var final float32
		var narcs int64
		if err := binary.Read(r, binary.LittleEndian, &final); err != nil {
			return nil, fmt.Errorf("state %d final: %w", s, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &narcs); err != nil {
			return nil, fmt.Errorf("state %d arc count: %w", s, err)
		}
		if narcs < 0 {
			return nil, fmt.Errorf("%w: state %d has %d arcs", ErrUnsupportedFormat, s, narcs)
		}
		f.AddState()
		if !math.IsInf(float64(final), 1) {
			f.SetFinal(s, float64(final))
		}
		for i := int64(0); i < narcs; i++ {
			var wa wireArc
			if err := binary.Read(r, binary.LittleEndian, &wa); err != nil {
				return nil, fmt.Errorf("state %d arc %d: %w", s, i, err)
			}
			arcs = append(arcs, pendingArc{src: s, arc: fst.Arc{
				ILabel:    int(wa.ILabel),
				OLabel:    int(wa.OLabel),
				Weight:    float64(wa.Weight),
				NextState: int(wa.NextState),
			}})
		}
	}

	for i, p := range arcs {
		if err := f.AddArc(p.src, p.arc); err != nil {
			return nil, fmt.Errorf("arc %d of state %d: %w", i, p.src, err)
		}
	}
	if h.start != int64(fst.NoState) {
		if h.start < 0 || h.start >= h.numStates {
			return nil, fmt.Errorf("%w: start state %d of %d", ErrUnsupportedFormat, h.start, h.numStates)
		}
		if err := f.SetStart(int(h.start)); err != nil {
			return nil, fmt.Errorf("start state: %w", err)
		}
	}
	return f, nil
}

// Write encodes f to w. Weights are narrowed to float32.
func Write(w io.Writer, f *fst.Fst) error {
	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, f); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range f.States() {
		if err := binary.Write(bw, binary.LittleEndian, float32(f.Final(s))); err != nil {
			return fmt.Errorf("state %d final: %w", s, err)
		}
		arcs := f.Arcs(s)
		if err := binary.Write(bw, binary.LittleEndian, int64(len(arcs))); err != nil {
			return fmt.Errorf("state %d arc count: %w", s, err)
		}
		for _, a := range arcs {
			wa := wireArc{
				ILabel:    int32(a.ILabel),
				OLabel:    int32(a.OLabel),
				Weight:    float32(a.Weight),
				NextState: int32(a.NextState),
			}
			if err := binary.Write(bw, binary.LittleEndian, wa); err != nil {
				return fmt.Errorf("state %d arc: %w", s, err)
			}
		}
	}
	return bw.Flush()
}

// ReadFile decodes the automaton stored at path.
func ReadFile(path string) (*fst.Fst, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	f, err := Read(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}

// WriteFile encodes f to path, replacing any existing file.
func WriteFile(path string, f *fst.Fst) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(file, f); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// #endregion read-write
