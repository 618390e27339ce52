package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// ArkEntry is one keyed automaton of an archive.
type ArkEntry struct {
	Key string
	Fst *fst.Fst
}

// #region write
// WriteArkEntry writes key, one space, then the binary automaton.
func WriteArkEntry(w io.Writer, key string, f *fst.Fst) error {
	if key == "" {
		return errors.New("codec: empty archive key")
	}
	for _, r := range key {
		if unicode.IsSpace(r) {
			return fmt.Errorf("codec: archive key %q contains whitespace", key)
		}
	}
	if _, err := io.WriteString(w, key+" "); err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	if err := Write(w, f); err != nil {
		return fmt.Errorf("write entry %s: %w", key, err)
	}
	return nil
}

// AppendArkEntry appends one entry to the archive at path, creating it if needed.
func AppendArkEntry(path, key string, f *fst.Fst) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", path, err)
	}
	if err := WriteArkEntry(file, key, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// #endregion write

// #region read
// ArkReader scans an archive entry by entry.
type ArkReader struct {
	r *bufio.Reader
}

func NewArkReader(r io.Reader) *ArkReader {
	if br, ok := r.(*bufio.Reader); ok {
		return &ArkReader{r: br}
	}
	return &ArkReader{r: bufio.NewReader(r)}
}

// Next returns the next entry, or io.EOF once the input holds nothing but
// whitespace.
func (a *ArkReader) Next() (ArkEntry, error) {
	key, err := a.readKey()
	if err != nil {
		return ArkEntry{}, err
	}
	// separator byte
	if _, err := a.r.ReadByte(); err != nil {
		return ArkEntry{}, fmt.Errorf("entry %s: %w", key, io.ErrUnexpectedEOF)
	}
	f, err := Read(a.r)
	if errors.Is(err, io.EOF) {
		return ArkEntry{}, fmt.Errorf("entry %s: %w", key, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return ArkEntry{}, fmt.Errorf("entry %s: %w", key, err)
	}
	return ArkEntry{Key: key, Fst: f}, nil
}

func (a *ArkReader) readKey() (string, error) {
	var key []byte
	for {
		b, err := a.r.ReadByte()
		if err == io.EOF {
			if len(key) == 0 {
				return "", io.EOF
			}
			return "", fmt.Errorf("entry %s: %w", key, io.ErrUnexpectedEOF)
		}
		if err != nil {
			return "", err
		}
		if isSpace(b) {
			if len(key) == 0 {
				continue
			}
			return string(key), a.r.UnreadByte()
		}
		key = append(key, b)
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// ReadArk reads every entry of an archive.
func ReadArk(r io.Reader) ([]ArkEntry, error) {
	ar := NewArkReader(r)
	var entries []ArkEntry
	for {
		e, err := ar.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
}

// ReadArkFile reads every entry of the archive at path.
func ReadArkFile(path string) ([]ArkEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer file.Close()
	return ReadArk(file)
}

// #endregion read
