package core

// streaming.go cleans uploaded bytes before they reach a parser:
//
//   - a UTF-8 byte order mark (0xEF 0xBB 0xBF) written by Windows tools is dropped
//   - invalid UTF-8 sequences are replaced with U+FFFD
//   - the total size is capped so a single upload cannot exhaust memory
//
// Use WrapForImport to apply the transforms in the correct order.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned when an upload exceeds the configured size.
var ErrFileTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader drops a leading UTF-8 BOM and is otherwise transparent.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// UTF8Sanitizer replaces invalid UTF-8 bytes with the Unicode replacement
// character while streaming. Valid input passes through unchanged.
type UTF8Sanitizer struct {
	src     *bufio.Reader
	pending []byte
}

// NewUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{src: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	n := 0
	var buf [utf8.UTFMax]byte
	for n < len(p) {
		if len(s.pending) > 0 {
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		// ReadRune reports an invalid byte as (RuneError, 1), so encoding r
		// emits U+FFFD in its place.
		r, _, err := s.src.ReadRune()
		if err != nil {
			if n > 0 {
				// The error repeats on the next call.
				return n, nil
			}
			return 0, err
		}

		m := utf8.EncodeRune(buf[:], r)
		c := copy(p[n:], buf[:m])
		n += c
		if c < m {
			s.pending = append(s.pending[:0], buf[c:m]...)
		}
	}
	return n, nil
}

// WrapForImport strips the BOM first, then sanitizes the remaining bytes.
func WrapForImport(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(NewBOMSkippingReader(r))
}

// ReadAllLimited reads r to EOF, failing with ErrFileTooLarge past maxBytes.
// maxBytes <= 0 disables the limit.
func ReadAllLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxBytes)
	}
	return data, nil
}
