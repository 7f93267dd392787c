// Package fasta streams FASTA sequence records one at a time.
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/MrCreosote/contigfilter/internal/errors"
)

// readBufSize is the read buffer size. Lines longer than this arrive in
// several fragments; line length itself is unbounded.
const readBufSize = 64 * 1024

// Record is a single FASTA record. Seq holds the residues with line breaks removed.
type Record struct {
	ID          string
	Description string
	// Header is the header line as read, without the leading '>' and the line ending.
	Header string
	Seq    []byte
}

// Len returns the sequence length in residues.
func (r *Record) Len() int64 {
	return int64(len(r.Seq))
}

// Reader reads FASTA records sequentially. Only the current record is held
// in memory.
type Reader struct {
	br   *bufio.Reader
	line int

	// header of the next record, already consumed from the stream
	pending     []byte
	havePending bool
	eof         bool
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, readBufSize)}
}

// Read returns the next record, or io.EOF when the stream is exhausted.
// Malformed input yields a MALFORMED_SEQUENCE_DATA error; the Reader must not
// be used after any error.
func (r *Reader) Read() (*Record, error) {
	if !r.havePending {
		if err := r.seekHeader(); err != nil {
			return nil, err
		}
	}

	header := bytes.TrimRight(r.pending, "\r")
	id, desc := parseHeader(header)
	if id == "" {
		return nil, errors.NewMalformedSequenceData(r.line, "header has no identifier")
	}
	rec := &Record{ID: id, Description: desc, Header: string(header)}
	r.havePending = false

	for {
		frag, more, err := r.readFragment()
		if err == io.EOF {
			return rec, nil
		}
		if err != nil {
			return nil, err
		}
		r.line++
		if len(frag) > 0 && frag[0] == '>' {
			if err := r.readHeader(frag[1:], more); err != nil {
				return nil, err
			}
			return rec, nil
		}

		var sl seqLine
		for {
			if rec.Seq, err = sl.add(rec.Seq, frag); err != nil {
				return nil, errors.NewMalformedSequenceData(r.line,
					fmt.Sprintf("%v in sequence %s", err, id))
			}
			if !more {
				break
			}
			if frag, more, err = r.readFragment(); err != nil {
				if err == io.EOF {
					return rec, nil
				}
				return nil, err
			}
		}
	}
}

// seekHeader advances to the first header line. Blank lines are skipped;
// anything else before the first header is malformed.
func (r *Reader) seekHeader() error {
	for {
		frag, more, err := r.readFragment()
		if err != nil {
			return err
		}
		r.line++
		if len(frag) > 0 && frag[0] == '>' {
			return r.readHeader(frag[1:], more)
		}
		for {
			if len(bytes.TrimSpace(frag)) > 0 {
				return errors.NewMalformedSequenceData(r.line, "sequence data before first header")
			}
			if !more {
				break
			}
			if frag, more, err = r.readFragment(); err != nil {
				return err
			}
		}
	}
}

// readHeader stores a header line starting with first as the pending header,
// reading the remaining fragments of the line when more is set.
func (r *Reader) readHeader(first []byte, more bool) error {
	r.pending = append(r.pending[:0], first...)
	for more {
		var frag []byte
		var err error
		if frag, more, err = r.readFragment(); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		r.pending = append(r.pending, frag...)
	}
	r.havePending = true
	return nil
}

// readFragment returns the next piece of the current line. more is set when
// the line continues in the following fragment. The returned slice is only
// valid until the next call.
func (r *Reader) readFragment() (frag []byte, more bool, err error) {
	if r.eof {
		return nil, false, io.EOF
	}
	frag, more, err = r.br.ReadLine()
	if err == io.EOF {
		r.eof = true
		return nil, false, io.EOF
	}
	if err != nil {
		return nil, false, fmt.Errorf("fasta read: %w", err)
	}
	return frag, more, nil
}

// seqLine validates one sequence line that may arrive in several fragments.
// Leading and trailing whitespace is ignored; whitespace between residues is not.
type seqLine struct {
	started bool // a residue has been seen
	gap     bool // whitespace seen after a residue
}

// add appends the residues of frag to dst.
func (s *seqLine) add(dst, frag []byte) ([]byte, error) {
	start := -1
	for i, c := range frag {
		switch {
		case isResidue(c):
			if s.gap {
				return dst, fmt.Errorf("whitespace inside sequence line")
			}
			s.started = true
			if start < 0 {
				start = i
			}
		case isSpace(c):
			if start >= 0 {
				dst = append(dst, frag[start:i]...)
				start = -1
			}
			if s.started {
				s.gap = true
			}
		default:
			return dst, fmt.Errorf("invalid character %q", c)
		}
	}
	if start >= 0 {
		dst = append(dst, frag[start:]...)
	}
	return dst, nil
}

// parseHeader splits a header into identifier and description on the first
// space or tab.
func parseHeader(hdr []byte) (id, desc string) {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i]), string(bytes.TrimSpace(hdr[i+1:]))
	}
	return string(hdr), ""
}

// isResidue reports whether c can appear in a sequence line. Letters cover
// IUPAC nucleotide and protein codes; '-' and '.' are gaps and '*' is a stop.
func isResidue(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		return true
	case c == '-', c == '*', c == '.':
		return true
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}
