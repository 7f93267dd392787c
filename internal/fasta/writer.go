package fasta

import (
	"bufio"
	"io"
)

// LineWidth is the number of residues per output sequence line.
const LineWidth = 80

// Writer writes FASTA records sequentially. Call Flush when done.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// Write writes rec with its header unchanged and the sequence wrapped at LineWidth.
func (w *Writer) Write(rec *Record) error {
	if err := w.w.WriteByte('>'); err != nil {
		return err
	}
	if _, err := w.w.WriteString(headerLine(rec)); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	for off := 0; off < len(rec.Seq); off += LineWidth {
		end := min(off+LineWidth, len(rec.Seq))
		if _, err := w.w.Write(rec.Seq[off:end]); err != nil {
			return err
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// headerLine returns the header as read, or one built from ID and
// Description for records that were not read from a stream.
func headerLine(rec *Record) string {
	switch {
	case rec.Header != "":
		return rec.Header
	case rec.Description == "":
		return rec.ID
	}
	return rec.ID + " " + rec.Description
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
