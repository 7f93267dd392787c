package fasta

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrCreosote/contigfilter/internal/errors"
)

const plain = `>seq1 first contig
ACGT
ACG
>seq2
NNnn

>seq3	tabbed description
`

func readAll(t *testing.T, r io.Reader) []*Record {
	t.Helper()
	fr := NewReader(r)
	var recs []*Record
	for {
		rec, err := fr.Read()
		if err == io.EOF {
			return recs
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		recs = append(recs, rec)
	}
}

func TestReader_Plain(t *testing.T) {
	recs := readAll(t, strings.NewReader(plain))

	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}

	want := []struct {
		id, desc, seq string
	}{
		{"seq1", "first contig", "ACGTACG"},
		{"seq2", "", "NNnn"},
		{"seq3", "tabbed description", ""},
	}
	for i, w := range want {
		if recs[i].ID != w.id {
			t.Errorf("rec[%d].ID = %q, want %q", i, recs[i].ID, w.id)
		}
		if recs[i].Description != w.desc {
			t.Errorf("rec[%d].Description = %q, want %q", i, recs[i].Description, w.desc)
		}
		if string(recs[i].Seq) != w.seq {
			t.Errorf("rec[%d].Seq = %q, want %q", i, recs[i].Seq, w.seq)
		}
		if recs[i].Len() != int64(len(w.seq)) {
			t.Errorf("rec[%d].Len() = %d, want %d", i, recs[i].Len(), len(w.seq))
		}
	}
}

func TestReader_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "\n\n", "  \n\t\n"} {
		if recs := readAll(t, strings.NewReader(in)); len(recs) != 0 {
			t.Errorf("input %q: got %d records, want 0", in, len(recs))
		}
	}
}

func TestReader_CRLF(t *testing.T) {
	recs := readAll(t, strings.NewReader(">a desc\r\nAC\r\nGT\r\n"))
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if string(recs[0].Seq) != "ACGT" {
		t.Errorf("Seq = %q, want ACGT", recs[0].Seq)
	}
	if recs[0].Description != "desc" {
		t.Errorf("Description = %q, want desc", recs[0].Description)
	}
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"data before header", "ACGT\n>a\nACGT\n", 1},
		{"header without id", ">a\nAC\n>   \nGT\n", 3},
		{"invalid character", ">a\nAC\nAC1T\n", 3},
		{"embedded space", ">a\nAC GT\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := NewReader(strings.NewReader(tt.input))
			var err error
			for err == nil {
				_, err = fr.Read()
			}
			if err == io.EOF {
				t.Fatalf("expected malformed error, got EOF")
			}
			if !errors.Is(err, errors.ErrMalformedSequenceData) {
				t.Fatalf("expected MALFORMED_SEQUENCE_DATA, got %v", err)
			}
			fErr, _ := errors.As(err)
			if fErr.Details["line"] != tt.wantLine {
				t.Errorf("line = %v, want %d", fErr.Details["line"], tt.wantLine)
			}
		})
	}
}

func TestReader_LongSingleLine(t *testing.T) {
	seq := strings.Repeat("A", 1<<20)
	recs := readAll(t, strings.NewReader(">long\n"+seq+"\n"))
	if len(recs) != 1 || recs[0].Len() != 1<<20 {
		t.Fatalf("unexpected records: %d", len(recs))
	}
}

func TestReader_LineLongerThan64MiB(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a 65 MiB sequence")
	}
	const n = 65 << 20
	input := ">chr1\n" + strings.Repeat("A", n) + "\n>c2\nACGT\n"

	recs := readAll(t, strings.NewReader(input))
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].ID != "chr1" || recs[0].Len() != n {
		t.Errorf("rec[0] = %s with %d residues, want chr1 with %d", recs[0].ID, recs[0].Len(), n)
	}
	if recs[1].ID != "c2" || string(recs[1].Seq) != "ACGT" {
		t.Errorf("rec[1] = %s %q", recs[1].ID, recs[1].Seq)
	}
}

func TestReader_LineSpanningBuffer(t *testing.T) {
	body := strings.Repeat("C", readBufSize-1)

	t.Run("trailing whitespace after fragment", func(t *testing.T) {
		recs := readAll(t, strings.NewReader(">a\n"+body+"G  \t\n  TT\n"))
		if len(recs) != 1 || recs[0].Len() != int64(len(body)+3) {
			t.Fatalf("unexpected records: %d", len(recs))
		}
	})

	t.Run("whitespace between fragments", func(t *testing.T) {
		fr := NewReader(strings.NewReader(">a\n" + body + " " + "G\n"))
		_, err := fr.Read()
		if !errors.Is(err, errors.ErrMalformedSequenceData) {
			t.Fatalf("expected MALFORMED_SEQUENCE_DATA, got %v", err)
		}
		fErr, _ := errors.As(err)
		if fErr.Details["line"] != 2 {
			t.Errorf("line = %v, want 2", fErr.Details["line"])
		}
	})

	t.Run("long header", func(t *testing.T) {
		desc := strings.Repeat("x", 3*readBufSize)
		recs := readAll(t, strings.NewReader(">a " + desc + "\nAC\n>b\nG\n"))
		if len(recs) != 2 {
			t.Fatalf("got %d records, want 2", len(recs))
		}
		if recs[0].Description != desc || recs[0].Header != "a "+desc {
			t.Errorf("long header not kept intact")
		}
		if string(recs[0].Seq) != "AC" {
			t.Errorf("Seq = %q, want AC", recs[0].Seq)
		}
	})
}

func TestReader_HeaderKeptAsRead(t *testing.T) {
	recs := readAll(t, strings.NewReader(">id1\tsome  spaced\tdesc\r\nAC\n"))
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Header != "id1\tsome  spaced\tdesc" {
		t.Errorf("Header = %q", recs[0].Header)
	}
	if recs[0].ID != "id1" || recs[0].Description != "some  spaced\tdesc" {
		t.Errorf("ID = %q, Description = %q", recs[0].ID, recs[0].Description)
	}
}

func TestOpen_Gzip(t *testing.T) {
	// no .gz suffix: detection must use the magic number
	path := filepath.Join(t.TempDir(), "assembly.fa")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gw := gzip.NewWriter(fh)
	if _, err := gw.Write([]byte(plain)); err != nil {
		t.Fatalf("write gz: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := fh.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	rc, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	recs := readAll(t, rc)
	if len(recs) != 3 || recs[0].ID != "seq1" {
		t.Fatalf("gzip parse failed, got %d records", len(recs))
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.fa")); !os.IsNotExist(err) {
		t.Fatalf("Open() error = %v, want not-exist", err)
	}
}
