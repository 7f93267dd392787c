package fasta

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MrCreosote/contigfilter/internal/errors"
)

// Outcome counts the records seen and kept by a filter run. Kept <= Total.
type Outcome struct {
	Total int64 `json:"total"`
	Kept  int64 `json:"kept"`
}

// Removed returns the number of records dropped by the filter.
func (o Outcome) Removed() int64 {
	return o.Total - o.Kept
}

// FilterStream copies every record of r whose length is >= minLength to w, in
// input order. Records are processed one at a time. ctx is checked between
// records.
func FilterStream(ctx context.Context, r io.Reader, w io.Writer, minLength int64) (Outcome, error) {
	var out Outcome
	fr := NewReader(r)
	fw := NewWriter(w)
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rec, err := fr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		out.Total++
		if rec.Len() >= minLength {
			if err := fw.Write(rec); err != nil {
				return out, fmt.Errorf("write record %s: %w", rec.ID, err)
			}
			out.Kept++
		}
	}
	if err := fw.Flush(); err != nil {
		return out, fmt.Errorf("flush output: %w", err)
	}
	return out, nil
}

// Filter runs FilterStream from the file at inPath into a new file at outPath.
// Both files are closed on every return path. On failure the partial output
// file is removed. Errors are FilterErrors except for context cancellation,
// which is returned as is.
func Filter(ctx context.Context, inPath, outPath string, minLength int64) (out Outcome, err error) {
	if samePath(inPath, outPath) {
		return out, errors.NewInternal(fmt.Errorf("input and output are the same file: %s", inPath))
	}

	in, err := Open(inPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, errors.NewFileNotFound(inPath)
		}
		return out, errors.NewInternal(fmt.Errorf("open input: %w", err))
	}
	defer in.Close()

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return out, errors.NewInternal(fmt.Errorf("create output: %w", err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewInternal(fmt.Errorf("close output: %w", cerr))
		}
		if err != nil {
			_ = os.Remove(outPath)
		}
	}()

	out, err = FilterStream(ctx, in, f, minLength)
	if err != nil {
		if _, ok := errors.As(err); ok || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return out, err
		}
		return out, errors.NewInternal(err)
	}
	return out, nil
}

// Count streams the file at path and returns the number of records.
func Count(ctx context.Context, path string) (int64, error) {
	in, err := Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.NewFileNotFound(path)
		}
		return 0, errors.NewInternal(fmt.Errorf("open input: %w", err))
	}
	defer in.Close()

	out, err := FilterStream(ctx, in, io.Discard, 0)
	return out.Total, err
}

// samePath reports whether a and b name the same file, by path or, when both
// exist, by identity.
func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, aerr := os.Stat(a)
	bi, berr := os.Stat(b)
	return aerr == nil && berr == nil && os.SameFile(ai, bi)
}
