package ops

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrCreosote/contigfilter/internal/config"
	"github.com/MrCreosote/contigfilter/internal/db"
	"github.com/MrCreosote/contigfilter/internal/errors"
	"github.com/MrCreosote/contigfilter/internal/gateway"
)

func setupLocalStore(t *testing.T, baseDir string) *gateway.LocalStore {
	t.Helper()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return gateway.NewLocalStore(database, baseDir)
}

func TestImport_HappyPath(t *testing.T) {
	baseDir := t.TempDir()
	store := setupLocalStore(t, baseDir)
	importsDir := filepath.Join(baseDir, db.ImportsDir)
	path := filepath.Join(importsDir, "sample.fasta")
	require.NoError(t, os.WriteFile(path, []byte(fastaOf(10, 20, 30)), 0o644))

	out, err := Import(context.Background(), store, config.DefaultConfig(), importsDir, ImportInput{
		Workspace: "ws",
		Path:      path,
	})
	require.NoError(t, err)
	require.Equal(t, "ws", out.Workspace)
	require.Equal(t, "sample", out.Name)
	require.Equal(t, int64(3), out.ContigCount)

	a, err := store.GetAssembly(context.Background(), out.Ref)
	require.NoError(t, err)
	require.Equal(t, "sample", a.Name)
}

func TestImport_Gzip(t *testing.T) {
	baseDir := t.TempDir()
	store := setupLocalStore(t, baseDir)
	importsDir := filepath.Join(baseDir, db.ImportsDir)
	path := filepath.Join(importsDir, "reads.fa.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(fastaOf(5, 500)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	out, err := Import(context.Background(), store, config.DefaultConfig(), importsDir, ImportInput{
		Workspace: "ws",
		Name:      "Reads",
		Path:      path,
	})
	require.NoError(t, err)
	require.Equal(t, "Reads", out.Name)
	require.Equal(t, int64(2), out.ContigCount)
}

func TestImport_Errors(t *testing.T) {
	baseDir := t.TempDir()
	store := setupLocalStore(t, baseDir)
	importsDir := filepath.Join(baseDir, db.ImportsDir)

	good := filepath.Join(importsDir, "good.fa")
	require.NoError(t, os.WriteFile(good, []byte(fastaOf(10)), 0o644))
	bad := filepath.Join(importsDir, "bad.fa")
	require.NoError(t, os.WriteFile(bad, []byte("no header\n"), 0o644))

	tests := []struct {
		name     string
		input    ImportInput
		wantCode errors.ErrorCode
	}{
		{"missing workspace", ImportInput{Path: good}, errors.ErrInvalidParameter},
		{"slash in workspace", ImportInput{Workspace: "a/b", Path: good}, errors.ErrInvalidParameter},
		{"missing path", ImportInput{Workspace: "ws"}, errors.ErrInvalidParameter},
		{"missing file", ImportInput{Workspace: "ws", Path: filepath.Join(importsDir, "nope.fa")}, errors.ErrNotFound},
		{"malformed", ImportInput{Workspace: "ws", Path: bad}, errors.ErrMalformedSequenceData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(context.Background(), store, config.DefaultConfig(), importsDir, tt.input)
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("error = %v, want %s", err, tt.wantCode)
			}
		})
	}

	entries, err := os.ReadDir(filepath.Join(baseDir, db.AssembliesDir))
	require.NoError(t, err)
	require.Empty(t, entries, "failed imports must not leave files behind")
}

func TestTrimFastaExtension(t *testing.T) {
	tests := map[string]string{
		"a.fa":          "a",
		"a.fasta.gz":    "a",
		"A.FNA":         "A",
		"x.y.fasta":     "x.y",
		"noext":         "noext",
		"contigs.fa.gz": "contigs",
	}
	for in, want := range tests {
		if got := trimFastaExtension(in); got != want {
			t.Errorf("trimFastaExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
