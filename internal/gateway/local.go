package gateway

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MrCreosote/contigfilter/internal/assembly"
	"github.com/MrCreosote/contigfilter/internal/db"
	"github.com/MrCreosote/contigfilter/internal/errors"
	"github.com/MrCreosote/contigfilter/internal/fasta"
)

// LocalStore serves both gateways from a SQLite database and a directory of
// FASTA files under baseDir. It needs no network and no token.
type LocalStore struct {
	db      *sql.DB
	baseDir string
	now     func() time.Time
}

// NewLocalStore returns a store over database (see db.Init) rooted at baseDir.
func NewLocalStore(database *sql.DB, baseDir string) *LocalStore {
	return &LocalStore{db: database, baseDir: baseDir, now: time.Now}
}

// FetchAsFasta implements AssemblyGateway. Stored assemblies already live on
// the local filesystem, so the stored file is returned as is and nothing is
// written to scratch. Callers must treat the file as read-only.
func (s *LocalStore) FetchAsFasta(ctx context.Context, _ Identity, ref string) (LocalSequenceFile, error) {
	a, err := s.GetAssembly(ctx, ref)
	if err != nil {
		return LocalSequenceFile{}, err
	}
	return LocalSequenceFile{Path: a.Path, AssemblyName: a.Name}, nil
}

// SaveFromFasta implements AssemblyGateway.
func (s *LocalStore) SaveFromFasta(ctx context.Context, _ Identity, workspace, name string, file LocalSequenceFile) (string, error) {
	a, err := s.Import(ctx, workspace, name, file.Path)
	if err != nil {
		return "", err
	}
	return a.Ref, nil
}

// Import copies the FASTA file at path into the store as a new assembly.
func (s *LocalStore) Import(ctx context.Context, workspace, name, path string) (*assembly.Assembly, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	defer f.Close()
	return s.ImportFrom(ctx, workspace, name, f)
}

// ImportFrom stores the FASTA stream r as a new assembly. The stream may be
// gzip-compressed. The content is validated before the assembly is registered.
func (s *LocalStore) ImportFrom(ctx context.Context, workspace, name string, r io.Reader) (*assembly.Assembly, error) {
	id, err := newULID(s.now())
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	dst := filepath.Join(s.baseDir, db.AssembliesDir, id+".fasta")
	if err := writeFile(dst, r); err != nil {
		return nil, errors.NewInternal(err)
	}

	count, err := fasta.Count(ctx, dst)
	if err != nil {
		_ = os.Remove(dst)
		return nil, err
	}

	a := &assembly.Assembly{
		ID:          id,
		Workspace:   workspace,
		Name:        name,
		Path:        dst,
		ContigCount: count,
		CreatedAt:   s.now().Unix(),
	}
	if err := db.InsertAssembly(ctx, s.db, a); err != nil {
		_ = os.Remove(dst)
		return nil, err
	}
	return a, nil
}

// GetAssembly resolves ref to a stored assembly.
func (s *LocalStore) GetAssembly(ctx context.Context, ref string) (*assembly.Assembly, error) {
	workspace, id, _, err := assembly.ParseRef(ref)
	if err != nil {
		return nil, errors.NewNotFound(ref)
	}
	return db.GetAssembly(ctx, s.db, workspace, id)
}

// Publish implements ReportGateway.
func (s *LocalStore) Publish(ctx context.Context, _ Identity, workspace, text string, created assembly.ObjectRef) (ReportInfo, error) {
	id, err := newULID(s.now())
	if err != nil {
		return ReportInfo{}, errors.NewInternal(err)
	}
	r := &assembly.Report{
		Ref:            assembly.FormatRef(workspace, id, 1),
		Name:           "report_" + id,
		Workspace:      workspace,
		TextMessage:    text,
		ObjectsCreated: []assembly.ObjectRef{created},
		CreatedAt:      s.now().Unix(),
	}
	if err := db.InsertReport(ctx, s.db, id, r); err != nil {
		return ReportInfo{}, err
	}
	return ReportInfo{Name: r.Name, Ref: r.Ref}, nil
}

// GetReport resolves ref to a stored report.
func (s *LocalStore) GetReport(ctx context.Context, ref string) (*assembly.Report, error) {
	workspace, id, _, err := assembly.ParseRef(ref)
	if err != nil {
		return nil, errors.NewNotFound(ref)
	}
	return db.GetReport(ctx, s.db, workspace, id)
}

// ListReports returns stored reports newest first and the total count.
func (s *LocalStore) ListReports(ctx context.Context, limit, offset int) ([]assembly.Report, int, error) {
	return db.ListReports(ctx, s.db, limit, offset)
}

// writeFile writes r to a new file at dst, removing dst if the write fails.
func writeFile(dst string, r io.Reader) (err error) {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, r); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

// newULID generates a new ULID.
func newULID(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var (
	_ AssemblyGateway = (*LocalStore)(nil)
	_ ReportGateway   = (*LocalStore)(nil)
)
