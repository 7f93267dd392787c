package ops

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/MrCreosote/contigfilter/internal/assembly"
	"github.com/MrCreosote/contigfilter/internal/config"
	"github.com/MrCreosote/contigfilter/internal/errors"
)

// AssemblyImporter stores a FASTA stream as a new assembly.
// *gateway.LocalStore implements it.
type AssemblyImporter interface {
	ImportFrom(ctx context.Context, workspace, name string, r io.Reader) (*assembly.Assembly, error)
}

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Workspace string // required
	Name      string // default: file name without its FASTA extension
	Path      string // required
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Ref         string `json:"ref"`
	Workspace   string `json:"workspace"`
	Name        string `json:"name"`
	ContigCount int64  `json:"contig_count"`
}

// Import registers a local FASTA file with the local backend so it can be
// filtered by reference. importsDir is always an allowed source directory.
func Import(ctx context.Context, store AssemblyImporter, cfg *config.Config, importsDir string, input ImportInput) (*ImportOutput, error) {
	workspace := strings.TrimSpace(input.Workspace)
	if workspace == "" {
		return nil, errors.NewInvalidParameter("workspace", "workspace is required")
	}
	if strings.Contains(workspace, "/") {
		return nil, errors.NewInvalidParameter("workspace", "workspace must not contain '/'")
	}

	if err := ValidateImportPath(input.Path, importsDir, cfg); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = trimFastaExtension(filepath.Base(input.Path))
	}

	f, err := openNoFollow(input.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := store.ImportFrom(ctx, workspace, name, f)
	if err != nil {
		return nil, err
	}
	return &ImportOutput{
		Ref:         a.Ref,
		Workspace:   a.Workspace,
		Name:        a.Name,
		ContigCount: a.ContigCount,
	}, nil
}

// trimFastaExtension strips the longest matching FASTA suffix from name.
func trimFastaExtension(name string) string {
	lower := strings.ToLower(name)
	best := ""
	for _, ext := range fastaExtensions {
		if strings.HasSuffix(lower, ext) && len(ext) > len(best) {
			best = ext
		}
	}
	return name[:len(name)-len(best)]
}
