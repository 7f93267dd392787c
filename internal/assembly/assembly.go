// Package assembly holds the objects kept by the local storage backend.
package assembly

import (
	"fmt"
	"strconv"
	"strings"
)

// Assembly is a named collection of contigs stored as one FASTA file.
type Assembly struct {
	// Ref is the object reference, "<workspace>/<id>/<version>"
	Ref string `json:"ref"`

	// ID is a ULID that uniquely identifies this assembly
	ID string `json:"id"`

	// Workspace is the storage context the assembly was saved in
	Workspace string `json:"workspace"`

	// Name is the display name; filtered copies keep the source name
	Name string `json:"name"`

	// Path is the FASTA file backing this assembly
	Path string `json:"-"`

	// ContigCount is the number of records in the FASTA file
	ContigCount int64 `json:"contig_count"`

	// CreatedAt is the Unix timestamp when the assembly was stored
	CreatedAt int64 `json:"created_at"`
}

// ObjectRef points at an object created by an operation.
type ObjectRef struct {
	Ref         string `json:"ref"`
	Description string `json:"description"`
}

// Report is a human-readable summary of an operation and the objects it created.
type Report struct {
	Ref            string      `json:"ref"`
	Name           string      `json:"name"`
	Workspace      string      `json:"workspace"`
	TextMessage    string      `json:"text_message"`
	ObjectsCreated []ObjectRef `json:"objects_created"`
	CreatedAt      int64       `json:"created_at"`
}

// Markdown renders the report body for display.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", r.Name, r.TextMessage)
	if len(r.ObjectsCreated) > 0 {
		b.WriteString("\n## Objects created\n\n| Reference | Description |\n|---|---|\n")
		for _, o := range r.ObjectsCreated {
			fmt.Fprintf(&b, "| `%s` | %s |\n", o.Ref, o.Description)
		}
	}
	return b.String()
}

// FormatRef builds an object reference.
func FormatRef(workspace, id string, version int) string {
	return fmt.Sprintf("%s/%s/%d", workspace, id, version)
}

// ParseRef splits "<workspace>/<id>/<version>" into its parts.
// The version may be omitted, in which case 1 is returned.
func ParseRef(ref string) (workspace, id string, version int, err error) {
	parts := strings.Split(strings.TrimSpace(ref), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return "", "", 0, fmt.Errorf("invalid object reference %q", ref)
	}
	workspace, id = parts[0], parts[1]
	if workspace == "" || id == "" {
		return "", "", 0, fmt.Errorf("invalid object reference %q", ref)
	}
	version = 1
	if len(parts) == 3 {
		version, err = strconv.Atoi(parts[2])
		if err != nil || version < 1 {
			return "", "", 0, fmt.Errorf("invalid object version in %q", ref)
		}
	}
	return workspace, id, version, nil
}
