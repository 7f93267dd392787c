// Package gateway defines the storage collaborators the filter pipeline
// depends on, with a callback-server client, a local SQLite store and a
// canned-result fake.
package gateway

import (
	"context"

	"github.com/MrCreosote/contigfilter/internal/assembly"
)

// Identity is the caller identity forwarded to collaborators at the
// application layer.
type Identity struct {
	Token string
}

// LocalSequenceFile is a FASTA file on the local scratch filesystem.
type LocalSequenceFile struct {
	Path         string `json:"path"`
	AssemblyName string `json:"assembly_name,omitempty"`
}

// ReportInfo identifies a published report.
type ReportInfo struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

// AssemblyGateway moves assemblies between the storage service and local files.
type AssemblyGateway interface {
	// FetchAsFasta downloads the assembly at ref into local scratch storage.
	FetchAsFasta(ctx context.Context, id Identity, ref string) (LocalSequenceFile, error)

	// SaveFromFasta uploads file as a new assembly named name in workspace and
	// returns the new object reference.
	SaveFromFasta(ctx context.Context, id Identity, workspace, name string, file LocalSequenceFile) (string, error)
}

// ReportGateway publishes reports.
type ReportGateway interface {
	// Publish stores a report with text and exactly one created object.
	Publish(ctx context.Context, id Identity, workspace, text string, created assembly.ObjectRef) (ReportInfo, error)
}
