package gateway

import (
	"context"
	"os"
	"sync"

	"github.com/MrCreosote/contigfilter/internal/assembly"
)

// Call records one gateway invocation made against a Fake.
type Call struct {
	Method    string
	Identity  Identity
	Ref       string
	Workspace string
	Name      string
	Path      string
	Text      string
	Created   assembly.ObjectRef
}

// Fake is an in-memory AssemblyGateway and ReportGateway returning canned
// results. Setting one of the *Err fields makes that method fail.
type Fake struct {
	// FetchFile is returned by FetchAsFasta. The pipeline reads the file at its Path.
	FetchFile LocalSequenceFile
	FetchErr  error

	SaveRef string
	SaveErr error

	Report    ReportInfo
	ReportErr error

	mu    sync.Mutex
	calls []Call
	saved []byte
}

// FetchAsFasta implements AssemblyGateway.
func (f *Fake) FetchAsFasta(ctx context.Context, id Identity, ref string) (LocalSequenceFile, error) {
	f.record(Call{Method: MethodGetAssemblyAsFasta, Identity: id, Ref: ref})
	if err := ctx.Err(); err != nil {
		return LocalSequenceFile{}, err
	}
	if f.FetchErr != nil {
		return LocalSequenceFile{}, f.FetchErr
	}
	return f.FetchFile, nil
}

// SaveFromFasta implements AssemblyGateway. The file content is captured at
// call time so tests can inspect what would have been uploaded.
func (f *Fake) SaveFromFasta(ctx context.Context, id Identity, workspace, name string, file LocalSequenceFile) (string, error) {
	f.record(Call{Method: MethodSaveAssemblyFromFasta, Identity: id, Workspace: workspace, Name: name, Path: file.Path})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.SaveErr != nil {
		return "", f.SaveErr
	}
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.saved = data
	f.mu.Unlock()
	return f.SaveRef, nil
}

// Publish implements ReportGateway.
func (f *Fake) Publish(ctx context.Context, id Identity, workspace, text string, created assembly.ObjectRef) (ReportInfo, error) {
	f.record(Call{Method: MethodCreateReport, Identity: id, Workspace: workspace, Text: text, Created: created})
	if err := ctx.Err(); err != nil {
		return ReportInfo{}, err
	}
	if f.ReportErr != nil {
		return ReportInfo{}, f.ReportErr
	}
	return f.Report, nil
}

// Calls returns a copy of the recorded invocations in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Methods returns the method names of the recorded invocations in order.
func (f *Fake) Methods() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// Saved returns the content of the last file passed to SaveFromFasta.
func (f *Fake) Saved() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

var (
	_ AssemblyGateway = (*Fake)(nil)
	_ ReportGateway   = (*Fake)(nil)
)
