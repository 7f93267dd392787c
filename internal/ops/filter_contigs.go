package ops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MrCreosote/contigfilter/internal/assembly"
	"github.com/MrCreosote/contigfilter/internal/config"
	"github.com/MrCreosote/contigfilter/internal/errors"
	"github.com/MrCreosote/contigfilter/internal/fasta"
	"github.com/MrCreosote/contigfilter/internal/gateway"
)

// FilteredFileName is the name of the filter output inside a run directory.
const FilteredFileName = "filtered.fasta"

// FilteredObjectDescription labels the saved assembly in the report.
const FilteredObjectDescription = "Filtered contigs"

// Stage is a step of the filter_contigs pipeline.
type Stage string

const (
	StageValidating Stage = "validating"
	StageFetching   Stage = "fetching"
	StageFiltering  Stage = "filtering"
	StageSaving     Stage = "saving"
	StageReporting  Stage = "reporting"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// FilterContigsInput contains parameters for the filter_contigs operation.
// MinLength is a pointer so a missing value can be told apart from zero.
type FilterContigsInput struct {
	WorkspaceName    string `json:"workspace_name"`
	AssemblyInputRef string `json:"assembly_input_ref"`
	MinLength        *int64 `json:"min_length"`
}

// FilterContigsOutput is the result of a completed filter_contigs run.
type FilterContigsOutput struct {
	AssemblyOutput    string `json:"assembly_output"`
	NInitialContigs   int64  `json:"n_initial_contigs"`
	NContigsRemaining int64  `json:"n_contigs_remaining"`
	NContigsRemoved   int64  `json:"n_contigs_removed"`
	ReportName        string `json:"report_name"`
	ReportRef         string `json:"report_ref"`
}

// ValidateFilterInput checks the request fields in order and reports the
// first one that is missing or out of range.
func ValidateFilterInput(input FilterContigsInput) (FilterContigsInput, error) {
	if input.WorkspaceName == "" {
		return input, errors.NewInvalidParameter("workspace_name",
			"Parameter workspace_name is not set in input arguments")
	}
	if input.AssemblyInputRef == "" {
		return input, errors.NewInvalidParameter("assembly_input_ref",
			"Parameter assembly_input_ref is not set in input arguments")
	}
	if input.MinLength == nil {
		return input, errors.NewInvalidParameter("min_length",
			"Parameter min_length is not set in input arguments")
	}
	if *input.MinLength < 0 {
		return input, errors.NewInvalidParameter("min_length",
			fmt.Sprintf("min_length parameter cannot be negative (%d)", *input.MinLength))
	}
	return input, nil
}

// SummaryText is the report message for a filter outcome.
func SummaryText(out fasta.Outcome) string {
	return fmt.Sprintf("Filtered assembly to %d contigs out of %d", out.Kept, out.Total)
}

// Pipeline runs filter_contigs against an assembly gateway and a report
// gateway. Each call writes its output under its own directory in the
// scratch root and removes it when the call returns, so a Pipeline may serve
// concurrent calls.
type Pipeline struct {
	scratch    string
	assemblies gateway.AssemblyGateway
	reports    gateway.ReportGateway
	logger     *slog.Logger
}

// NewPipeline creates a pipeline writing into cfg.Scratch. A nil logger
// discards log output.
func NewPipeline(cfg *config.Config, assemblies gateway.AssemblyGateway, reports gateway.ReportGateway, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		scratch:    cfg.Scratch,
		assemblies: assemblies,
		reports:    reports,
		logger:     logger,
	}
}

// FilterContigs validates input, fetches the assembly, keeps the contigs of
// at least MinLength residues, saves the result under the source assembly's
// name and publishes a report. The first failing stage ends the run; remote
// objects created before the failure are left in place.
func (p *Pipeline) FilterContigs(ctx context.Context, id gateway.Identity, input FilterContigsInput) (*FilterContigsOutput, error) {
	run := &pipelineRun{p: p, stage: StageValidating}
	out, err := run.exec(ctx, id, input)
	if err != nil {
		return nil, run.fail(err)
	}
	run.enter(StageDone)
	p.logger.Info("filter_contigs finished",
		"assembly_output", out.AssemblyOutput,
		"n_initial_contigs", out.NInitialContigs,
		"n_contigs_remaining", out.NContigsRemaining,
		"report_ref", out.ReportRef)
	return out, nil
}

// runDir creates a directory under the scratch root that belongs to a single
// FilterContigs call.
func (p *Pipeline) runDir() (string, error) {
	if err := os.MkdirAll(p.scratch, 0o755); err != nil {
		return "", errors.NewInternal(fmt.Errorf("create scratch directory: %w", err))
	}
	dir, err := os.MkdirTemp(p.scratch, "run-")
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("create run directory: %w", err))
	}
	return dir, nil
}

// pipelineRun tracks the stage of one FilterContigs call.
type pipelineRun struct {
	p     *Pipeline
	stage Stage
}

func (r *pipelineRun) enter(s Stage) {
	r.stage = s
	r.p.logger.Debug("filter_contigs stage", "stage", string(s))
}

func (r *pipelineRun) exec(ctx context.Context, id gateway.Identity, input FilterContigsInput) (*FilterContigsOutput, error) {
	p := r.p
	attrs := []any{
		"workspace_name", input.WorkspaceName,
		"assembly_input_ref", input.AssemblyInputRef,
	}
	if input.MinLength != nil {
		attrs = append(attrs, "min_length", *input.MinLength)
	}
	p.logger.Info("filter_contigs request", attrs...)

	params, err := ValidateFilterInput(input)
	if err != nil {
		return nil, err
	}

	r.enter(StageFetching)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := p.assemblies.FetchAsFasta(ctx, id, params.AssemblyInputRef)
	if err != nil {
		return nil, errors.NewRemoteFetch(params.AssemblyInputRef, err)
	}

	r.enter(StageFiltering)
	runDir, err := p.runDir()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			p.logger.Warn("remove run directory", "dir", runDir, "error", err)
		}
	}()
	outPath := filepath.Join(runDir, FilteredFileName)
	outcome, err := fasta.Filter(ctx, src.Path, outPath, *params.MinLength)
	if err != nil {
		return nil, err
	}

	r.enter(StageSaving)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	newRef, err := p.assemblies.SaveFromFasta(ctx, id, params.WorkspaceName, src.AssemblyName,
		gateway.LocalSequenceFile{Path: outPath, AssemblyName: src.AssemblyName})
	if err != nil {
		return nil, errors.NewRemoteSave(params.WorkspaceName, src.AssemblyName, err)
	}

	r.enter(StageReporting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := SummaryText(outcome)
	p.logger.Info("filter_contigs summary", "text", text)
	info, err := p.reports.Publish(ctx, id, params.WorkspaceName, text,
		assembly.ObjectRef{Ref: newRef, Description: FilteredObjectDescription})
	if err != nil {
		return nil, errors.NewRemoteReport(params.WorkspaceName, err)
	}

	return &FilterContigsOutput{
		AssemblyOutput:    newRef,
		NInitialContigs:   outcome.Total,
		NContigsRemaining: outcome.Kept,
		NContigsRemoved:   outcome.Removed(),
		ReportName:        info.Name,
		ReportRef:         info.Ref,
	}, nil
}

// fail moves the run to StageFailed and tags err with the stage it failed in.
func (r *pipelineRun) fail(err error) error {
	failedIn := r.stage
	r.enter(StageFailed)

	fErr, ok := errors.As(err)
	if !ok {
		fErr = errors.NewInternal(err)
	}
	fErr.WithStage(string(failedIn))
	r.p.logger.Error("filter_contigs failed",
		"stage", string(failedIn),
		"code", string(fErr.Code),
		"error", fErr.Message)
	return fErr
}
