package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/MrCreosote/contigfilter/internal/errors"
	"github.com/MrCreosote/contigfilter/internal/gateway"
)

// JSON-RPC error codes written to a job output file.
const (
	JobCodeParseError     = -32700
	JobCodeMethodNotFound = -32601
	JobCodeInvalidParams  = -32602
	JobCodeServerError    = -32500
)

// JobRequest is a JSON-RPC 1.1 call read from a job input file.
type JobRequest struct {
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	Version string            `json:"version"`
	ID      json.RawMessage   `json:"id,omitempty"`
}

// JobResponse is the JSON-RPC 1.1 reply written to a job output file.
type JobResponse struct {
	Version string          `json:"version"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  []any           `json:"result,omitempty"`
	Error   *JobError       `json:"error,omitempty"`
}

// JobError is the error member of a JobResponse.
type JobError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Job runs one queued call: it reads a JSON-RPC request from an input file,
// dispatches it and writes the reply to an output file.
type Job struct {
	Pipeline *Pipeline
	Build    BuildInfo
}

// Run executes the call in inputPath as the caller identified by token and
// writes the reply to outputPath. A failed call is still written as an error
// reply; the returned error covers only the job files themselves.
func (j *Job) Run(ctx context.Context, inputPath, outputPath, token string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileNotFound(inputPath)
		}
		return errors.NewInternal(fmt.Errorf("read job input: %w", err))
	}

	resp := j.Dispatch(ctx, data, gateway.Identity{Token: token})

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errors.NewInternal(fmt.Errorf("encode job output: %w", err))
	}
	if err := os.WriteFile(outputPath, append(out, '\n'), 0o600); err != nil {
		return errors.NewInternal(fmt.Errorf("write job output: %w", err))
	}
	return nil
}

// Dispatch decodes a JSON-RPC request and runs the named method. The method
// prefix before the last '.' names the service module and is not checked.
func (j *Job) Dispatch(ctx context.Context, data []byte, id gateway.Identity) *JobResponse {
	var req JobRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JobResponse{Version: "1.1", Error: &JobError{
			Name:    "JSONRPCError",
			Code:    JobCodeParseError,
			Message: fmt.Sprintf("parse error: %v", err),
		}}
	}
	resp := &JobResponse{Version: "1.1", ID: req.ID}

	method := req.Method
	if i := strings.LastIndex(method, "."); i >= 0 {
		method = method[i+1:]
	}

	switch method {
	case "status":
		resp.Result = []any{Status(j.Build)}

	case "filter_contigs":
		if len(req.Params) != 1 {
			resp.Error = &JobError{
				Name:    "JSONRPCError",
				Code:    JobCodeInvalidParams,
				Message: fmt.Sprintf("wrong number of parameters for filter_contigs: want 1, got %d", len(req.Params)),
			}
			return resp
		}
		var input FilterContigsInput
		if err := json.Unmarshal(req.Params[0], &input); err != nil {
			resp.Error = &JobError{
				Name:    "JSONRPCError",
				Code:    JobCodeInvalidParams,
				Message: fmt.Sprintf("invalid parameters: %v", err),
			}
			return resp
		}
		out, err := j.Pipeline.FilterContigs(ctx, id, input)
		if err != nil {
			resp.Error = jobError(err)
			return resp
		}
		resp.Result = []any{out}

	default:
		resp.Error = &JobError{
			Name:    "JSONRPCError",
			Code:    JobCodeMethodNotFound,
			Message: fmt.Sprintf("Can not find method [%s] in server class", req.Method),
		}
	}
	return resp
}

// jobError converts a pipeline failure to a JSON-RPC error member. INTERNAL
// errors carry a generic message.
func jobError(err error) *JobError {
	fErr, ok := errors.As(err)
	if !ok {
		fErr = errors.NewInternal(err)
	}
	msg := fErr.Message
	if fErr.Code == errors.ErrInternal {
		msg = "internal error"
	}
	return &JobError{
		Name:    string(fErr.Code),
		Code:    JobCodeServerError,
		Message: msg,
		Error:   fmt.Sprintf("stage %s: %s", fErr.Stage, fErr.Code),
	}
}
