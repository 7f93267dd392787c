package gateway

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MrCreosote/contigfilter/internal/assembly"
)

// maxResponseBytes caps a callback response body.
const maxResponseBytes = 16 << 20

// Callback server method names.
const (
	MethodGetAssemblyAsFasta    = "AssemblyUtil.get_assembly_as_fasta"
	MethodSaveAssemblyFromFasta = "AssemblyUtil.save_assembly_from_fasta"
	MethodCreateReport          = "KBaseReport.create"
)

// CallbackClient reaches the assembly and report services through the local
// callback server using JSON-RPC 1.1 over HTTP. The callback server runs on
// the same host and speaks plain http; the caller token is still forwarded in
// the Authorization header.
type CallbackClient struct {
	url string
	do  func(*http.Request) (*http.Response, error)
}

// NewCallbackClient returns a client for callbackURL. timeout <= 0 disables
// the client-level timeout.
func NewCallbackClient(callbackURL string, timeout time.Duration) *CallbackClient {
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &CallbackClient{url: callbackURL, do: hc.Do}
}

type rpcRequest struct {
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	Version string `json:"version"`
	ID      string `json:"id"`
}

type rpcResponse struct {
	Version string            `json:"version"`
	ID      string            `json:"id"`
	Result  []json.RawMessage `json:"result"`
	Error   *RPCError         `json:"error"`
}

// RPCError is the error member of a JSON-RPC 1.1 response.
type RPCError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"error,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

type getAssemblyParams struct {
	Ref string `json:"ref"`
}

type fastaFile struct {
	Path string `json:"path"`
}

type saveAssemblyParams struct {
	File          fastaFile `json:"file"`
	WorkspaceName string    `json:"workspace_name"`
	AssemblyName  string    `json:"assembly_name"`
}

type reportBody struct {
	TextMessage    string               `json:"text_message"`
	ObjectsCreated []assembly.ObjectRef `json:"objects_created"`
}

type createReportParams struct {
	Report        reportBody `json:"report"`
	WorkspaceName string     `json:"workspace_name"`
}

// FetchAsFasta implements AssemblyGateway.
func (c *CallbackClient) FetchAsFasta(ctx context.Context, id Identity, ref string) (LocalSequenceFile, error) {
	var out LocalSequenceFile
	if err := c.call(ctx, id, MethodGetAssemblyAsFasta, getAssemblyParams{Ref: ref}, &out); err != nil {
		return LocalSequenceFile{}, err
	}
	if out.Path == "" {
		return LocalSequenceFile{}, fmt.Errorf("%s: response has no path", MethodGetAssemblyAsFasta)
	}
	return out, nil
}

// SaveFromFasta implements AssemblyGateway.
func (c *CallbackClient) SaveFromFasta(ctx context.Context, id Identity, workspace, name string, file LocalSequenceFile) (string, error) {
	var ref string
	params := saveAssemblyParams{
		File:          fastaFile{Path: file.Path},
		WorkspaceName: workspace,
		AssemblyName:  name,
	}
	if err := c.call(ctx, id, MethodSaveAssemblyFromFasta, params, &ref); err != nil {
		return "", err
	}
	if ref == "" {
		return "", fmt.Errorf("%s: response has no reference", MethodSaveAssemblyFromFasta)
	}
	return ref, nil
}

// Publish implements ReportGateway.
func (c *CallbackClient) Publish(ctx context.Context, id Identity, workspace, text string, created assembly.ObjectRef) (ReportInfo, error) {
	var info ReportInfo
	params := createReportParams{
		Report: reportBody{
			TextMessage:    text,
			ObjectsCreated: []assembly.ObjectRef{created},
		},
		WorkspaceName: workspace,
	}
	if err := c.call(ctx, id, MethodCreateReport, params, &info); err != nil {
		return ReportInfo{}, err
	}
	return info, nil
}

// call posts one JSON-RPC request and decodes the first result element into result.
func (c *CallbackClient) call(ctx context.Context, id Identity, method string, params, result any) error {
	body, err := json.Marshal(rpcRequest{
		Method:  method,
		Params:  []any{params},
		Version: "1.1",
		ID:      newRequestID(),
	})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id.Token != "" {
		req.Header.Set("Authorization", id.Token)
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var rr rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
		}
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("%s: %w", method, rr.Error)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}
	if len(rr.Result) == 0 {
		return fmt.Errorf("%s: empty result", method)
	}
	if err := json.Unmarshal(rr.Result[0], result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func newRequestID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

var (
	_ AssemblyGateway = (*CallbackClient)(nil)
	_ ReportGateway   = (*CallbackClient)(nil)
)
