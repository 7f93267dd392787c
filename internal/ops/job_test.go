package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrCreosote/contigfilter/internal/gateway"
)

// jobOutput mirrors JobResponse with a raw result for decoding.
type jobOutput struct {
	Version string            `json:"version"`
	ID      json.RawMessage   `json:"id"`
	Result  []json.RawMessage `json:"result"`
	Error   *JobError         `json:"error"`
}

func runJob(t *testing.T, job *Job, request string, token string) jobOutput {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "input.json")
	out := filepath.Join(dir, "output.json")
	require.NoError(t, os.WriteFile(in, []byte(request), 0o600))

	require.NoError(t, job.Run(context.Background(), in, out, token))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var resp jobOutput
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestJob_FilterContigs(t *testing.T) {
	p, fake, _ := setupPipeline(t, fastaOf(50, 150, 200, 90, 300))
	job := &Job{Pipeline: p}

	resp := runJob(t, job, `{
		"version": "1.1",
		"id": "42",
		"method": "ContigFilter.filter_contigs",
		"params": [{"workspace_name": "ws", "assembly_input_ref": "1/2/3", "min_length": 100}]
	}`, "job-token")

	require.Nil(t, resp.Error)
	require.Equal(t, "1.1", resp.Version)
	require.JSONEq(t, `"42"`, string(resp.ID))
	require.Len(t, resp.Result, 1)
	require.JSONEq(t, `{
		"assembly_output": "7/8/1",
		"n_initial_contigs": 5,
		"n_contigs_remaining": 3,
		"n_contigs_removed": 2,
		"report_name": "report_1",
		"report_ref": "7/9/1"
	}`, string(resp.Result[0]))

	for _, c := range fake.Calls() {
		require.Equal(t, "job-token", c.Identity.Token)
	}
}

func TestJob_Status(t *testing.T) {
	job := &Job{Build: BuildInfo{Version: "1.2.3", GitURL: "https://example.org/repo", GitCommit: "abc123"}}

	resp := runJob(t, job, `{"version":"1.1","id":1,"method":"ContigFilter.status","params":[]}`, "")
	require.Nil(t, resp.Error)
	require.JSONEq(t, `{
		"state": "OK",
		"message": "",
		"version": "1.2.3",
		"git_url": "https://example.org/repo",
		"git_commit_hash": "abc123"
	}`, string(resp.Result[0]))
}

func TestJob_Errors(t *testing.T) {
	p, _, _ := setupPipeline(t, fastaOf(100))
	job := &Job{Pipeline: p}

	tests := []struct {
		name     string
		request  string
		wantCode int
		wantName string
		wantMsg  string
	}{
		{
			name:     "parse error",
			request:  `{not json`,
			wantCode: JobCodeParseError,
			wantName: "JSONRPCError",
		},
		{
			name:     "unknown method",
			request:  `{"method":"ContigFilter.frobnicate","params":[]}`,
			wantCode: JobCodeMethodNotFound,
			wantName: "JSONRPCError",
			wantMsg:  "Can not find method [ContigFilter.frobnicate] in server class",
		},
		{
			name:     "wrong param count",
			request:  `{"method":"ContigFilter.filter_contigs","params":[]}`,
			wantCode: JobCodeInvalidParams,
			wantName: "JSONRPCError",
		},
		{
			name:     "bad param type",
			request:  `{"method":"ContigFilter.filter_contigs","params":[{"min_length":"ten"}]}`,
			wantCode: JobCodeInvalidParams,
			wantName: "JSONRPCError",
		},
		{
			name:     "validation failure",
			request:  `{"method":"ContigFilter.filter_contigs","params":[{"workspace_name":"ws","assembly_input_ref":"1/2/3"}]}`,
			wantCode: JobCodeServerError,
			wantName: "INVALID_PARAMETER",
			wantMsg:  "Parameter min_length is not set in input arguments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := runJob(t, job, tt.request, "")
			require.NotNil(t, resp.Error)
			require.Empty(t, resp.Result)
			require.Equal(t, tt.wantCode, resp.Error.Code)
			require.Equal(t, tt.wantName, resp.Error.Name)
			if tt.wantMsg != "" {
				require.Equal(t, tt.wantMsg, resp.Error.Message)
			}
		})
	}
}

func TestJob_RemoteFailureNamesStage(t *testing.T) {
	p, fake, _ := setupPipeline(t, fastaOf(100))
	fake.ReportErr = os.ErrDeadlineExceeded
	job := &Job{Pipeline: p}

	resp := job.Dispatch(context.Background(),
		[]byte(`{"method":"m.filter_contigs","params":[{"workspace_name":"ws","assembly_input_ref":"1/2/3","min_length":0}]}`),
		gateway.Identity{})
	require.NotNil(t, resp.Error)
	require.Equal(t, "REMOTE_REPORT_ERROR", resp.Error.Name)
	require.Equal(t, "stage reporting: REMOTE_REPORT_ERROR", resp.Error.Error)
}

func TestJob_MissingInputFile(t *testing.T) {
	job := &Job{}
	dir := t.TempDir()
	err := job.Run(context.Background(), filepath.Join(dir, "nope.json"), filepath.Join(dir, "out.json"), "")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "out.json"))
	require.True(t, os.IsNotExist(statErr))
}

func TestStatus(t *testing.T) {
	got := Status(BuildInfo{Version: "v", GitURL: "u", GitCommit: "c"})
	want := StatusOutput{State: "OK", Message: "", Version: "v", GitURL: "u", GitCommitHash: "c"}
	if got != want {
		t.Errorf("Status() = %+v, want %+v", got, want)
	}
}
