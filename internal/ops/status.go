package ops

// BuildInfo identifies the running build. Values are injected at link time.
type BuildInfo struct {
	Version   string
	GitURL    string
	GitCommit string
}

// StatusOutput is the result of the status operation.
type StatusOutput struct {
	State         string `json:"state"`
	Message       string `json:"message"`
	Version       string `json:"version"`
	GitURL        string `json:"git_url"`
	GitCommitHash string `json:"git_commit_hash"`
}

// Status reports that the service is up along with its build identity.
func Status(info BuildInfo) StatusOutput {
	return StatusOutput{
		State:         "OK",
		Message:       "",
		Version:       info.Version,
		GitURL:        info.GitURL,
		GitCommitHash: info.GitCommit,
	}
}
