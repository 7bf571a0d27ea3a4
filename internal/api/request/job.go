package request

// JobResult is the agent's report for a finished job.
type JobResult struct {
	Status   string `json:"status" validate:"required,oneof=complete error"`
	ExitCode *int   `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}
