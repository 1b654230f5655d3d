package report

import "fmt"

// Status tells apart a computation that produced its result from one that
// was skipped or failed and left an empty result behind.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is embedded in every summary. Reason is set for skipped and failed
// results.
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func OK() Result {
	return Result{Status: StatusOK}
}

func Skipped(format string, args ...any) Result {
	return Result{Status: StatusSkipped, Reason: fmt.Sprintf(format, args...)}
}

func Failed(err error) Result {
	return Result{Status: StatusFailed, Reason: err.Error()}
}

func (r Result) IsOK() bool {
	return r.Status == StatusOK
}
