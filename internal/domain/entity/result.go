package entity

import "unicode/utf8"

type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

const truncatedSuffix = "... [truncated]"

type ActionResult struct {
	Status  ResultStatus `json:"status"`
	Message string       `json:"message"`
	// Finished is set only by the finish action; Message then holds the summary.
	Finished bool `json:"-"`
}

func Success(msg string) ActionResult {
	return ActionResult{Status: StatusSuccess, Message: msg}
}

func Failure(msg string) ActionResult {
	return ActionResult{Status: StatusError, Message: msg}
}

func Finished(summary string) ActionResult {
	return ActionResult{Status: StatusSuccess, Message: summary, Finished: true}
}

func (r ActionResult) IsError() bool {
	return r.Status == StatusError
}

// Truncated returns a copy whose message is cut to limit runes.
func (r ActionResult) Truncated(limit int) ActionResult {
	r.Message = Truncate(r.Message, limit)
	return r
}

// Truncate cuts s to limit runes and marks the cut. limit <= 0 disables it.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + truncatedSuffix
}
