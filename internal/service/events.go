package service

import (
	"unicode/utf8"

	"labswarm/internal/model"
)

// TaskEventData payload of task_* events
type TaskEventData struct {
	Task   *model.Task   `json:"task"`
	Worker *model.Worker `json:"worker,omitempty"`
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
