package domain

import "time"

// Record is a delivered batch as kept by a journal.
type Record struct {
	Seq   uint64    `json:"seq"`
	Model string    `json:"model"`
	Time  time.Time `json:"time"`
	Batch Batch     `json:"batch"`
}
