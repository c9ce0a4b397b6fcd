package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Reading statuses derived from the progress percentage.
const (
	ReadingStatusNotStarted = "not_started"
	ReadingStatusInProgress = "in_progress"
	ReadingStatusFinished   = "finished"
)

type ReadingProgress struct {
	bun.BaseModel `bun:"table:reading_progress,alias:rp"`

	UserID             int       `bun:",pk" json:"user_id"`
	BookID             int       `bun:",pk" json:"book_id"`
	CurrentPage        int       `bun:",notnull" json:"current_page"`
	TotalPages         int       `bun:",notnull" json:"total_pages"`
	ProgressPercentage float64   `bun:",notnull" json:"progress_percentage"`
	LastReadAt         time.Time `json:"last_read_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Relations
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}

func (rp *ReadingProgress) Status() string {
	switch {
	case rp.ProgressPercentage <= 0:
		return ReadingStatusNotStarted
	case rp.ProgressPercentage >= 100:
		return ReadingStatusFinished
	default:
		return ReadingStatusInProgress
	}
}

func (rp *ReadingProgress) PagesRemaining() int {
	return max(rp.TotalPages-rp.CurrentPage, 0)
}
