package progress

import (
	"github.com/booklook/booklook/pkg/models"
)

// Detail is the API shape of a progress row, with the values derived from
// it.
type Detail struct {
	*models.ReadingProgress
	Status         string `json:"status"`
	PagesRemaining int    `json:"pages_remaining"`
}

func NewDetail(rp *models.ReadingProgress) *Detail {
	return &Detail{
		ReadingProgress: rp,
		Status:          rp.Status(),
		PagesRemaining:  rp.PagesRemaining(),
	}
}

func newDetails(rows []*models.ReadingProgress) []*Detail {
	details := make([]*Detail, len(rows))
	for i, rp := range rows {
		details[i] = NewDetail(rp)
	}
	return details
}
