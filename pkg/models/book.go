package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Words per minute used for reading time estimates.
const ReadingWordsPerMinute = 200

// Reading difficulty levels, derived from the average words per page.
const (
	DifficultyUnknown   = "unknown"
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID            int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Title         string    `bun:",notnull" json:"title"`
	SortTitle     string    `bun:",notnull" json:"sort_title"`
	ISBN          *string   `bun:"isbn" json:"isbn"`
	Description   *string   `json:"description"`
	TotalPages    int       `bun:",notnull" json:"total_pages"`
	WordCount     int       `bun:",notnull" json:"word_count"`
	AverageRating float64   `bun:",notnull" json:"average_rating"`
	ReviewCount   int       `bun:",notnull" json:"review_count"`

	// ContentVersion goes up every time the book's pages are replaced.
	ContentVersion int `bun:",notnull" json:"content_version"`
}

// HasContent reports whether any pages have been loaded for the book.
func (b *Book) HasContent() bool {
	return b.TotalPages > 0
}

// EstimatedReadingMinutes is the time an average reader needs for the whole
// book.
func (b *Book) EstimatedReadingMinutes() int {
	return b.WordCount / ReadingWordsPerMinute
}

func (b *Book) ReadingDifficulty() string {
	if b.WordCount == 0 || b.TotalPages == 0 {
		return DifficultyUnknown
	}
	wordsPerPage := b.WordCount / b.TotalPages
	switch {
	case wordsPerPage < 200:
		return DifficultyEasy
	case wordsPerPage < 350:
		return DifficultyMedium
	default:
		return DifficultyDifficult
	}
}
