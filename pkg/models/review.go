package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Bounds for Review.Rating.
const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID        int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    int       `bun:",notnull" json:"user_id"`
	BookID    int       `bun:",notnull" json:"book_id"`
	Rating    int       `bun:",notnull" json:"rating"`
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}
