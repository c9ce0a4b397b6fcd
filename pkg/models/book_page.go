package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookPage struct {
	bun.BaseModel `bun:"table:book_pages,alias:bp"`

	ID         int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	BookID     int       `bun:",notnull" json:"book_id"`
	PageNumber int       `bun:",notnull" json:"page_number"`
	Content    string    `bun:",notnull" json:"content"`
	WordCount  int       `bun:",notnull" json:"word_count"`
}
