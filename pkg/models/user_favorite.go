package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UserFavorite struct {
	bun.BaseModel `bun:"table:user_favorites,alias:uf"`

	UserID    int       `bun:",pk" json:"user_id"`
	BookID    int       `bun:",pk" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}
