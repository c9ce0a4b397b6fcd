package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User rows belong to the authentication service. They are kept here so
// progress and reviews can reference them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `bun:",notnull" json:"username"`
	Email     *string   `json:"email,omitempty"`
}
