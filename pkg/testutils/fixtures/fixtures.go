// Package fixtures sets up databases and rows for tests.
package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/booklook/booklook/pkg/config"
	"github.com/booklook/booklook/pkg/database"
	"github.com/booklook/booklook/pkg/migrations"
	"github.com/booklook/booklook/pkg/models"
	"github.com/booklook/booklook/pkg/testutils"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// NewDB returns a migrated in-memory database that is closed when the test
// finishes.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	db, err := database.New(config.NewForTest())
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func CreateUser(t testing.TB, db *bun.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		CreatedAt: time.Now().UTC(),
		Username:  username,
	}
	_, err := db.NewInsert().Model(user).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return user
}

// CreateBook inserts a book whose content is the given pages, numbered from 1.
func CreateBook(t testing.TB, db *bun.DB, title string, pages ...string) *models.Book {
	t.Helper()

	book, err := testutils.InsertBook(context.Background(), db, title, nil, pages)
	require.NoError(t, err)
	return book
}

// CreateBookWithISBN is CreateBook for a book that has an ISBN.
func CreateBookWithISBN(t testing.TB, db *bun.DB, title, isbn string, pages ...string) *models.Book {
	t.Helper()

	book, err := testutils.InsertBook(context.Background(), db, title, &isbn, pages)
	require.NoError(t, err)
	return book
}

// SetLastReadAt backdates a progress row so ordering can be asserted.
func SetLastReadAt(t testing.TB, db *bun.DB, userID, bookID int, at time.Time) {
	t.Helper()

	_, err := db.NewUpdate().
		Model((*models.ReadingProgress)(nil)).
		Set("last_read_at = ?", at.UTC()).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Exec(context.Background())
	require.NoError(t, err)
}
