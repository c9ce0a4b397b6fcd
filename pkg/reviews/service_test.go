package reviews

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/cache"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/models"
	"github.com/booklook/booklook/pkg/testutils/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestService(t *testing.T) (*Service, *bun.DB, *books.Service) {
	t.Helper()

	db := fixtures.NewDB(t)
	bookService := books.NewService(db, cache.NewMemory(), time.Minute)
	return NewService(db, bookService), db, bookService
}

func retrieveBook(t *testing.T, db *bun.DB, id int) *models.Book {
	t.Helper()

	book := &models.Book{}
	require.NoError(t, db.NewSelect().Model(book).Where("b.id = ?", id).Scan(context.Background()))
	return book
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	alice := fixtures.CreateUser(t, db, "alice")
	bob := fixtures.CreateUser(t, db, "bob")
	book := fixtures.CreateBook(t, db, "Rated", "content")

	review, err := svc.CreateReview(ctx, CreateReviewOptions{
		UserID:  alice.ID,
		BookID:  book.ID,
		Rating:  5,
		Title:   strPtr("Loved it"),
		Content: strPtr("Couldn't put it down."),
	})
	require.NoError(t, err)
	assert.NotZero(t, review.ID)
	assert.Equal(t, 5, review.Rating)

	_, err = svc.CreateReview(ctx, CreateReviewOptions{UserID: bob.ID, BookID: book.ID, Rating: 2})
	require.NoError(t, err)

	updated := retrieveBook(t, db, book.ID)
	assert.InDelta(t, 3.5, updated.AverageRating, 0.0001)
	assert.Equal(t, 2, updated.ReviewCount)
}

func TestCreateReview_DuplicateLeavesAggregateUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	user := fixtures.CreateUser(t, db, "reader")
	book := fixtures.CreateBook(t, db, "Once", "content")

	_, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: user.ID, BookID: book.ID, Rating: 4})
	require.NoError(t, err)
	before := retrieveBook(t, db, book.ID)

	_, err = svc.CreateReview(ctx, CreateReviewOptions{UserID: user.ID, BookID: book.ID, Rating: 1})
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "conflict", e.Code)

	after := retrieveBook(t, db, book.ID)
	assert.InDelta(t, before.AverageRating, after.AverageRating, 0.0001)
	assert.Equal(t, before.ReviewCount, after.ReviewCount)
	assert.InDelta(t, 4.0, after.AverageRating, 0.0001)
}

func TestCreateReview_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	user := fixtures.CreateUser(t, db, "reader")
	book := fixtures.CreateBook(t, db, "Strict", "content")

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: user.ID, BookID: book.ID, Rating: rating})
		var e *errcodes.Error
		require.ErrorAs(t, err, &e, "rating %d", rating)
		assert.Equal(t, "invalid_input", e.Code)
	}

	_, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: user.ID, BookID: 9999, Rating: 3})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))

	_, err = svc.CreateReview(ctx, CreateReviewOptions{UserID: 9999, BookID: book.ID, Rating: 3})
	assert.ErrorIs(t, err, errcodes.NotFound("User"))

	assert.Zero(t, retrieveBook(t, db, book.ID).ReviewCount)
}

func TestCreateReview_InvalidatesCachedBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, bookService := newTestService(t)

	user := fixtures.CreateUser(t, db, "reader")
	book := fixtures.CreateBook(t, db, "Cached", "content")

	cached, err := bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Zero(t, cached.ReviewCount)

	_, err = svc.CreateReview(ctx, CreateReviewOptions{UserID: user.ID, BookID: book.ID, Rating: 3})
	require.NoError(t, err)

	fresh, err := bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.ReviewCount)
	assert.InDelta(t, 3.0, fresh.AverageRating, 0.0001)
}

func TestUpdateReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	author := fixtures.CreateUser(t, db, "author")
	other := fixtures.CreateUser(t, db, "other")
	book := fixtures.CreateBook(t, db, "Edited", "content")

	review, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: author.ID, BookID: book.ID, Rating: 2, Title: strPtr("Meh")})
	require.NoError(t, err)

	updated, err := svc.UpdateReview(ctx, UpdateReviewOptions{
		ReviewID: review.ID,
		UserID:   author.ID,
		Rating:   intPtr(4),
		Content:  strPtr("It grew on me."),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	require.NotNil(t, updated.Title)
	assert.Equal(t, "Meh", *updated.Title)
	require.NotNil(t, updated.Content)
	assert.Equal(t, "It grew on me.", *updated.Content)
	require.NotNil(t, updated.User)
	assert.Equal(t, "author", updated.User.Username)

	assert.InDelta(t, 4.0, retrieveBook(t, db, book.ID).AverageRating, 0.0001)

	t.Run("not the author", func(t *testing.T) {
		_, err := svc.UpdateReview(ctx, UpdateReviewOptions{ReviewID: review.ID, UserID: other.ID, Rating: intPtr(1)})
		var e *errcodes.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "forbidden", e.Code)
		assert.InDelta(t, 4.0, retrieveBook(t, db, book.ID).AverageRating, 0.0001)
	})

	t.Run("bad rating", func(t *testing.T) {
		_, err := svc.UpdateReview(ctx, UpdateReviewOptions{ReviewID: review.ID, UserID: author.ID, Rating: intPtr(9)})
		var e *errcodes.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "invalid_input", e.Code)
	})

	t.Run("missing review", func(t *testing.T) {
		_, err := svc.UpdateReview(ctx, UpdateReviewOptions{ReviewID: 9999, UserID: author.ID, Rating: intPtr(3)})
		assert.ErrorIs(t, err, errcodes.NotFound("Review"))
	})
}

func TestDeleteReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	alice := fixtures.CreateUser(t, db, "alice")
	bob := fixtures.CreateUser(t, db, "bob")
	book := fixtures.CreateBook(t, db, "Deleted", "content")

	first, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: alice.ID, BookID: book.ID, Rating: 5})
	require.NoError(t, err)
	second, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: bob.ID, BookID: book.ID, Rating: 1})
	require.NoError(t, err)

	err = svc.DeleteReview(ctx, first.ID, bob.ID)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "forbidden", e.Code)

	require.NoError(t, svc.DeleteReview(ctx, first.ID, alice.ID))
	updated := retrieveBook(t, db, book.ID)
	assert.InDelta(t, 1.0, updated.AverageRating, 0.0001)
	assert.Equal(t, 1, updated.ReviewCount)

	require.NoError(t, svc.DeleteReview(ctx, second.ID, bob.ID))
	updated = retrieveBook(t, db, book.ID)
	assert.Zero(t, updated.AverageRating)
	assert.Zero(t, updated.ReviewCount)

	err = svc.DeleteReview(ctx, first.ID, alice.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Review"))
}

func TestListBookReviewsWithTotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	book := fixtures.CreateBook(t, db, "Popular", "content")
	other := fixtures.CreateBook(t, db, "Other", "content")

	ids := []int{}
	for i, name := range []string{"a", "b", "c"} {
		user := fixtures.CreateUser(t, db, name)
		review, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: user.ID, BookID: book.ID, Rating: i + 1})
		require.NoError(t, err)
		ids = append(ids, review.ID)
	}
	user := fixtures.CreateUser(t, db, "d")
	_, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: user.ID, BookID: other.ID, Rating: 5})
	require.NoError(t, err)

	limit, offset := 2, 0
	reviews, total, err := svc.ListBookReviewsWithTotal(ctx, ListReviewsOptions{BookID: book.ID, Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, reviews, 2)
	// Newest first; ties on created_at fall back to the id.
	assert.Equal(t, ids[2], reviews[0].ID)
	assert.Equal(t, ids[1], reviews[1].ID)
	require.NotNil(t, reviews[0].User)

	all, err := svc.ListBookReviews(ctx, ListReviewsOptions{BookID: book.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.ListBookReviews(ctx, ListReviewsOptions{BookID: 9999})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestListUserReviewsWithTotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	reader := fixtures.CreateUser(t, db, "reader")
	other := fixtures.CreateUser(t, db, "other")

	ids := []int{}
	for _, title := range []string{"One", "Two", "Three"} {
		book := fixtures.CreateBook(t, db, title, "content")
		review, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: reader.ID, BookID: book.ID, Rating: 4})
		require.NoError(t, err)
		ids = append(ids, review.ID)

		_, err = svc.CreateReview(ctx, CreateReviewOptions{UserID: other.ID, BookID: book.ID, Rating: 1})
		require.NoError(t, err)
	}

	limit, offset := 2, 1
	reviews, total, err := svc.ListUserReviewsWithTotal(ctx, ListUserReviewsOptions{UserID: reader.ID, Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, reviews, 2)
	assert.Equal(t, ids[1], reviews[0].ID)
	assert.Equal(t, ids[0], reviews[1].ID)
	require.NotNil(t, reviews[0].Book)
	assert.Equal(t, "Two", reviews[0].Book.Title)

	reviews, total, err = svc.ListUserReviewsWithTotal(ctx, ListUserReviewsOptions{UserID: 9999})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, reviews)
}

func TestRetrieveUserReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	reader := fixtures.CreateUser(t, db, "reader")
	other := fixtures.CreateUser(t, db, "other")
	book := fixtures.CreateBook(t, db, "Rated", "content")

	created, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: reader.ID, BookID: book.ID, Rating: 2, Title: strPtr("Meh")})
	require.NoError(t, err)

	review, err := svc.RetrieveUserReview(ctx, reader.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, review.ID)
	require.NotNil(t, review.User)
	assert.Equal(t, "reader", review.User.Username)

	_, err = svc.RetrieveUserReview(ctx, other.ID, book.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Review"))

	_, err = svc.RetrieveUserReview(ctx, reader.ID, 9999)
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestRatingDistribution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	book := fixtures.CreateBook(t, db, "Spread", "content")
	for i, rating := range []int{5, 5, 4, 1} {
		user := fixtures.CreateUser(t, db, string(rune('a'+i)))
		_, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: user.ID, BookID: book.ID, Rating: rating})
		require.NoError(t, err)
	}

	dist, err := svc.RatingDistribution(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 1, "2": 0, "3": 0, "4": 1, "5": 2}, dist.Ratings)
	assert.Equal(t, 4, dist.ReviewCount)
	assert.InDelta(t, 3.75, dist.AverageRating, 0.0001)
	assert.InDelta(t, dist.AverageRating, retrieveBook(t, db, book.ID).AverageRating, 0.0001)

	empty := fixtures.CreateBook(t, db, "Unrated", "content")
	dist, err = svc.RatingDistribution(ctx, empty.ID)
	require.NoError(t, err)
	assert.Zero(t, dist.ReviewCount)
	assert.Len(t, dist.Ratings, 5)
}

func TestCreateReview_ConcurrentWritersKeepAggregateExact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	book := fixtures.CreateBook(t, db, "Contended", "content")
	users := make([]*models.User, 10)
	for i := range users {
		users[i] = fixtures.CreateUser(t, db, string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(users))
	for i, user := range users {
		wg.Add(1)
		go func(userID, rating int) {
			defer wg.Done()
			_, err := svc.CreateReview(ctx, CreateReviewOptions{UserID: userID, BookID: book.ID, Rating: rating})
			errs <- err
		}(user.ID, i%5+1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	updated := retrieveBook(t, db, book.ID)
	assert.Equal(t, 10, updated.ReviewCount)
	assert.InDelta(t, 3.0, updated.AverageRating, 0.0001)
}
