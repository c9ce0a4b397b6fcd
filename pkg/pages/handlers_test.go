package pages

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/booklook/booklook/pkg/auth"
	"github.com/booklook/booklook/pkg/binder"
	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/cache"
	"github.com/booklook/booklook/pkg/config"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/progress"
	"github.com/booklook/booklook/pkg/testutils/fixtures"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testServer struct {
	e               *echo.Echo
	db              *bun.DB
	authService     *auth.Service
	progressService *progress.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := fixtures.NewDB(t)
	b, err := binder.New()
	require.NoError(t, err)

	e := echo.New()
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	c := cache.NewMemory()
	authService := auth.NewService(db, "test-secret")
	bookService := books.NewService(db, c, time.Minute)
	progressService := progress.NewService(db, bookService)
	pageService := NewService(db, c, bookService, config.NewForTest())
	RegisterRoutesWithGroup(e.Group("/books"), pageService, progressService, auth.NewMiddleware(authService))

	return &testServer{e, db, authService, progressService}
}

func (s *testServer) get(t *testing.T, target string, userID int) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != 0 {
		token, err := s.authService.GenerateToken(userID)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.e.ServeHTTP(rr, req)
	return rr
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestHandlers_Content(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ctx := t.Context()

	user := fixtures.CreateUser(t, s.db, "reader")
	book := fixtures.CreateBook(t, s.db, "Three", words(140), words(140), words(140))

	var resp struct {
		PageNumber   int  `json:"page_number"`
		TotalPages   int  `json:"total_pages"`
		PreviousPage *int `json:"previous_page"`
		NextPage     *int `json:"next_page"`
		Progress     *struct {
			CurrentPage        int     `json:"current_page"`
			ProgressPercentage float64 `json:"progress_percentage"`
			Status             string  `json:"status"`
		} `json:"progress"`
	}

	t.Run("anonymous reader", func(t *testing.T) {
		rr := s.get(t, fmt.Sprintf("/books/%d/content?page=2", book.ID), 0)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.PageNumber)
		assert.Equal(t, 3, resp.TotalPages)
		require.NotNil(t, resp.PreviousPage)
		assert.Equal(t, 1, *resp.PreviousPage)
		require.NotNil(t, resp.NextPage)
		assert.Equal(t, 3, *resp.NextPage)
		assert.Nil(t, resp.Progress)
	})

	t.Run("signed in reader moves their progress", func(t *testing.T) {
		rr := s.get(t, fmt.Sprintf("/books/%d/content?page=2", book.ID), user.ID)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.Progress)
		assert.Equal(t, 2, resp.Progress.CurrentPage)
		assert.InDelta(t, 66.67, resp.Progress.ProgressPercentage, 0.0001)
		assert.Equal(t, "in_progress", resp.Progress.Status)

		rp, err := s.progressService.GetProgress(ctx, user.ID, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, rp.CurrentPage)
	})

	t.Run("page defaults to one", func(t *testing.T) {
		rr := s.get(t, fmt.Sprintf("/books/%d/content", book.ID), 0)
		require.Equal(t, http.StatusOK, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.PageNumber)
		assert.Nil(t, resp.PreviousPage)
	})

	t.Run("page zero is rejected", func(t *testing.T) {
		for _, p := range []string{"0", "-2"} {
			rr := s.get(t, fmt.Sprintf("/books/%d/content?page=%s", book.ID, p), user.ID)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			var errResp errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
			assert.Equal(t, "invalid_input", errResp.Error.Code)
		}

		// The rejected reads leave progress where it was.
		rp, err := s.progressService.GetProgress(ctx, user.ID, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, rp.CurrentPage)
	})

	t.Run("page past the end", func(t *testing.T) {
		rr := s.get(t, fmt.Sprintf("/books/%d/content?page=5", book.ID), user.ID)
		require.Equal(t, http.StatusNotFound, rr.Code)
		var errResp errorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
		assert.Equal(t, "page_not_found", errResp.Error.Code)
		assert.Equal(t, "Page 5 not found. The book has 3 pages.", errResp.Error.Message)

		// The failed read leaves progress where it was.
		rp, err := s.progressService.GetProgress(ctx, user.ID, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, rp.CurrentPage)
	})

	t.Run("invalid token is treated as anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/books/%d/content?page=1", book.ID), nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
		rr := httptest.NewRecorder()
		s.e.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestHandlers_Pages(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	content := make([]string, 12)
	for i := range content {
		content[i] = fmt.Sprintf("page %d %s", i+1, words(20))
	}
	book := fixtures.CreateBook(t, s.db, "Twelve", content...)
	base := fmt.Sprintf("/books/%d", book.ID)

	t.Run("single page", func(t *testing.T) {
		rr := s.get(t, base+"/pages/4", 0)
		require.Equal(t, http.StatusOK, rr.Code)
		var page PageResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		assert.Equal(t, 4, page.PageNumber)
		assert.True(t, strings.HasPrefix(page.Content, "page 4 "))
	})

	t.Run("listing", func(t *testing.T) {
		rr := s.get(t, base+"/pages?limit=5&offset=10", 0)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Pages []PageSummary `json:"pages"`
			Total int           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 12, resp.Total)
		require.Len(t, resp.Pages, 2)
		assert.Equal(t, 11, resp.Pages[0].PageNumber)
	})

	t.Run("range", func(t *testing.T) {
		rr := s.get(t, base+"/pages/range?start=2&end=4", 0)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var pages []PageResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pages))
		require.Len(t, pages, 3)
		assert.Equal(t, 2, pages[0].PageNumber)
		assert.Equal(t, 4, pages[2].PageNumber)
	})

	t.Run("range too wide", func(t *testing.T) {
		rr := s.get(t, base+"/pages/range?start=1&end=12", 0)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("range backwards", func(t *testing.T) {
		rr := s.get(t, base+"/pages/range?start=4&end=2", 0)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("search", func(t *testing.T) {
		rr := s.get(t, base+"/search?q=PAGE+1&limit=5", 0)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp struct {
			Query   string      `json:"query"`
			Results []SearchHit `json:"results"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "PAGE 1", resp.Query)
		// "page 1", "page 10", "page 11" and "page 12" all match.
		require.Len(t, resp.Results, 4)
		assert.Equal(t, 1, resp.Results[0].PageNumber)
		assert.Equal(t, 12, resp.Results[3].PageNumber)
	})

	t.Run("blank search", func(t *testing.T) {
		rr := s.get(t, base+"/search?q=+++", 0)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("bad ids", func(t *testing.T) {
		rr := s.get(t, "/books/abc/pages/1", 0)
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = s.get(t, base+"/pages/abc", 0)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}
