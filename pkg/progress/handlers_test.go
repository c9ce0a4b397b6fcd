package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/booklook/booklook/pkg/auth"
	"github.com/booklook/booklook/pkg/binder"
	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/cache"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/testutils/fixtures"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testServer struct {
	e           *echo.Echo
	db          *bun.DB
	authService *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := fixtures.NewDB(t)
	b, err := binder.New()
	require.NoError(t, err)

	e := echo.New()
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	authService := auth.NewService(db, "test-secret")
	mw := auth.NewMiddleware(authService)
	bookService := books.NewService(db, cache.NewMemory(), time.Minute)
	RegisterRoutesWithGroup(e.Group("/user", mw.Authenticate), NewService(db, bookService))

	return &testServer{e, db, authService}
}

func (s *testServer) do(t *testing.T, method, target, body string, userID int) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != 0 {
		token, err := s.authService.GenerateToken(userID)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.e.ServeHTTP(rr, req)
	return rr
}

type detailResponse struct {
	BookID             int     `json:"book_id"`
	CurrentPage        int     `json:"current_page"`
	TotalPages         int     `json:"total_pages"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Status             string  `json:"status"`
	PagesRemaining     int     `json:"pages_remaining"`
}

func TestHandlers_UpdateAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	user := fixtures.CreateUser(t, s.db, "reader")
	book := fixtures.CreateBook(t, s.db, "Three", words(140), words(140), words(140))
	path := "/user/reading-progress/" + strconv.Itoa(book.ID)

	rr := s.do(t, http.MethodPut, path, `{"current_page":2}`, user.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got detailResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 2, got.CurrentPage)
	assert.InDelta(t, 66.67, got.ProgressPercentage, 0.0001)
	assert.Equal(t, "in_progress", got.Status)
	assert.Equal(t, 1, got.PagesRemaining)

	rr = s.do(t, http.MethodGet, path, "", user.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 2, got.CurrentPage)

	rr = s.do(t, http.MethodGet, "/user/reading-progress-currently-reading", "", user.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []detailResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, book.ID, list[0].BookID)

	rr = s.do(t, http.MethodGet, path+"/session", "", user.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var session Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &session))
	assert.Equal(t, "Three", session.BookTitle)
	assert.Equal(t, 140, session.CurrentWordPosition)
	assert.Equal(t, 140, session.WordsRemaining)

	rr = s.do(t, http.MethodPost, path+"/finish", "", user.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "finished", got.Status)

	rr = s.do(t, http.MethodGet, "/user/reading-progress-currently-reading", "", user.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Empty(t, list)

	for _, target := range []string{"/user/reading-progress-history", "/user/reading-progress-finished"} {
		rr = s.do(t, http.MethodGet, target, "", user.ID)
		require.Equal(t, http.StatusOK, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
		require.Len(t, list, 1, target)
		assert.InDelta(t, 100.0, list[0].ProgressPercentage, 0.0001)
	}

	rr = s.do(t, http.MethodGet, "/user/reading-stats", "", user.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.BooksFinished)

	rr = s.do(t, http.MethodDelete, path, "", user.ID)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodDelete, path, "", user.ID)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, path, "", user.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "not_started", got.Status)
}

func TestHandlers_Errors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	user := fixtures.CreateUser(t, s.db, "reader")
	book := fixtures.CreateBook(t, s.db, "Book", "a", "b")
	empty := fixtures.CreateBook(t, s.db, "Empty")

	tests := []struct {
		name   string
		method string
		target string
		body   string
		userID int
		status int
		code   string
	}{
		{"requires auth", http.MethodGet, "/user/reading-progress/" + strconv.Itoa(book.ID), "", 0, http.StatusUnauthorized, "unauthorized"},
		{"unknown book", http.MethodGet, "/user/reading-progress/9999", "", user.ID, http.StatusNotFound, "not_found"},
		{"bad book id", http.MethodGet, "/user/reading-progress/abc", "", user.ID, http.StatusNotFound, "not_found"},
		{"missing current page", http.MethodPut, "/user/reading-progress/" + strconv.Itoa(book.ID), `{}`, user.ID, http.StatusUnprocessableEntity, "validation_error"},
		{"unknown field", http.MethodPut, "/user/reading-progress/" + strconv.Itoa(book.ID), `{"current_page":1,"total_pages":2}`, user.ID, http.StatusUnprocessableEntity, "unknown_parameter"},
		{"book without content", http.MethodPut, "/user/reading-progress/" + strconv.Itoa(empty.ID), `{"current_page":1}`, user.ID, http.StatusNotFound, "no_content"},
		{"session before reading", http.MethodGet, "/user/reading-progress/" + strconv.Itoa(book.ID) + "/session", "", user.ID, http.StatusNotFound, "not_found"},
		{"bad limit", http.MethodGet, "/user/reading-progress-history?limit=500", "", user.ID, http.StatusUnprocessableEntity, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, tt.method, tt.target, tt.body, tt.userID)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Contains(t, rr.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
}

func TestHandlers_History(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	user := fixtures.CreateUser(t, s.db, "reader")
	recent := fixtures.CreateBook(t, s.db, "Recent", "a", "b")
	old := fixtures.CreateBook(t, s.db, "Old", "a", "b")

	for _, book := range []int{recent.ID, old.ID} {
		rr := s.do(t, http.MethodPut, "/user/reading-progress/"+strconv.Itoa(book), `{"current_page":1}`, user.ID)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	fixtures.SetLastReadAt(t, s.db, user.ID, old.ID, time.Now().Add(-45*24*time.Hour))

	bookIDs := func(target string) []int {
		rr := s.do(t, http.MethodGet, target, "", user.ID)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var list []detailResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
		ids := []int{}
		for _, d := range list {
			ids = append(ids, d.BookID)
		}
		return ids
	}

	assert.Equal(t, []int{recent.ID, old.ID}, bookIDs("/user/reading-progress-history"))
	assert.Equal(t, []int{recent.ID}, bookIDs("/user/reading-progress-history?days_back=30"))
	assert.Equal(t, []int{recent.ID, old.ID}, bookIDs("/user/reading-progress-history?days_back=60"))

	rr := s.do(t, http.MethodGet, "/user/reading-progress-history?days_back=0", "", user.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
