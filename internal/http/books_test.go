package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk/internal/config"
)

func TestBookListings(t *testing.T) {
	srv := newTestServer(t, config.AuthModeNone)

	w := srv.do(t, http.MethodGet, "/books/all", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 2)

	w = srv.do(t, http.MethodPost, "/loans/create", map[string]any{"user_id": "S10000001", "book_id": "B1", "due_date": "2099-01-01"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = srv.do(t, http.MethodGet, "/books/available", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	available := decodeList(t, w)
	require.Len(t, available, 1)
	assert.Equal(t, "B2", available[0]["book_id"])
}

func TestGetBook(t *testing.T) {
	srv := newTestServer(t, config.AuthModeNone)

	w := srv.do(t, http.MethodGet, "/books/id?id=B2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Emma", decode(t, w)["title"])

	w = srv.do(t, http.MethodGet, "/books/id", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Book ID is required", decode(t, w)["error"])

	w = srv.do(t, http.MethodGet, "/books/id?id=B9", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "The book that you are looking for cannot be found", decode(t, w)["error"])
}

func TestSearchBooks(t *testing.T) {
	srv := newTestServer(t, config.AuthModeNone)

	w := srv.do(t, http.MethodGet, "/books/searchtext?search=HERBERT", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, "Dune", body["books"].([]any)[0].(map[string]any)["title"])

	w = srv.do(t, http.MethodGet, "/books/searchtext?search=classics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = srv.do(t, http.MethodGet, "/books/searchtext?search=tolkien", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "tolkien", decode(t, w)["search_term"])

	w = srv.do(t, http.MethodGet, "/books/searchtext?search=", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookLifecycle(t *testing.T) {
	srv := newTestServer(t, config.AuthModeNone)

	w := srv.do(t, http.MethodPost, "/books/create", map[string]any{"title": "Solaris"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title and author are required", decode(t, w)["error"])

	w = srv.do(t, http.MethodPost, "/books/create", map[string]any{"title": "Solaris", "author": "Lem", "available_copies": -1}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/books/create", map[string]any{"title": "Solaris", "author": "Stanislaw Lem", "category": "SF"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Book has been successfully created!", body["message"])
	book := body["book"].(map[string]any)
	bookID := book["book_id"].(string)
	require.NotEmpty(t, bookID)
	assert.EqualValues(t, 1, book["available_copies"])

	w = srv.do(t, http.MethodPut, "/books/update", map[string]any{"id": bookID, "publisher": "Walker"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "Book has been successfully updated!", body["message"])
	assert.Equal(t, "Walker", body["book"].(map[string]any)["publisher"])

	w = srv.do(t, http.MethodPut, "/books/update", map[string]any{"id": bookID}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No valid fields provided for update", decode(t, w)["error"])

	w = srv.do(t, http.MethodPut, "/books/update", map[string]any{"id": "B9", "title": "x"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodDelete, "/books/delete", map[string]any{"id": bookID}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Book has been successfully deleted!", decode(t, w)["message"])

	w = srv.do(t, http.MethodDelete, "/books/delete", map[string]any{"id": bookID}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Book has not been found", decode(t, w)["error"])
}

func TestDeleteBookInUse(t *testing.T) {
	srv := newTestServer(t, config.AuthModeNone)

	w := srv.do(t, http.MethodPost, "/loans/create", map[string]any{"user_id": "S10000001", "book_id": "B1", "due_date": "2099-01-01"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = srv.do(t, http.MethodDelete, "/books/delete", map[string]any{"id": "B1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/books/id?id=B1", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookMutationsRequireStaffToken(t *testing.T) {
	srv := newTestServer(t, config.AuthModeToken)
	body := map[string]any{"title": "Solaris", "author": "Stanislaw Lem"}

	w := srv.do(t, http.MethodPost, "/books/create", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(t, http.MethodPost, "/books/create", body, srv.tokenFor(t, "S10000001"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPost, "/books/create", body, srv.tokenFor(t, "L001"))
	assert.Equal(t, http.StatusCreated, w.Code)

	// Reads are open to any signed-in user.
	w = srv.do(t, http.MethodGet, "/books/all", nil, srv.tokenFor(t, "S10000001"))
	assert.Equal(t, http.StatusOK, w.Code)
}
