package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkarpushin/blogium/models"
)

func TestCreateCommentRequiresAuth(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, _ := createUser(t, db, "alice")
	post := createPost(t, db, author, nil)

	w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), "", url.Values{"text": {"hi"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateCommentIdentityFromContext(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, _ := createUser(t, db, "alice")
	commenter, token := createUser(t, db, "bob")
	post := createPost(t, db, author, nil)

	// Client-supplied author and post ids must be ignored.
	form := url.Values{
		"text":      {"nice post"},
		"author_id": {"999"},
		"post_id":   {"999"},
	}
	w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), token, form)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, fmt.Sprintf("/api/v1/posts/%d", post.ID), w.Header().Get("Location"))

	var comment models.Comment
	require.NoError(t, db.First(&comment).Error)
	require.Equal(t, commenter.ID, comment.AuthorID)
	require.Equal(t, post.ID, comment.PostID)
	require.Equal(t, "nice post", comment.Text)
}

func TestCreateCommentOnMissingPost(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	_, token := createUser(t, db, "bob")

	w := doRequest(r, http.MethodPost, "/api/v1/posts/12345/comments", token, url.Values{"text": {"hi"}})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCommentAuthorOnly(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, _ := createUser(t, db, "alice")
	commenter, commenterToken := createUser(t, db, "bob")
	_, otherToken := createUser(t, db, "carol")
	post := createPost(t, db, author, nil)

	comment := models.Comment{PostID: post.ID, AuthorID: commenter.ID, Text: "before"}
	require.NoError(t, db.Create(&comment).Error)

	path := fmt.Sprintf("/api/v1/posts/%d/comments/%d/edit", post.ID, comment.ID)

	w := doRequest(r, http.MethodPost, path, otherToken, url.Values{"text": {"after"}})
	require.Equal(t, http.StatusForbidden, w.Code)

	var unchanged models.Comment
	require.NoError(t, db.First(&unchanged, comment.ID).Error)
	require.Equal(t, "before", unchanged.Text)

	w = doRequest(r, http.MethodPost, path, commenterToken, url.Values{"text": {"after"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, fmt.Sprintf("/api/v1/posts/%d", post.ID), w.Header().Get("Location"))

	var updated models.Comment
	require.NoError(t, db.First(&updated, comment.ID).Error)
	require.Equal(t, "after", updated.Text)
}

func TestUpdateCommentResolvedByOwnID(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, _ := createUser(t, db, "alice")
	commenter, token := createUser(t, db, "bob")
	postA := createPost(t, db, author, nil)
	postB := createPost(t, db, author, nil)

	comment := models.Comment{PostID: postA.ID, AuthorID: commenter.ID, Text: "before"}
	require.NoError(t, db.Create(&comment).Error)

	// The comment is looked up by its own id; the post segment only shapes
	// the redirect target.
	path := fmt.Sprintf("/api/v1/posts/%d/comments/%d/edit", postB.ID, comment.ID)
	w := doRequest(r, http.MethodPost, path, token, url.Values{"text": {"after"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, fmt.Sprintf("/api/v1/posts/%d", postB.ID), w.Header().Get("Location"))

	var updated models.Comment
	require.NoError(t, db.First(&updated, comment.ID).Error)
	require.Equal(t, "after", updated.Text)
	require.Equal(t, postA.ID, updated.PostID)
}

func TestDeleteComment(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, _ := createUser(t, db, "alice")
	commenter, token := createUser(t, db, "bob")
	post := createPost(t, db, author, nil)

	comment := models.Comment{PostID: post.ID, AuthorID: commenter.ID, Text: "bye"}
	require.NoError(t, db.Create(&comment).Error)

	w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments/%d/delete", post.ID, comment.ID), token, nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, fmt.Sprintf("/api/v1/posts/%d", post.ID), w.Header().Get("Location"))

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	require.Zero(t, count)

	w = doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments/%d/delete", post.ID, comment.ID), token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
