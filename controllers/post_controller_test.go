package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkarpushin/blogium/models"
)

func TestListPostsHidesInvisible(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, _ := createUser(t, db, "alice")

	published := models.Category{Title: "News", Slug: "news", IsPublished: true}
	hidden := models.Category{Title: "Drafts", Slug: "drafts", IsPublished: false}
	require.NoError(t, db.Create(&published).Error)
	require.NoError(t, db.Create(&hidden).Error)

	visible := createPost(t, db, author, func(p *models.Post) {
		p.Title = "visible"
		p.CategoryID = &published.ID
	})
	createPost(t, db, author, func(p *models.Post) {
		p.Title = "scheduled"
		p.PubDate = time.Now().Add(time.Hour)
	})
	createPost(t, db, author, func(p *models.Post) {
		p.Title = "withdrawn"
		p.IsPublished = false
	})
	createPost(t, db, author, func(p *models.Post) {
		p.Title = "hidden category"
		p.CategoryID = &hidden.ID
	})
	require.NoError(t, db.Create(&models.Comment{PostID: visible.ID, AuthorID: author.ID, Text: "hi"}).Error)

	w := doRequest(r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Items      []models.Post `json:"items"`
			Pagination struct {
				Total int64 `json:"total"`
			} `json:"pagination"`
		} `json:"data"`
	}
	decodeBody(t, w, &resp)
	require.Equal(t, 0, resp.Code)
	require.Len(t, resp.Data.Items, 1)
	require.Equal(t, visible.ID, resp.Data.Items[0].ID)
	require.EqualValues(t, 1, resp.Data.Items[0].CommentCount)
	require.Equal(t, "alice", resp.Data.Items[0].Author.Username)
	require.EqualValues(t, 1, resp.Data.Pagination.Total)
}

func TestGetPostAuthorBypass(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, authorToken := createUser(t, db, "alice")
	_, otherToken := createUser(t, db, "bob")

	withdrawn := createPost(t, db, author, func(p *models.Post) { p.IsPublished = false })
	scheduled := createPost(t, db, author, func(p *models.Post) { p.PubDate = time.Now().Add(time.Hour) })

	for _, post := range []models.Post{withdrawn, scheduled} {
		path := fmt.Sprintf("/api/v1/posts/%d", post.ID)

		w := doRequest(r, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(r, http.MethodGet, path, otherToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(r, http.MethodGet, path, authorToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Post     models.Post      `json:"post"`
				Comments []models.Comment `json:"comments"`
			} `json:"data"`
		}
		decodeBody(t, w, &resp)
		require.Equal(t, post.ID, resp.Data.Post.ID)
	}
}

func TestGetPostCommentsOldestFirst(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, _ := createUser(t, db, "alice")
	post := createPost(t, db, author, nil)

	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"first", "second", "third"} {
		c := models.Comment{PostID: post.ID, AuthorID: author.ID, Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, db.Create(&c).Error)
	}

	w := doRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", post.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Comments     []models.Comment `json:"comments"`
			CommentCount int              `json:"comment_count"`
		} `json:"data"`
	}
	decodeBody(t, w, &resp)
	require.Equal(t, 3, resp.Data.CommentCount)
	require.Equal(t, "first", resp.Data.Comments[0].Text)
	require.Equal(t, "third", resp.Data.Comments[2].Text)
	require.Equal(t, "alice", resp.Data.Comments[0].Author.Username)
}

func TestListCategoryPosts(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, _ := createUser(t, db, "alice")

	published := models.Category{Title: "News", Slug: "news", IsPublished: true}
	hidden := models.Category{Title: "Drafts", Slug: "drafts", IsPublished: false}
	require.NoError(t, db.Create(&published).Error)
	require.NoError(t, db.Create(&hidden).Error)

	inNews := createPost(t, db, author, func(p *models.Post) { p.CategoryID = &published.ID })
	createPost(t, db, author, func(p *models.Post) { p.CategoryID = &hidden.ID })
	createPost(t, db, author, nil) // uncategorized, must not leak into the category page

	w := doRequest(r, http.MethodGet, "/api/v1/categories/news/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Category models.Category `json:"category"`
			Items    []models.Post   `json:"items"`
		} `json:"data"`
	}
	decodeBody(t, w, &resp)
	require.Equal(t, "news", resp.Data.Category.Slug)
	require.Len(t, resp.Data.Items, 1)
	require.Equal(t, inNews.ID, resp.Data.Items[0].ID)

	// Unpublished category is not found even though it holds a post.
	w = doRequest(r, http.MethodGet, "/api/v1/categories/drafts/posts", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	var errResp struct {
		Code int `json:"code"`
	}
	decodeBody(t, w, &errResp)
	require.Equal(t, 40405, errResp.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/categories/missing/posts", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePost(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	_, token := createUser(t, db, "alice")

	form := url.Values{
		"title":    {"My Post"},
		"text":     {"Body text"},
		"pub_date": {"2026-01-02"},
	}

	// Anonymous writers are turned away before anything is stored.
	w := doRequest(r, http.MethodPost, "/api/v1/posts", "", form)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/posts", token, form)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/api/v1/profiles/alice", w.Header().Get("Location"))

	var post models.Post
	require.NoError(t, db.Where("title = ?", "My Post").First(&post).Error)
	require.Equal(t, "Body text", post.Text)
	require.True(t, post.IsPublished)

	var user models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)
	require.Equal(t, user.ID, post.AuthorID)
}

func TestCreatePostValidation(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	_, token := createUser(t, db, "alice")

	w := doRequest(r, http.MethodPost, "/api/v1/posts", token, url.Values{
		"title":    {"No date"},
		"text":     {"Body"},
		"pub_date": {"not-a-date"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/posts", token, url.Values{
		"title":       {"Bad category"},
		"text":        {"Body"},
		"pub_date":    {"2026-01-02"},
		"category_id": {"999"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdatePostAuthorOnly(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, authorToken := createUser(t, db, "alice")
	_, otherToken := createUser(t, db, "bob")

	post := createPost(t, db, author, func(p *models.Post) { p.Title = "original" })
	path := fmt.Sprintf("/api/v1/posts/%d/edit", post.ID)
	detail := fmt.Sprintf("/api/v1/posts/%d", post.ID)

	form := url.Values{
		"title":    {"hijacked"},
		"text":     {"new body"},
		"pub_date": {"2026-01-02"},
	}

	// A non-author is sent back to the detail page and nothing changes.
	w := doRequest(r, http.MethodPost, path, otherToken, form)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, detail, w.Header().Get("Location"))

	var unchanged models.Post
	require.NoError(t, db.First(&unchanged, post.ID).Error)
	require.Equal(t, "original", unchanged.Title)

	form.Set("title", "updated")
	w = doRequest(r, http.MethodPost, path, authorToken, form)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, detail, w.Header().Get("Location"))

	var updated models.Post
	require.NoError(t, db.First(&updated, post.ID).Error)
	require.Equal(t, "updated", updated.Title)
	require.Equal(t, "new body", updated.Text)
}

func TestDeletePost(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, authorToken := createUser(t, db, "alice")
	_, otherToken := createUser(t, db, "bob")

	post := createPost(t, db, author, nil)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "hi"}).Error)
	path := fmt.Sprintf("/api/v1/posts/%d/delete", post.ID)

	w := doRequest(r, http.MethodPost, path, otherToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodPost, path, authorToken, nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/api/v1/posts", w.Header().Get("Location"))

	var postCount, commentCount int64
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&commentCount).Error)
	require.Zero(t, postCount)
	require.Zero(t, commentCount)
}

func TestDeleteUnpublishedPostNotFound(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	author, authorToken := createUser(t, db, "alice")

	post := createPost(t, db, author, func(p *models.Post) { p.IsPublished = false })

	// A withdrawn post cannot be deleted, not even by its author.
	w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/delete", post.ID), authorToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
