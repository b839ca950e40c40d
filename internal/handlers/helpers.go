package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/paginator"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PostsPerPage is the fixed size of every post listing page.
const PostsPerPage = 10

// render adds the signed-in user to data and renders the named page with status 200.
func render(c echo.Context, name string, data echo.Map) error {
	return c.Render(http.StatusOK, name, withUser(c, data))
}

func withUser(c echo.Context, data echo.Map) echo.Map {
	if data == nil {
		data = echo.Map{}
	}
	data["User"] = middleware.CurrentUser(c)
	return data
}

// listPosts loads the requested page of a filtered post listing.
func listPosts(ctx context.Context, posts repositories.PostRepository, filter repositories.PostFilter, rawPage string) (*paginator.Page[models.Post], error) {
	total, err := posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	w := paginator.Paginate(rawPage, PostsPerPage, total)
	items, err := posts.ListPosts(ctx, filter, w.Offset(), w.PerPage)
	if err != nil {
		return nil, err
	}
	return paginator.Fill(w, items), nil
}

// loadPost resolves the :id path parameter; unknown or malformed ids are a 404.
func loadPost(c echo.Context, posts repositories.PostRepository) (*models.Post, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	post, err := posts.GetPostByID(c.Request().Context(), uint(id))
	if err != nil {
		return nil, notFoundOr(err, "Post not found")
	}
	return post, nil
}

// notFoundOr maps repositories.ErrNotFound to a 404 and passes other errors through.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, msg)
	}
	return err
}

func postDetailURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func uintPtr(v uint) *uint {
	return &v
}
