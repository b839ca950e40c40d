package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anonto42/yatube/backend/internal/cache"
	"github.com/anonto42/yatube/backend/internal/forms"
	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PostHandler serves post listings, post details and the create/edit forms
type PostHandler struct {
	postRepository    repositories.PostRepository
	commentRepository repositories.CommentRepository
	groupRepository   repositories.GroupRepository
	userRepository    repositories.UserRepository
	followRepository  repositories.FollowRepository
	imageStore        storage.ImageStore
	pageCache         cache.PageCache
	metrics           *metrics.Metrics
	logger            *zap.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	commentRepo repositories.CommentRepository,
	groupRepo repositories.GroupRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	images storage.ImageStore,
	pageCache cache.PageCache,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		commentRepository: commentRepo,
		groupRepository:   groupRepo,
		userRepository:    userRepo,
		followRepository:  followRepo,
		imageStore:        images,
		pageCache:         pageCache,
		metrics:           m,
		logger:            logger,
	}
}

// RegisterPostRoutes registers post-related routes. loginRequired guards the authoring routes.
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, loginRequired echo.MiddlewareFunc) {
	g.GET("/", h.Index)
	g.GET("/group/:slug/", h.GroupPosts)
	g.GET("/profile/:username/", h.Profile)
	g.GET("/posts/:id/", h.PostDetail)

	g.GET("/create/", h.CreatePostForm, loginRequired)
	g.POST("/create/", h.CreatePost, loginRequired)
	g.GET("/posts/:id/edit/", h.EditPostForm, loginRequired)
	g.POST("/posts/:id/edit/", h.EditPost, loginRequired)
}

// Index lists all posts. Rendered pages are cached briefly per page and viewer.
func (h *PostHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()
	rawPage := c.QueryParam("page")

	var viewerID uint
	if user := middleware.CurrentUser(c); user != nil {
		viewerID = user.ID
	}
	key := cache.IndexKey(rawPage, viewerID)

	body, hit, err := h.pageCache.Get(ctx, key)
	if err != nil {
		h.logger.Warn("Index cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return c.HTMLBlob(http.StatusOK, body)
	}

	page, err := listPosts(ctx, h.postRepository, repositories.PostFilter{}, rawPage)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := c.Echo().Renderer.Render(&buf, "posts/index.html", withUser(c, echo.Map{"Page": page}), c); err != nil {
		return err
	}
	if err := h.pageCache.Set(ctx, key, buf.Bytes()); err != nil {
		h.logger.Warn("Index cache write failed", zap.String("key", key), zap.Error(err))
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// GroupPosts lists the posts filed under one group
func (h *PostHandler) GroupPosts(c echo.Context) error {
	ctx := c.Request().Context()

	group, err := h.groupRepository.GetGroupBySlug(ctx, c.Param("slug"))
	if err != nil {
		return notFoundOr(err, "Group not found")
	}

	page, err := listPosts(ctx, h.postRepository, repositories.PostFilter{GroupID: uintPtr(group.ID)}, c.QueryParam("page"))
	if err != nil {
		return err
	}
	return render(c, "posts/group_list.html", echo.Map{"Group": group, "Page": page})
}

// Profile lists one author's posts together with follow state and counters
func (h *PostHandler) Profile(c echo.Context) error {
	ctx := c.Request().Context()

	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "User not found")
	}

	page, err := listPosts(ctx, h.postRepository, repositories.PostFilter{AuthorID: uintPtr(author.ID)}, c.QueryParam("page"))
	if err != nil {
		return err
	}

	following := false
	if user := middleware.CurrentUser(c); user != nil && user.ID != author.ID {
		if following, err = h.followRepository.IsFollowing(ctx, user.ID, author.ID); err != nil {
			return err
		}
	}
	followers, err := h.followRepository.GetFollowersCount(ctx, author.ID)
	if err != nil {
		return err
	}
	followingCount, err := h.followRepository.GetFollowingCount(ctx, author.ID)
	if err != nil {
		return err
	}

	return render(c, "posts/profile.html", echo.Map{
		"Author":         author,
		"Page":           page,
		"PostsCount":     page.Total,
		"Following":      following,
		"FollowersCount": followers,
		"FollowingCount": followingCount,
	})
}

// PostDetail shows one post with its comments
func (h *PostHandler) PostDetail(c echo.Context) error {
	post, err := loadPost(c, h.postRepository)
	if err != nil {
		return err
	}
	return h.renderDetail(c, post, forms.NewView(nil, nil))
}

func (h *PostHandler) renderDetail(c echo.Context, post *models.Post, form forms.View) error {
	ctx := c.Request().Context()

	comments, err := h.commentRepository.GetCommentsByPostID(ctx, post.ID)
	if err != nil {
		return err
	}
	count, err := h.postRepository.CountPosts(ctx, repositories.PostFilter{AuthorID: uintPtr(post.AuthorID)})
	if err != nil {
		return err
	}
	return render(c, "posts/post_detail.html", echo.Map{
		"Post":       post,
		"Comments":   comments,
		"PostsCount": count,
		"Form":       form,
	})
}

// CreatePostForm shows an empty post form
func (h *PostHandler) CreatePostForm(c echo.Context) error {
	return h.renderPostForm(c, nil, forms.NewView(nil, nil))
}

// CreatePost publishes a new post and redirects to the author's profile
func (h *PostHandler) CreatePost(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	in, err := bindPostInput(c)
	if err != nil {
		return err
	}
	data, errs := h.validatePost(ctx, in)
	if len(errs) == 0 {
		var key string
		key, errs = h.storeImage(ctx, data.Image)
		if len(errs) == 0 {
			post := &models.Post{
				Text:     data.Text,
				AuthorID: user.ID,
				GroupID:  data.GroupID,
				Image:    key,
			}
			if err := h.postRepository.CreatePost(ctx, post); err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			h.metrics.PostsCreated.Inc()
			h.logger.Info("Post created", zap.Uint("postID", post.ID), zap.Uint("authorID", user.ID))
			return c.Redirect(http.StatusFound, profileURL(user.Username))
		}
	}
	return h.renderPostForm(c, nil, forms.NewView(postValues(in), errs))
}

// EditPostForm shows the post form filled with the current post
func (h *PostHandler) EditPostForm(c echo.Context) error {
	post, err := loadPost(c, h.postRepository)
	if err != nil {
		return err
	}
	if !isAuthor(c, post) {
		return c.Redirect(http.StatusFound, postDetailURL(post.ID))
	}

	values := map[string]string{"text": post.Text}
	if post.GroupID != nil {
		values["group"] = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return h.renderPostForm(c, post, forms.NewView(values, nil))
}

// EditPost saves the author's changes and redirects to the post
func (h *PostHandler) EditPost(c echo.Context) error {
	ctx := c.Request().Context()

	post, err := loadPost(c, h.postRepository)
	if err != nil {
		return err
	}
	if !isAuthor(c, post) {
		return c.Redirect(http.StatusFound, postDetailURL(post.ID))
	}

	in, err := bindPostInput(c)
	if err != nil {
		return err
	}
	data, errs := h.validatePost(ctx, in)
	if len(errs) == 0 {
		var key string
		key, errs = h.storeImage(ctx, data.Image)
		if len(errs) == 0 {
			post.Text = data.Text
			post.GroupID = data.GroupID
			if key != "" {
				post.Image = key
			}
			if err := h.postRepository.UpdatePost(ctx, post); err != nil {
				return notFoundOr(err, "Post not found")
			}
			h.logger.Info("Post edited", zap.Uint("postID", post.ID))
			return c.Redirect(http.StatusFound, postDetailURL(post.ID))
		}
	}
	return h.renderPostForm(c, post, forms.NewView(postValues(in), errs))
}

// isAuthor reports whether the signed-in user wrote post. Only authors may edit.
func isAuthor(c echo.Context, post *models.Post) bool {
	user := middleware.CurrentUser(c)
	return user != nil && user.ID == post.AuthorID
}

func (h *PostHandler) renderPostForm(c echo.Context, post *models.Post, form forms.View) error {
	groups, err := h.groupRepository.GetGroups(c.Request().Context())
	if err != nil {
		return err
	}
	return render(c, "posts/create_post.html", echo.Map{
		"Form":   form,
		"Groups": groups,
		"IsEdit": post != nil,
		"Post":   post,
	})
}

// validatePost runs form validation, then checks the chosen group exists.
func (h *PostHandler) validatePost(ctx context.Context, in forms.PostInput) (forms.PostData, []forms.FieldError) {
	res := forms.ValidatePost(in)
	if !res.Valid() {
		return res.Value, res.Errors
	}
	if res.Value.GroupID != nil {
		if _, err := h.groupRepository.GetGroupByID(ctx, *res.Value.GroupID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return res.Value, []forms.FieldError{{Field: "group", Message: "Select a valid choice."}}
			}
			return res.Value, []forms.FieldError{{Field: "__all__", Message: "Could not verify the group, try again."}}
		}
	}
	return res.Value, nil
}

// storeImage saves an accepted upload and returns its storage key. A nil upload stores nothing.
func (h *PostHandler) storeImage(ctx context.Context, upload *forms.ImageUpload) (string, []forms.FieldError) {
	if upload == nil {
		return "", nil
	}

	f, err := upload.Header.Open()
	if err != nil {
		return "", []forms.FieldError{{Field: "image", Message: "Could not read the uploaded file."}}
	}
	defer f.Close()

	key, err := h.imageStore.Save(ctx, upload.Filename, upload.ContentType, f)
	if err != nil {
		if errors.Is(err, storage.ErrStorageDisabled) {
			return "", []forms.FieldError{{Field: "image", Message: "Image uploads are not available."}}
		}
		h.logger.Error("Image upload failed", zap.String("filename", upload.Filename), zap.Error(err))
		return "", []forms.FieldError{{Field: "image", Message: "Could not store the image, try again."}}
	}
	return key, nil
}

// bindPostInput reads the post form fields and the optional image file.
func bindPostInput(c echo.Context) (forms.PostInput, error) {
	in := forms.PostInput{
		Text:  c.FormValue("text"),
		Group: c.FormValue("group"),
	}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		in.Image = fh
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return in, echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	return in, nil
}

func postValues(in forms.PostInput) map[string]string {
	return map[string]string{"text": in.Text, "group": in.Group}
}
