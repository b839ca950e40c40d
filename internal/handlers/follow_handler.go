package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FollowHandler handles follow/unfollow requests and the followed-authors feed
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	postRepository   repositories.PostRepository
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, postRepo repositories.PostRepository, m *metrics.Metrics, logger *zap.Logger) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		postRepository:   postRepo,
		metrics:          m,
		logger:           logger,
	}
}

// RegisterFollowRoutes registers follow-related routes. All of them need a signed-in user.
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, loginRequired echo.MiddlewareFunc) {
	g.GET("/follow/", h.FollowIndex, loginRequired)
	g.GET("/profile/:username/follow/", h.FollowUser, loginRequired)
	g.GET("/profile/:username/unfollow/", h.UnfollowUser, loginRequired)
}

// FollowIndex lists posts of the authors the current user follows
func (h *FollowHandler) FollowIndex(c echo.Context) error {
	user := middleware.CurrentUser(c)

	page, err := listPosts(c.Request().Context(), h.postRepository, repositories.PostFilter{FollowerID: uintPtr(user.ID)}, c.QueryParam("page"))
	if err != nil {
		return err
	}
	return render(c, "posts/follow.html", echo.Map{"Page": page})
}

// FollowUser subscribes the current user to the author. Repeating it, or following
// yourself, changes nothing.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "User not found")
	}

	if author.ID != user.ID {
		created, err := h.followRepository.CreateFollow(ctx, &models.Follow{UserID: user.ID, AuthorID: author.ID})
		if err != nil {
			return fmt.Errorf("create follow: %w", err)
		}
		if created {
			h.metrics.FollowsCreated.Inc()
			h.logger.Info("Follow created", zap.Uint("userID", user.ID), zap.Uint("authorID", author.ID))
		}
	}

	return c.Redirect(http.StatusFound, profileURL(author.Username))
}

// UnfollowUser removes the subscription if there is one
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "User not found")
	}

	if err := h.followRepository.DeleteFollow(ctx, user.ID, author.ID); err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}

	return c.Redirect(http.StatusFound, profileURL(author.Username))
}
