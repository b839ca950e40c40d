package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/yatube/backend/internal/forms"
	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	metrics           *metrics.Metrics
	logger            *zap.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, m *metrics.Metrics, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		metrics:           m,
		logger:            logger,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, loginRequired echo.MiddlewareFunc) {
	g.POST("/posts/:id/comment/", h.AddComment, loginRequired)
}

// AddComment appends a comment to a post and returns to the post page.
// Blank comments are dropped without an error page.
func (h *CommentHandler) AddComment(c echo.Context) error {
	ctx := c.Request().Context()

	post, err := loadPost(c, h.postRepository)
	if err != nil {
		return err
	}

	res := forms.ValidateComment(forms.CommentInput{Text: c.FormValue("text")})
	if res.Valid() {
		comment := &models.Comment{
			PostID:   post.ID,
			AuthorID: middleware.CurrentUser(c).ID,
			Text:     res.Value,
		}
		if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		h.metrics.CommentsCreated.Inc()
		h.logger.Info("Comment added", zap.Uint("postID", post.ID), zap.Uint("commentID", comment.ID))
	}

	return c.Redirect(http.StatusFound, postDetailURL(post.ID))
}
