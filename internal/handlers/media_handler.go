package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/yatube/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// MediaHandler streams uploaded images
type MediaHandler struct {
	imageStore storage.ImageStore
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(images storage.ImageStore) *MediaHandler {
	return &MediaHandler{imageStore: images}
}

// RegisterMediaRoutes registers the media route
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.GET("/media/posts/:name", h.ServeImage)
}

// ServeImage writes the stored image named by the path
func (h *MediaHandler) ServeImage(c echo.Context) error {
	img, err := h.imageStore.Open(c.Request().Context(), storage.KeyPrefix+c.Param("name"))
	if err != nil {
		if errors.Is(err, storage.ErrImageNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Image not found")
		}
		return err
	}
	defer img.Close()

	header := c.Response().Header()
	header.Set("Cache-Control", "public, max-age=86400")
	if img.Size > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(img.Size, 10))
	}
	return c.Stream(http.StatusOK, img.ContentType, img)
}
