package ourstory

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ourstory/ourstory/imgconv"
	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
)

const maxUploadSize = 10 << 20 // 10MB

// handleTimelineImage stores a new picture for one milestone: the upload
// is fitted inside 1200x800, re-encoded as JPEG, written to the image
// bucket as <id>.jpg and the milestone's imageSrc is pointed at it.
func (a *App) handleTimelineImage(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiError{Error: "No image file provided"})
	}
	if file.Size > maxUploadSize {
		return c.JSON(http.StatusBadRequest, apiError{Error: "File too large (max 10MB)"})
	}

	m, err := a.timeline.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return c.JSON(http.StatusNotFound, apiError{Error: "not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apiError{Error: remote.Message(err)})
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, size, err := imgconv.Process(src, imgconv.DefaultMaxWidth, imgconv.DefaultMaxHeight, imgconv.DefaultQuality)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiError{Error: "Invalid image: " + err.Error()})
	}

	object := id + ".jpg"
	if err := a.Bucket.Upload(ctx, object, bytes.NewReader(data), "image/jpeg"); err != nil {
		a.Logger.Error().Err(err).Str("id", id).Msg("image upload failed")
		return c.JSON(http.StatusInternalServerError, apiError{Error: remote.Message(err)})
	}

	// the object name is reused, so the version busts browser caches
	m.ImageSrc = a.Bucket.PublicURL(object) + "?v=" + strconv.FormatInt(a.now().Unix(), 10)
	m, err = a.timeline.Update(ctx, m)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apiError{Error: remote.Message(err)})
	}
	a.timelineCache.Invalidate()

	a.Logger.Info().
		Str("id", id).
		Str("original", file.Filename).
		Int("width", size.X).
		Int("height", size.Y).
		Int("bytes", len(data)).
		Msg("timeline image stored")
	return c.JSON(http.StatusOK, m)
}
