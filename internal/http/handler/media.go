package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"briefapi/internal/ingest"
	"briefapi/internal/service"
)

// OwnerHeader carries the id of the user performing an upload.
const OwnerHeader = "X-User-ID"

// ListMedia godoc
// @Summary List media
// @Tags media
// @Produce json
// @Param limit query int false "page size" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.MediaListResult
// @Failure 400 {object} errorPayload
// @Router /media [get]
func ListMedia(svc service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// UploadMedia godoc
// @Summary Upload a media file
// @Description Stores the file and its metadata. Videos get a derived thumbnail when possible.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "media file"
// @Param X-User-ID header string false "uploading user"
// @Success 201 {object} model.Media
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /media [post]
func UploadMedia(svc service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		m, err := svc.UploadMedia(c.UserContext(), ingest.UploadRequest{
			Body:        f,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			OwnerID:     c.Get(OwnerHeader),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// GetMedia godoc
// @Summary Get media by id
// @Tags media
// @Produce json
// @Param id path string true "media id (uuid)"
// @Success 200 {object} model.Media
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /media/{id} [get]
func GetMedia(svc service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		m, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(m)
	}
}

// DeleteMedia godoc
// @Summary Delete media by id
// @Description Removes the stored object, then the record. Returns the deleted record.
// @Tags media
// @Produce json
// @Param id path string true "media id (uuid)"
// @Success 200 {object} model.Media
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /media/{id} [delete]
func DeleteMedia(svc service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		m, err := svc.DeleteMedia(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(m)
	}
}
