package uploads

import (
	"context"
	"io"
	"mime/multipart"

	uploadsvc "estate-backend/internal/application/uploads"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Uploader stores images.
type Uploader interface {
	UploadAll(ctx context.Context, files []uploadsvc.File, progress uploadsvc.Progress) ([]uploadsvc.Uploaded, error)
}

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service Uploader
}

var errorTable = map[error]response.Rule{
	uploadsvc.ErrNotImage:    {Status: fiber.StatusBadRequest, Code: "NOT_AN_IMAGE"},
	uploadsvc.ErrTooLarge:    {Status: fiber.StatusRequestEntityTooLarge, Code: "FILE_TOO_LARGE"},
	uploadsvc.ErrInvalidKind: {Status: fiber.StatusBadRequest, Code: "INVALID_KIND"},
	uploadsvc.ErrNoFiles:     {Status: fiber.StatusBadRequest, Code: "NO_FILES"},
	uploadsvc.ErrEmptyFile:   {Status: fiber.StatusBadRequest, Code: "EMPTY_FILE"},
}

// ErrorTable exposes the upload reason codes to handlers that accept images.
func ErrorTable() map[error]response.Rule {
	return errorTable
}

// FilesFromForm turns the "main" and "detail" parts of a multipart form into upload files,
// main first.
func FilesFromForm(form *multipart.Form) []uploadsvc.File {
	if form == nil {
		return nil
	}
	var out []uploadsvc.File
	for _, kind := range []string{uploadsvc.KindMain, uploadsvc.KindDetail} {
		for _, fh := range form.File[kind] {
			fh := fh
			out = append(out, uploadsvc.File{
				Kind:        kind,
				Name:        fh.Filename,
				ContentType: fh.Header.Get(fiber.HeaderContentType),
				Size:        fh.Size,
				Open:        func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}
	return out
}

// Upload POST /api/console/uploads
// Multipart parts "main" and "detail"; the response keeps that order.
func (h *Handlers) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "Expected a multipart form", nil)
	}
	res, err := h.Service.UploadAll(c.UserContext(), FilesFromForm(form), nil)
	if err != nil {
		if rerr := response.FromError(c, err, errorTable); rerr != err {
			return rerr
		}
		log.Error().Err(err).Msg("upload: failed to store images")
		return response.Error(c, fiber.StatusBadGateway, "STORAGE_FAILED", "Failed to store images", nil)
	}
	return response.SuccessCreated(c, "Images uploaded", res)
}
