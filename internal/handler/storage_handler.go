package handler

import (
	"bytes"
	"path/filepath"
	"strings"

	"go-dispatch-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StorageHandler struct {
	storage service.StorageService
}

func NewStorageHandler(storage service.StorageService) *StorageHandler {
	return &StorageHandler{storage: storage}
}

// Upload stores the raw request body as an object.
// POST /storage/v1/object/:bucket/:name
func (h *StorageHandler) Upload(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Empty body"})
	}
	url, err := h.storage.Upload(c.Params("bucket"), c.Params("name"), bytes.NewReader(body))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"publicUrl": url})
}

// GET /storage/v1/object/public/:bucket/:name
func (h *StorageHandler) Download(c *fiber.Ctx) error {
	f, err := h.storage.Open(c.Params("bucket"), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return respondError(c, err)
	}
	ext := strings.TrimPrefix(filepath.Ext(c.Params("name")), ".")
	if ext == "" {
		ext = "bin"
	}
	c.Type(ext)
	// fasthttp closes the file once the body is written
	return c.SendStream(f, int(info.Size()))
}
