package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/search"
	"docvault/internal/service"
)

// Handler bundles the document use cases behind HTTP endpoints.
type Handler struct {
	docs   service.DocumentService
	search service.SearchService
}

// New constructs the HTTP handler set.
func New(docs service.DocumentService, searchSvc service.SearchService) *Handler {
	return &Handler{docs: docs, search: searchSvc}
}

func principal(c *fiber.Ctx) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return model.Principal{}, fiber.ErrUnauthorized
	}
	return p, nil
}

func docID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid id format")
	}
	return id, nil
}

// UploadDocument accepts a multipart upload (field name: file) with
// optional category_id and repeated tags fields.
func (h *Handler) UploadDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	defer f.Close()

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}

	in := service.UploadInput{
		Filename:    fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
	}
	if v := c.FormValue("category_id"); v != "" {
		in.CategoryID = &v
	}
	if form, err := c.MultipartForm(); err == nil {
		in.Tags = form.Value["tags"]
	}

	doc, err := h.docs.Upload(c.UserContext(), p, f, in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *Handler) GetDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	doc, err := h.docs.Get(c.UserContext(), p, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

type updateDocumentRequest struct {
	Name          *string   `json:"name"`
	CategoryID    *string   `json:"category_id"`
	ClearCategory bool      `json:"clear_category"`
	Tags          *[]string `json:"tags"`
	IsFavorite    *bool     `json:"is_favorite"`
}

func (h *Handler) UpdateDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	var req updateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
	}

	doc, err := h.docs.Update(c.UserContext(), p, id, service.UpdateInput{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		Tags:          req.Tags,
		IsFavorite:    req.IsFavorite,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

type shareRequest struct {
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
}

func (h *Handler) ShareDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	var req shareRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
	}

	doc, err := h.docs.Share(c.UserContext(), p, id, model.ShareGrant{
		UserID:     req.UserID,
		Permission: model.Permission(req.Permission),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

func (h *Handler) UnshareDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	doc, err := h.docs.Unshare(c.UserContext(), p, id, c.Params("userId"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

func (h *Handler) TrashDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	doc, err := h.docs.Trash(c.UserContext(), p, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

func (h *Handler) RestoreDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	doc, err := h.docs.Restore(c.UserContext(), p, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

func (h *Handler) PurgeDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	if err := h.docs.Purge(c.UserContext(), p, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) EmptyTrash(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	purged, err := h.docs.EmptyTrash(c.UserContext(), p)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"purged": purged})
}

func (h *Handler) ListTrash(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	docs, err := h.docs.ListTrash(c.UserContext(), p)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"data": docs, "total": len(docs)})
}

func (h *Handler) ListShared(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	res, err := h.docs.ListShared(c.UserContext(), p, c.QueryInt("limit", 10), c.QueryInt("offset", 0))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(res)
}

func (h *Handler) DownloadDocument(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	url, err := h.docs.Download(c.UserContext(), p, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// SearchDocuments runs a scoped full-text search. Filters arrive as
// flat query parameters; created_after/created_before are unix seconds.
func (h *Handler) SearchDocuments(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	req := service.SearchRequest{
		Query: c.Query("q"),
		Sort:  c.Query("sort"),
		Page:  c.QueryInt("page"),
		Limit: c.QueryInt("limit"),
	}
	for _, field := range []string{"type", "category_id", "is_favorite"} {
		if v := c.Query(field); v != "" {
			req.Filters = append(req.Filters, service.FilterClause{Field: field, Op: search.OpEq, Value: v})
		}
	}
	if v := c.Query("created_after"); v != "" {
		req.Filters = append(req.Filters, service.FilterClause{Field: "created_at", Op: search.OpGte, Value: v})
	}
	if v := c.Query("created_before"); v != "" {
		req.Filters = append(req.Filters, service.FilterClause{Field: "created_at", Op: search.OpLte, Value: v})
	}

	res, err := h.search.Search(c.UserContext(), p, req)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(res)
}
