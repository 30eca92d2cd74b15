package handler

import (
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"doccatalog/internal/model"
	"doccatalog/internal/service"
)

// reconcileResponse is returned by the reconcile endpoint.
type reconcileResponse struct {
	Outcome  service.Outcome `json:"outcome"`
	Document *model.Document `json:"document"`
}

// ListDocuments godoc
// @Summary      List documents
// @Description  Lists the caller's documents, newest upload first.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        limit         query  int     false  "page size (default 10, max 100)"
// @Param        offset        query  int     false  "page offset"
// @Param        file_type     query  string  false  "file type equals"
// @Param        file_type_ne  query  string  false  "file type differs"
// @Param        q             query  string  false  "file name contains (case-insensitive)"
// @Param        min_size      query  int     false  "minimum file size in bytes"
// @Param        max_size      query  int     false  "maximum file size in bytes"
// @Param        since         query  string  false  "uploaded at or after (RFC 3339)"
// @Param        until         query  string  false  "uploaded before (RFC 3339)"
// @Param        owner_id      query  string  false  "owner equals"
// @Param        owner_id_ne   query  string  false  "owner differs"
// @Success      200  {object}  service.DocumentListResult
// @Failure      400  {object}  errorPayload
// @Failure      401  {object}  errorPayload
// @Router       /documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		filter, err := parseFilter(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}

		res, err := docSvc.List(c.UserContext(), service.ListOptions{
			Filter: filter,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ReconcileDocument godoc
// @Summary      Reconcile a locally created document
// @Description  Creates the document identified by localId, or updates it when it already exists.
// @Description  Send new bytes in "file"; omit it (optionally passing "file_url") when the blob did not change.
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        localId    path      string  true   "client-assigned document id"
// @Param        file       formData  file    false  "document content"
// @Param        file_name  formData  string  false  "file name (defaults to the uploaded file's name)"
// @Param        file_type  formData  string  false  "file type (defaults to the file extension)"
// @Param        file_size  formData  int     false  "size in bytes (defaults to the uploaded size)"
// @Param        file_url   formData  string  false  "existing remote reference when no file is sent"
// @Param        metadata   formData  string  false  "JSON object of string, number, boolean or nested object values"
// @Success      200  {object}  reconcileResponse
// @Success      201  {object}  reconcileResponse
// @Failure      400  {object}  errorPayload
// @Failure      401  {object}  errorPayload
// @Failure      409  {object}  errorPayload
// @Failure      503  {object}  errorPayload
// @Router       /documents/local/{localId} [put]
func ReconcileDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		localID, err := url.PathUnescape(c.Params("localId"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "local_id: malformed escape")
		}

		in := model.ReconcileInput{
			LocalID: localID,
			Blob:    model.BlobRef{Size: -1},
			Attrs: model.Attributes{
				FileName: c.FormValue("file_name"),
				FileType: c.FormValue("file_type"),
			},
		}
		if v := c.FormValue("file_size"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "file_size: must be an integer")
			}
			in.Attrs.FileSize = n
		}
		if v := c.FormValue("metadata"); v != "" {
			meta, err := model.ParseMetadata([]byte(v))
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "metadata: "+err.Error())
			}
			in.Attrs.Metadata = meta
		}

		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()

			in.Blob = model.NewBlob(f, fh.Size)
			if in.Attrs.FileName == "" {
				in.Attrs.FileName = fh.Filename
			}
			if in.Attrs.FileType == "" {
				in.Attrs.FileType = strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
			}
			if in.Attrs.FileSize == 0 {
				in.Attrs.FileSize = fh.Size
			}
		} else if u := c.FormValue("file_url"); u != "" {
			in.Blob = model.RemoteBlob(u)
		}

		res, err := docSvc.Reconcile(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}

		status := fiber.StatusOK
		if res.Outcome == service.OutcomeCreated {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(reconcileResponse{Outcome: res.Outcome, Document: res.Document})
	}
}

// GetDocumentByLocalID godoc
// @Summary   Get a document by its client-assigned id
// @Tags      documents
// @Produce   json
// @Security  BearerAuth
// @Param     localId  path  string  true  "client-assigned document id"
// @Success   200  {object}  model.Document
// @Failure   404  {object}  errorPayload
// @Router    /documents/local/{localId} [get]
func GetDocumentByLocalID(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		localID, err := url.PathUnescape(c.Params("localId"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "local_id: malformed escape")
		}
		doc, err := docSvc.GetByLocalID(c.UserContext(), localID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// GetDocument godoc
// @Summary   Get a document
// @Tags      documents
// @Produce   json
// @Security  BearerAuth
// @Param     id  path  string  true  "document id (UUID)"
// @Success   200  {object}  model.Document
// @Failure   400  {object}  errorPayload
// @Failure   404  {object}  errorPayload
// @Router    /documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument godoc
// @Summary   Download a document
// @Description Redirects to a time-limited URL for the document's bytes.
// @Tags      documents
// @Security  BearerAuth
// @Param     id  path  string  true  "document id (UUID)"
// @Success   302
// @Failure   404  {object}  errorPayload
// @Failure   503  {object}  errorPayload
// @Router    /documents/{id}/download [get]
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := docSvc.DownloadURL(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Redirect(u, fiber.StatusFound)
	}
}

// DeleteDocument godoc
// @Summary   Delete a document
// @Tags      documents
// @Security  BearerAuth
// @Param     id  path  string  true  "document id (UUID)"
// @Success   204
// @Failure   400  {object}  errorPayload
// @Failure   404  {object}  errorPayload
// @Router    /documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
