package main

import (
	"errors"
	"mime/multipart"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"simcheck/internal/app"
	"simcheck/internal/documents"
	"simcheck/internal/httputil"
	"simcheck/internal/store"
)

// multipartOverhead leaves room for form fields and part headers on top of the file limit.
const multipartOverhead = 1 << 20

type documentView struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Filename    string               `json:"filename,omitempty"`
	ContentType string               `json:"content_type,omitempty"`
	Size        int64                `json:"size,omitempty"`
	UploadedAt  time.Time            `json:"uploaded_at"`
	Status      store.DocumentStatus `json:"status"`
}

func toDocumentView(d store.Document, detailed bool) documentView {
	v := documentView{ID: d.ID, Title: d.Title, UploadedAt: d.UploadedAt, Status: d.Status}
	if detailed {
		v.Filename, v.ContentType, v.Size = d.Filename, d.ContentType, d.Size
	}
	return v
}

func parseMultipart(deps app.Deps, w http.ResponseWriter, r *http.Request, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Fail(deps.Log, w, "upload too large", err, http.StatusRequestEntityTooLarge)
			return false
		}
		httputil.Fail(deps.Log, w, "invalid multipart form", err, http.StatusBadRequest)
		return false
	}
	return true
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseMultipart(deps, w, r, deps.Config.MaxUploadSize+multipartOverhead) {
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		doc, err := deps.Uploader.Register(r.Context(), documents.FileInput{
			Filename: header.Filename,
			Title:    r.FormValue("title"),
			OwnerID:  owner(r),
			Size:     header.Size,
			Body:     file,
		})
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"status":      "success",
			"document_id": doc.ID,
			"title":       doc.Title,
		})
	}
}

type batchItem struct {
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

func batchUploadHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseMultipart(deps, w, r, 16*(deps.Config.MaxUploadSize+multipartOverhead)) {
			return
		}
		var headers []*multipart.FileHeader
		if r.MultipartForm != nil {
			headers = r.MultipartForm.File["files"]
		}
		if len(headers) == 0 {
			httputil.Fail(deps.Log, w, "at least one file is required", nil, http.StatusBadRequest)
			return
		}

		inputs := make([]documents.FileInput, len(headers))
		openErrs := make([]error, len(headers))
		for i, h := range headers {
			inputs[i] = documents.FileInput{Filename: h.Filename, OwnerID: owner(r), Size: h.Size}
			f, err := h.Open()
			if err != nil {
				openErrs[i] = err
				continue
			}
			defer f.Close()
			inputs[i].Body = f
		}

		outcomes := deps.Uploader.RegisterBatch(r.Context(), inputs)
		items := make([]batchItem, len(outcomes))
		succeeded := 0
		for i, o := range outcomes {
			item := batchItem{Filename: o.Filename, Status: "success"}
			err := o.Err
			if openErrs[i] != nil {
				err = openErrs[i]
			}
			if err != nil {
				item.Status = "error"
				item.Error = err.Error()
			} else {
				item.DocumentID = o.Document.ID
				succeeded++
			}
			items[i] = item
		}

		status := "success"
		switch {
		case succeeded == 0:
			status = "error"
		case succeeded < len(items):
			status = "partial"
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": status, "results": items})
	}
}

func listDocumentsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := owner(r)
		docs, err := deps.Documents.List(r.Context(), documents.ListFilter{OwnerID: &scope})
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		// Newest first for display.
		slices.Reverse(docs)
		out := make([]documentView, len(docs))
		for i, d := range docs {
			out[i] = toDocumentView(d, false)
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "documents": out})
	}
}

func getDocumentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := deps.Documents.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "document": toDocumentView(doc, true)})
	}
}

type renameRequest struct {
	Title string `json:"title" validate:"required"`
}

func renameDocumentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		doc, err := deps.Documents.Rename(r.Context(), chi.URLParam(r, "id"), req.Title)
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "document": toDocumentView(doc, true)})
	}
}

func deleteDocumentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "document deleted"})
	}
}
