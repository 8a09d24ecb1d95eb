package main

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"simcheck/internal/app"
	"simcheck/internal/httputil"
	"simcheck/internal/reports"
	"simcheck/internal/store"
)

type reportView struct {
	Filename    string           `json:"filename"`
	Kind        store.ReportKind `json:"kind"`
	CreatedAt   time.Time        `json:"created_at"`
	Size        int64            `json:"size"`
	ViewRef     string           `json:"view_ref"`
	DownloadRef string           `json:"download_ref"`
}

func listReportsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Reports.List(r.Context(), owner(r))
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		out := make([]reportView, len(list))
		for i, rep := range list {
			view, download := reportRefs(rep.ID)
			out[i] = reportView{
				Filename:    rep.ID,
				Kind:        rep.Kind,
				CreatedAt:   rep.CreatedAt,
				Size:        rep.Size,
				ViewRef:     view,
				DownloadRef: download,
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "reports": out})
	}
}

func viewReportHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := deps.Reports.ResolveView(r.Context(), owner(r), chi.URLParam(r, "filename"))
		streamReport(deps, w, r, h, err)
	}
}

func downloadReportHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := deps.Reports.ResolveDownload(r.Context(), owner(r), chi.URLParam(r, "filename"))
		streamReport(deps, w, r, h, err)
	}
}

func streamReport(deps app.Deps, w http.ResponseWriter, r *http.Request, h reports.Handle, err error) {
	if err != nil {
		httputil.FailErr(deps.Log, w, err)
		return
	}
	rc, err := h.Open(r.Context())
	if err != nil {
		httputil.FailErr(deps.Log, w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", h.Report.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(h.Disposition, map[string]string{"filename": h.Report.ID}))
	w.Header().Set("Content-Length", strconv.FormatInt(h.Report.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		deps.Log.Warn("report stream interrupted", "report", h.Report.ID, "err", err)
	}
}

func deleteReportHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
		if err := deps.Reports.Delete(r.Context(), owner(r), chi.URLParam(r, "filename"), confirmed); err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "report deleted"})
	}
}
