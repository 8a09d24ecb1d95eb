package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"simcheck/internal/app"
	"simcheck/internal/httputil"
)

const ownerHeader = "X-Owner-ID"

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := httputil.Serve(ctx, deps, "gateway", newRouter(deps)); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)

	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/upload", uploadHandler(deps))
		r.Post("/batch", batchUploadHandler(deps))
		r.Get("/", listDocumentsHandler(deps))
		r.Get("/{id}", getDocumentHandler(deps))
		r.Patch("/{id}", renameDocumentHandler(deps))
		r.Delete("/{id}", deleteDocumentHandler(deps))
	})

	r.Post("/api/compare", compareHandler(deps))
	r.Post("/api/web-check", webCheckHandler(deps))
	r.Get("/api/jobs/comparison/{id}", comparisonJobHandler(deps))
	r.Get("/api/jobs/web/{id}", webJobHandler(deps))
	r.Post("/api/results", resultsHandler(deps))

	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/", listReportsHandler(deps))
		r.Get("/{filename}", viewReportHandler(deps))
		r.Get("/{filename}/download", downloadReportHandler(deps))
		r.Delete("/{filename}", deleteReportHandler(deps))
	})

	r.Get("/healthz", httputil.HealthHandler(deps))
	return r
}

// owner returns the caller's scope; an absent header is the anonymous scope.
func owner(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ownerHeader))
}

func reportRefs(ref string) (view, download string) {
	if ref == "" {
		return "", ""
	}
	return "/api/reports/" + ref, "/api/reports/" + ref + "/download"
}
