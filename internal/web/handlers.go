package web

import (
	"net/http"
	"strconv"

	"github.com/MrCreosote/contigfilter/internal/errors"
	"github.com/MrCreosote/contigfilter/internal/ops"
)

// Handlers contains HTTP route handlers for the report viewer.
type Handlers struct {
	store    ops.ReportStore
	build    ops.BuildInfo
	renderer *Renderer
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, ops.Status(h.build))
}

// HandleReports handles GET /reports, newest first.
func (h *Handlers) HandleReports(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListReports(r.Context(), h.store, ops.ListReportsInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "reports", ReportsPageData{
		PageData: PageData{
			Title:   "Reports",
			Version: h.renderer.version,
		},
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleReport handles GET /reports/{ref...}. The reference contains slashes.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	if ref == "" {
		h.renderer.renderError(w, r, errors.NewInvalidParameter("ref", "report reference is required"))
		return
	}

	report, err := ops.GetReport(r.Context(), h.store, ref)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, report)
		return
	}

	h.renderer.renderPage(w, "report", ReportPageData{
		PageData: PageData{
			Title:   report.Name,
			Version: h.renderer.version,
		},
		Report:       report,
		RenderedHTML: renderMarkdown(report.Markdown()),
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
