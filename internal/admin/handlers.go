// ABOUTME: HTTP handlers for admin UI pages.
// ABOUTME: Serves the plugin list with batch selection and the request log viewer.

package admin

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"

	"github.com/2389/pluginadmin/internal/store"
	"github.com/go-chi/chi/v5"
)

// LogSource provides captured API requests for the log viewer.
type LogSource interface {
	GetRequestLogs(q *store.RequestLogQuery) ([]*store.RequestLog, error)
	GetRequestLogStats() (*store.RequestLogStats, error)
}

type Handlers struct {
	repo     Repository
	logs     LogSource
	sessions *Sessions
}

// NewHandlers creates the admin UI. logs may be nil when request logs are
// not available, e.g. when the UI talks to a remote repository.
func NewHandlers(repo Repository, logs LogSource) *Handlers {
	return &Handlers{repo: repo, logs: logs, sessions: NewSessions()}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/plugins", http.StatusFound)
		})
		r.Get("/plugins", h.pluginList)
		r.Post("/plugins/delete", h.deleteSelected)
		r.Post("/plugins/clear", h.clearSelection)
		r.Get("/plugins/new", h.newPlugin)
		r.Post("/plugins/{name}/toggle", h.toggle)
		r.Get("/plugins/{name}/edit", h.editPlugin)
		r.Get("/edit/{id}", h.editView)
		r.Post("/edit/{id}", h.editSubmit)
		r.Get("/logs", h.logsList)
	})
}

// nameParam returns the decoded {name} parameter. chi matches on RawPath
// when the request has one, which leaves the parameter escaped.
func nameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}

// page carries the banner fields the layout renders on every page.
type page struct {
	Error  string
	Notice string
}

type pluginRow struct {
	Name       string
	PathName   string
	URL        string
	Parameters []string
	Selected   bool
}

type listPage struct {
	page
	Plugins    []pluginRow
	Affordance string
	Selected   int
}

func (h *Handlers) pluginList(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, http.StatusOK, "")
}

// renderList shows every plugin with its selection state. The ledger is
// pruned against the freshly loaded collection first.
func (h *Handlers) renderList(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	sess := h.sessions.get(w, r)
	plugins, err := h.repo.List(r.Context())
	if err != nil {
		log.Printf("Failed to list plugins: %v", err)
		http.Error(w, "Failed to list plugins: "+err.Error(), http.StatusBadGateway)
		return
	}

	sess.mu.Lock()
	sess.ledger.Prune(plugins)
	data := listPage{
		page:       page{Error: errMsg},
		Affordance: string(sess.ledger.Affordance()),
		Selected:   sess.ledger.Len(),
	}
	for _, p := range plugins {
		row := pluginRow{
			Name:     p.Name,
			PathName: url.PathEscape(p.Name),
			URL:      p.URL,
			Selected: sess.ledger.Has(p.Key()),
		}
		for _, wp := range p.Parameters {
			row.Parameters = append(row.Parameters, wireSummary(wp))
		}
		data.Plugins = append(data.Plugins, row)
	}
	sess.mu.Unlock()

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	if err := renderPage(w, "plugin-list", data); err != nil {
		log.Printf("Failed to render plugin list: %v", err)
	}
}

func (h *Handlers) toggle(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		http.Error(w, "Invalid plugin name", http.StatusBadRequest)
		return
	}
	sess := h.sessions.get(w, r)
	sess.mu.Lock()
	sess.ledger.Toggle(name)
	sess.mu.Unlock()
	http.Redirect(w, r, "/admin/plugins", http.StatusSeeOther)
}

func (h *Handlers) clearSelection(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.get(w, r)
	sess.mu.Lock()
	sess.ledger.Clear()
	sess.mu.Unlock()
	http.Redirect(w, r, "/admin/plugins", http.StatusSeeOther)
}

// deleteSelected removes every selected plugin in one batch. On failure the
// selection is kept and the list is shown again with the error.
func (h *Handlers) deleteSelected(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.get(w, r)
	plugins, err := h.repo.List(r.Context())
	if err != nil {
		http.Error(w, "Failed to list plugins: "+err.Error(), http.StatusBadGateway)
		return
	}

	sess.mu.Lock()
	n := sess.ledger.Len()
	_, err = sess.ledger.DeleteSelected(r.Context(), h.repo, plugins)
	sess.mu.Unlock()
	if err != nil {
		log.Printf("Failed to delete plugins: %v", err)
		h.renderList(w, r, http.StatusBadGateway, "Delete failed: "+err.Error())
		return
	}
	if n > 0 {
		log.Printf("Deleted %d plugins from admin UI", n)
	}
	http.Redirect(w, r, "/admin/plugins", http.StatusSeeOther)
}

type logsPage struct {
	page
	Logs           []*store.RequestLog
	Stats          *store.RequestLogStats
	SelectedPlugin string
	ErrorsOnly     bool
}

func (h *Handlers) logsList(w http.ResponseWriter, r *http.Request) {
	data := logsPage{
		SelectedPlugin: r.URL.Query().Get("plugin"),
		ErrorsOnly:     r.URL.Query().Get("errors") != "",
	}

	if h.logs == nil {
		data.Notice = "Request logs are only recorded by a local server"
	} else {
		logs, err := h.logs.GetRequestLogs(&store.RequestLogQuery{
			Limit:      100,
			PluginName: data.SelectedPlugin,
			ErrorsOnly: data.ErrorsOnly,
		})
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		// Pretty-print JSON in request/response bodies
		for _, l := range logs {
			l.RequestBody = prettyJSON(l.RequestBody)
			l.ResponseBody = prettyJSON(l.ResponseBody)
		}
		data.Logs = logs

		stats, err := h.logs.GetRequestLogStats()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		data.Stats = stats
	}

	w.Header().Set("Content-Type", "text/html")
	if err := renderPage(w, "logs-list", data); err != nil {
		log.Printf("Failed to render logs: %v", err)
	}
}

// prettyJSON formats JSON with indentation, or returns original string if not valid JSON
func prettyJSON(s string) string {
	if s == "" {
		return s
	}
	var obj any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return s
	}
	formatted, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return s
	}
	return string(formatted)
}
