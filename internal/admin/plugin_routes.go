// ABOUTME: Admin editor pages that drive a RecordEditor per open form.
// ABOUTME: Applies submitted form fields, runs row actions and reports save outcomes.

package admin

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/2389/pluginadmin/internal/editor"
	"github.com/2389/pluginadmin/internal/importer"
	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/schema"
	"github.com/go-chi/chi/v5"
)

const maxUploadSize = 1 << 20

const editorGone = "This editor is no longer open; unsaved changes were discarded"

type editRow struct {
	ID             record.RowID
	Key            string
	Mandatory      bool
	ReadOnly       bool
	TypeSelect     template.HTML
	DefaultControl template.HTML
	Errors         []string
}

type editPage struct {
	page
	ID          string
	Update      bool
	Name        string
	URL         string
	State       string
	Rows        []editRow
	FieldErrors map[string]string

	rowErrors map[record.RowID][]string
}

// newPlugin opens a create-mode editor.
func (h *Handlers) newPlugin(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.get(w, r)
	id := sess.open(editor.New(h.repo))
	http.Redirect(w, r, "/admin/edit/"+id, http.StatusSeeOther)
}

// editPlugin loads the named plugin into an update-mode editor.
func (h *Handlers) editPlugin(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		http.Error(w, "Invalid plugin name", http.StatusBadRequest)
		return
	}
	ed, err := editor.Load(r.Context(), h.repo, name)
	if errors.Is(err, editor.ErrNotFound) {
		h.renderList(w, r, http.StatusNotFound, fmt.Sprintf("Plugin %s not found", name))
		return
	}
	if err != nil {
		log.Printf("Failed to load plugin %s: %v", name, err)
		http.Error(w, "Failed to load plugin: "+err.Error(), http.StatusBadGateway)
		return
	}
	sess := h.sessions.get(w, r)
	http.Redirect(w, r, "/admin/edit/"+sess.open(ed), http.StatusSeeOther)
}

func (h *Handlers) editView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ed, ok := h.sessions.get(w, r).editor(id)
	if !ok {
		h.renderList(w, r, http.StatusNotFound, editorGone)
		return
	}
	renderEditor(w, http.StatusOK, id, ed, editPage{})
}

// editSubmit applies the posted fields to the working copy and then
// performs the requested action.
func (h *Handlers) editSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := h.sessions.get(w, r)
	ed, ok := sess.editor(id)
	if !ok {
		h.renderList(w, r, http.StatusNotFound, editorGone)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	var data editPage
	action := r.FormValue("action")
	if action != "cancel" {
		notices, err := applyForm(ed, r)
		if errors.Is(err, editor.ErrBusy) {
			data.Error = "A save is already in progress"
			renderEditor(w, http.StatusConflict, id, ed, data)
			return
		}
		if err != nil {
			data.Error = err.Error()
			renderEditor(w, http.StatusBadRequest, id, ed, data)
			return
		}
		data.Notice = strings.Join(notices, " ")
	}

	verb, arg, _ := strings.Cut(action, ":")
	switch verb {
	case "save":
		saved, err := ed.Save(r.Context())
		var verr *record.ValidationError
		switch {
		case err == nil:
			sess.close(id)
			log.Printf("Saved plugin %s from admin UI", saved.Name)
			http.Redirect(w, r, "/admin/plugins", http.StatusSeeOther)
			return
		case errors.As(err, &verr):
			data.Error = "Please fix the highlighted fields"
			renderEditor(w, http.StatusUnprocessableEntity, id, ed, withViolations(data, verr))
			return
		case errors.Is(err, editor.ErrBusy):
			data.Error = "A save is already in progress"
			renderEditor(w, http.StatusConflict, id, ed, data)
			return
		default:
			data.Error = err.Error()
			renderEditor(w, http.StatusBadGateway, id, ed, data)
			return
		}
	case "cancel":
		sess.close(id)
		http.Redirect(w, r, "/admin/plugins", http.StatusSeeOther)
		return
	case "add":
		if _, err := ed.AddParameter(); err != nil {
			data.Error = err.Error()
		}
	case "remove", "up", "down":
		row, err := parseRowID(arg)
		if err != nil {
			http.Error(w, "Invalid row", http.StatusBadRequest)
			return
		}
		if err := rowAction(ed, verb, row); err != nil {
			data.Error = err.Error()
		}
	case "import":
		n, err := importUpload(ed, r)
		if err != nil {
			data.Error = "Import failed: " + err.Error()
			renderEditor(w, http.StatusBadRequest, id, ed, data)
			return
		}
		data.Notice = strings.TrimSpace(data.Notice + fmt.Sprintf(" Imported %d parameters.", n))
	}
	renderEditor(w, http.StatusOK, id, ed, data)
}

// applyForm copies changed fields from the form into the editor. Rows not
// present in the form are left untouched. Soft coercion failures come back
// as notices.
func applyForm(ed *editor.Editor, r *http.Request) ([]string, error) {
	if ed.State() == editor.StateSubmitting {
		return nil, editor.ErrBusy
	}
	var notices []string
	rec := ed.Record()

	if _, ok := r.Form["plugin_name"]; ok && rec.Mode() == record.ModeCreate && r.FormValue("plugin_name") != rec.Name {
		if err := ed.SetName(r.FormValue("plugin_name")); err != nil {
			return nil, err
		}
	}
	if _, ok := r.Form["plugin_url"]; ok && r.FormValue("plugin_url") != rec.URL {
		if err := ed.SetURL(r.FormValue("plugin_url")); err != nil {
			return nil, err
		}
	}

	for _, row := range rec.Rows() {
		id := row.ID.String()
		if _, ok := r.Form["key_"+id]; !ok {
			continue
		}
		p := row.Parameter

		if key := r.FormValue("key_" + id); key != p.Key {
			if err := ed.SetKey(row.ID, key); err != nil {
				return nil, err
			}
		}
		if v := r.FormValue("mandatory_"+id) != ""; v != p.Mandatory {
			if err := ed.SetMandatory(row.ID, v); err != nil {
				return nil, err
			}
		}
		if v := r.FormValue("read_only_"+id) != ""; v != p.ReadOnly {
			if err := ed.SetReadOnly(row.ID, v); err != nil {
				return nil, err
			}
		}

		// A type change resets the default; the posted default belonged to
		// the old control.
		if t := schema.Type(r.FormValue("type_" + id)); t != "" && t != p.Type {
			if err := ed.OnTypeChange(row.ID, t); err != nil {
				if errors.Is(err, schema.ErrUnknownType) {
					notices = append(notices, fmt.Sprintf("Unknown type %q ignored.", t))
					continue
				}
				return nil, err
			}
			continue
		}

		n, err := applyDefault(ed, row.ID, p, r.FormValue("default_"+id), r.FormValue("nodefault_"+id) != "")
		if err != nil {
			return nil, err
		}
		notices = append(notices, n...)
	}
	return notices, nil
}

func applyDefault(ed *editor.Editor, id record.RowID, p schema.Parameter, raw string, noDefault bool) ([]string, error) {
	e := p.Editor()
	var unset bool
	if e.Control == schema.ControlText {
		unset = noDefault && raw == ""
	} else {
		unset = strings.TrimSpace(raw) == ""
	}

	if unset {
		if !e.Set {
			return nil, nil
		}
		return nil, ed.ClearDefault(id)
	}
	if e.Set && raw == e.Value {
		return nil, nil
	}

	err := ed.SetDefault(id, raw)
	if errors.Is(err, schema.ErrCoercionEmpty) {
		label := p.Key
		if label == "" {
			label = "new parameter"
		}
		return []string{fmt.Sprintf("Default for %s is not a whole number and was left unset.", label)}, nil
	}
	return nil, err
}

func rowAction(ed *editor.Editor, verb string, row record.RowID) error {
	if verb == "remove" {
		return ed.RemoveParameter(row)
	}
	pos := -1
	for i, r := range ed.Record().Rows() {
		if r.ID == row {
			pos = i
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: %s", editor.ErrUnknownRow, row)
	}
	if verb == "up" {
		pos--
	} else {
		pos++
	}
	return ed.MoveParameter(row, pos)
}

func importUpload(ed *editor.Editor, r *http.Request) (int, error) {
	file, header, err := r.FormFile("params_file")
	if err != nil {
		return 0, fmt.Errorf("no parameter file uploaded")
	}
	defer file.Close()

	format, err := importer.FormatFor(header.Filename)
	if err != nil {
		return 0, err
	}
	params, err := importer.Read(file, format)
	if err != nil {
		return 0, err
	}
	ids, err := ed.ImportParameters(params)
	return len(ids), err
}

func parseRowID(s string) (record.RowID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	return record.RowID(n), err
}

// withViolations attaches record-level violations to their fields and row
// violations to their rows.
func withViolations(data editPage, verr *record.ValidationError) editPage {
	data.FieldErrors = make(map[string]string)
	data.rowErrors = make(map[record.RowID][]string)
	for _, v := range verr.Violations {
		if v.Index < 0 {
			data.FieldErrors[v.Field] = v.Message()
			continue
		}
		data.rowErrors[v.Row] = append(data.rowErrors[v.Row], v.Message())
	}
	return data
}

func renderEditor(w http.ResponseWriter, status int, id string, ed *editor.Editor, data editPage) {
	rec := ed.Record()
	data.ID = id
	data.Update = rec.Mode() == record.ModeUpdate
	data.Name = rec.EffectiveName()
	data.URL = rec.URL
	data.State = ed.State().String()

	for _, row := range rec.Rows() {
		er := editRow{
			ID:             row.ID,
			Key:            row.Parameter.Key,
			Mandatory:      row.Parameter.Mandatory,
			ReadOnly:       row.Parameter.ReadOnly,
			TypeSelect:     RenderTypeSelect(row.ID, row.Parameter.Type),
			DefaultControl: RenderDefaultControl(row.ID, row.Parameter),
			Errors:         data.rowErrors[row.ID],
		}
		data.Rows = append(data.Rows, er)
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	if err := renderPage(w, "plugin-edit", data); err != nil {
		log.Printf("Failed to render editor: %v", err)
	}
}
