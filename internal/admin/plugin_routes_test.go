// ABOUTME: Tests for the admin editor pages.
// ABOUTME: Drives create, update, validation, transport failure and import flows.

package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/2389/pluginadmin/internal/wire"
)

// openEditor follows the redirect from an editor entry point and returns
// the editor page path.
func (a *testAdmin) openEditor(c *http.Client, path string) string {
	a.t.Helper()
	status, _, header := a.get(c, path)
	if status != http.StatusSeeOther {
		a.t.Fatalf("GET %s = %d, want 303", path, status)
	}
	loc := header.Get("Location")
	if !strings.HasPrefix(loc, "/admin/edit/") {
		a.t.Fatalf("redirect to %q, want /admin/edit/...", loc)
	}
	return loc
}

func TestEditor_CreateFlow(t *testing.T) {
	a := newTestAdmin(t)
	page := a.openEditor(a.client, "/admin/plugins/new")

	status, body, _ := a.get(a.client, page)
	if status != http.StatusOK || !strings.Contains(body, `name="plugin_name"`) {
		t.Fatalf("create page = %d, name input missing", status)
	}

	status, body, _ = a.post(a.client, page, url.Values{"action": {"add"}, "plugin_name": {""}, "plugin_url": {""}})
	if status != http.StatusOK || !strings.Contains(body, `name="key_1"`) {
		t.Fatalf("add row = %d, row 1 missing", status)
	}

	// Empty submission reports every missing field and stays on the page
	status, body, _ = a.post(a.client, page, url.Values{
		"action": {"save"}, "plugin_name": {""}, "plugin_url": {""},
		"row": {"1"}, "key_1": {""}, "type_1": {"string"}, "nodefault_1": {"on"},
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("save status = %d, want 422", status)
	}
	for _, want := range []string{"Please input name!", "Please input url!", "Please input key!"} {
		if !strings.Contains(body, want) {
			t.Errorf("validation page missing %q", want)
		}
	}
	if n, _ := a.store.CountPlugins(context.Background()); n != 0 {
		t.Fatalf("invalid record reached the store")
	}

	// Changing the type in the same post resets the default
	status, _, header := a.post(a.client, page, url.Values{
		"action": {"save"}, "plugin_name": {"weather"}, "plugin_url": {"http://weather"},
		"row": {"1"}, "key_1": {"days"}, "type_1": {"integer"}, "default_1": {"ignored"}, "mandatory_1": {"on"},
	})
	if status != http.StatusSeeOther || header.Get("Location") != "/admin/plugins" {
		t.Fatalf("save = %d %q, want redirect to list", status, header.Get("Location"))
	}

	got, err := a.store.GetPlugin(context.Background(), "weather")
	if err != nil {
		t.Fatalf("GetPlugin() error = %v", err)
	}
	if len(got.Parameters) != 1 {
		t.Fatalf("parameters = %+v", got.Parameters)
	}
	p := got.Parameters[0]
	if p.Key != "days" || p.Type != "integer" || !p.Mandatory || p.DefaultValue != nil {
		t.Errorf("saved parameter = %+v", p)
	}

	// The saved editor is closed
	if status, _, _ := a.get(a.client, page); status != http.StatusNotFound {
		t.Errorf("saved editor still open: %d", status)
	}
}

func TestEditor_UpdateFlow(t *testing.T) {
	a := newTestAdmin(t)
	a.seed(samplePlugins()...)
	page := a.openEditor(a.client, "/admin/plugins/weather/edit")

	_, body, _ := a.get(a.client, page)
	if strings.Contains(body, `name="plugin_name"`) {
		t.Error("update page offers a name input")
	}
	if !strings.Contains(body, `type="number" step="1" name="default_2" value="3"`) {
		t.Errorf("integer default control missing:\n%s", body)
	}

	status, _, _ := a.post(a.client, page, url.Values{
		"action": {"save"}, "plugin_url": {"http://weather.v2"},
		"row": {"1", "2"},
		"key_1": {"city"}, "type_1": {"string"}, "mandatory_1": {"on"}, "default_1": {""},
		"key_2": {"days"}, "type_2": {"integer"}, "default_2": {"7.9"},
	})
	if status != http.StatusSeeOther {
		t.Fatalf("save status = %d, want 303", status)
	}

	got, err := a.store.GetPlugin(context.Background(), "weather")
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != "http://weather.v2" {
		t.Errorf("URL = %q", got.URL)
	}
	if got.Parameters[0].DefaultValue != "" {
		t.Errorf("empty string default not stored: %#v", got.Parameters[0].DefaultValue)
	}
	if got.Parameters[1].DefaultValue != int64(7) {
		t.Errorf("integer default = %#v, want 7", got.Parameters[1].DefaultValue)
	}
}

func TestEditor_UnknownPlugin(t *testing.T) {
	a := newTestAdmin(t)
	status, body, _ := a.get(a.client, "/admin/plugins/ghost/edit")
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if !strings.Contains(body, "Plugin ghost not found") || !strings.Contains(body, `id="add-plugin"`) {
		t.Error("not found should show the list page with a banner")
	}
}

func TestEditor_EscapedPluginNames(t *testing.T) {
	a := newTestAdmin(t)
	names := []string{"a/b", "a;b", "a,b", "100%", "my plugin"}
	for _, name := range names {
		a.seed(wire.Plugin{Name: name, URL: "http://x", Parameters: []wire.Parameter{}})
	}

	for _, name := range names {
		page := a.openEditor(a.client, "/admin/plugins/"+url.PathEscape(name)+"/edit")
		_, body, _ := a.get(a.client, page)
		if !strings.Contains(body, template.HTMLEscapeString(name)) {
			t.Errorf("editor for %q does not show its name", name)
		}

		a.post(a.client, "/admin/plugins/"+url.PathEscape(name)+"/toggle", nil)
	}

	_, body, _ := a.get(a.client, "/admin/plugins")
	if !strings.Contains(body, fmt.Sprintf("Delete %d selected", len(names))) {
		t.Error("toggle did not select every escaped name")
	}
}

func TestEditor_RowActions(t *testing.T) {
	a := newTestAdmin(t)
	a.seed(samplePlugins()...)
	page := a.openEditor(a.client, "/admin/plugins/weather/edit")

	_, body, _ := a.post(a.client, page, url.Values{"action": {"up:2"}})
	if strings.Index(body, `name="key_2"`) > strings.Index(body, `name="key_1"`) {
		t.Error("row 2 not moved above row 1")
	}

	_, body, _ = a.post(a.client, page, url.Values{"action": {"remove:1"}})
	if strings.Contains(body, `name="key_1"`) {
		t.Error("row 1 not removed")
	}

	if status, _, _ := a.post(a.client, page, url.Values{"action": {"remove:x"}}); status != http.StatusBadRequest {
		t.Errorf("bad row status = %d", status)
	}
}

func TestEditor_SoftCoercionNotice(t *testing.T) {
	a := newTestAdmin(t)
	a.seed(samplePlugins()...)
	page := a.openEditor(a.client, "/admin/plugins/weather/edit")

	status, body, _ := a.post(a.client, page, url.Values{
		"action": {"add"}, "plugin_url": {"http://weather"},
		"row": {"2"}, "key_2": {"days"}, "type_2": {"integer"}, "default_2": {"abc"},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "Default for days is not a whole number") {
		t.Error("coercion notice missing")
	}
	if strings.Contains(body, `name="default_2" value=`) {
		t.Error("default should be unset after failed coercion")
	}
	if !strings.Contains(body, "State: dirty") {
		t.Error("editor should be dirty")
	}
}

func TestEditor_TransportFailureKeepsEdits(t *testing.T) {
	a := newTestAdmin(t)
	a.repo.createErr = errors.New("connection refused")
	page := a.openEditor(a.client, "/admin/plugins/new")

	form := url.Values{"action": {"save"}, "plugin_name": {"geo"}, "plugin_url": {"http://geo"}}
	status, body, _ := a.post(a.client, page, form)
	if status != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", status)
	}
	if !strings.Contains(body, "connection refused") || !strings.Contains(body, `value="geo"`) {
		t.Error("failure page should show the error and keep the edits")
	}

	a.repo.createErr = nil
	if status, _, _ := a.post(a.client, page, form); status != http.StatusSeeOther {
		t.Errorf("retry status = %d, want 303", status)
	}
}

func TestEditor_DuplicateNameIsTransportFailure(t *testing.T) {
	a := newTestAdmin(t)
	a.seed(samplePlugins()...)
	page := a.openEditor(a.client, "/admin/plugins/new")

	status, _, _ := a.post(a.client, page, url.Values{"action": {"save"}, "plugin_name": {"geo"}, "plugin_url": {"http://other"}})
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", status)
	}
}

func TestEditor_BelongsToSession(t *testing.T) {
	a := newTestAdmin(t)
	page := a.openEditor(a.client, "/admin/plugins/new")

	status, body, _ := a.get(newBrowser(t), page)
	if status != http.StatusNotFound {
		t.Errorf("other session opened editor: %d", status)
	}
	if !strings.Contains(body, "no longer open") {
		t.Error("missing editor banner")
	}
	if status, _, _ := a.get(a.client, "/admin/edit/unknown"); status != http.StatusNotFound {
		t.Errorf("unknown editor status = %d", status)
	}
}

func TestEditor_Cancel(t *testing.T) {
	a := newTestAdmin(t)
	page := a.openEditor(a.client, "/admin/plugins/new")
	status, _, header := a.post(a.client, page, url.Values{"action": {"cancel"}, "plugin_name": {"x"}})
	if status != http.StatusSeeOther || header.Get("Location") != "/admin/plugins" {
		t.Fatalf("cancel = %d %q", status, header.Get("Location"))
	}
	if status, _, _ := a.get(a.client, page); status != http.StatusNotFound {
		t.Error("cancelled editor still open")
	}
}

func TestEditor_ImportUpload(t *testing.T) {
	a := newTestAdmin(t)
	page := a.openEditor(a.client, "/admin/plugins/new")

	post := func(filename, content string) (int, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("action", "import")
		fw, err := mw.CreateFormFile("params_file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
		mw.Close()

		resp, err := a.client.Post(a.srv.URL+page, mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatal(err)
		}
		status, body, _ := readResponse(t, resp)
		return status, body
	}

	status, body := post("params.yaml", "params:\n  - parameter_key: a\n    parameter_type: string\n  - parameter_key: b\n    parameter_type: integer\n    default_value: 2\n")
	if status != http.StatusOK || !strings.Contains(body, "Imported 2 parameters") {
		t.Fatalf("import = %d, notice missing", status)
	}
	if !strings.Contains(body, `name="default_2" value="2"`) {
		t.Error("imported default not rendered")
	}

	status, body = post("params.json", `{"parameters":[]}`)
	if status != http.StatusBadRequest || !strings.Contains(body, "params") {
		t.Errorf("missing params = %d", status)
	}
}
