// ABOUTME: Plugin detection for request logging.
// ABOUTME: Determines which plugin a repository call addressed from its path or body.

package logging

import (
	"encoding/json"
	"strings"

	"github.com/2389/pluginadmin/internal/wire"
)

// IsAPIPath reports whether path belongs to the repository API.
func IsAPIPath(path string) bool {
	return path == "/plugins" || strings.HasPrefix(path, "/plugins/")
}

// PluginFromRequest returns the plugin name a request addressed. Reads carry
// it in the decoded path, writes in the body envelope, and batch deletes list every
// name comma-separated. Listing returns "".
func PluginFromRequest(method, path string, body []byte) string {
	switch {
	case path == "/plugins/delete":
		var list wire.List
		if json.Unmarshal(body, &list) != nil {
			return ""
		}
		names := make([]string, 0, len(list.Plugins))
		for _, e := range list.Plugins {
			names = append(names, e.Plugin.Name)
		}
		return strings.Join(names, ",")
	case strings.HasPrefix(path, "/plugins/"):
		return strings.TrimPrefix(path, "/plugins/")
	case path == "/plugins" && method != "GET":
		var env wire.Envelope
		if json.Unmarshal(body, &env) != nil {
			return ""
		}
		return env.Plugin.Name
	}
	return ""
}
