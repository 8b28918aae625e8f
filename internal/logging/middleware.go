// ABOUTME: HTTP request logging middleware for the plugin repository API.
// ABOUTME: Captures method, path, status, duration, addressed plugin and bounded bodies.

package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/2389/pluginadmin/internal/store"
)

const maxBodySize = 10 * 1024 // 10KB limit for body capture

// RequestLogger persists captured requests.
type RequestLogger interface {
	LogRequest(entry *store.RequestLog) error
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	// Capture response body (up to maxBodySize)
	if rw.body.Len() < maxBodySize {
		toCopy := len(b)
		if rw.body.Len()+toCopy > maxBodySize {
			toCopy = maxBodySize - rw.body.Len()
		}
		rw.body.Write(b[:toCopy])
	}
	return rw.ResponseWriter.Write(b)
}

// Middleware logs repository API calls. Paths outside /plugins pass through
// untouched. Logging happens in the background and never fails a request.
func Middleware(l RequestLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAPIPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// Capture the head of the request body and hand the full body on
			var requestBody []byte
			if r.Body != nil {
				head, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
				if err == nil {
					requestBody = head
					r.Body = struct {
						io.Reader
						io.Closer
					}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
				}
			}

			start := time.Now()
			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     200,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Milliseconds()

			// Get client IP
			ip := r.RemoteAddr
			if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
				ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
			}

			entry := &store.RequestLog{
				PluginName:   PluginFromRequest(r.Method, r.URL.Path, requestBody),
				Method:       r.Method,
				Path:         r.URL.Path,
				StatusCode:   wrapped.statusCode,
				DurationMs:   int(duration),
				IPAddress:    ip,
				UserAgent:    r.Header.Get("User-Agent"),
				RequestBody:  string(requestBody),
				ResponseBody: wrapped.body.String(),
			}
			if entry.StatusCode >= 400 {
				entry.Error = errorMessage(wrapped.body.Bytes())
			}

			// Log to database (fire and forget)
			go func() {
				if err := l.LogRequest(entry); err != nil {
					log.Printf("request log: %v", err)
				}
			}()
		})
	}
}

// errorMessage extracts the message of an error envelope body.
func errorMessage(body []byte) string {
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Message == "" {
		return strings.TrimSpace(string(body))
	}
	return resp.Message
}
