// ABOUTME: Request log storage operations.
// ABOUTME: Handles inserting and querying captured repository API calls.

package store

import "time"

// RequestLog represents a captured repository API call
type RequestLog struct {
	ID           int64
	Timestamp    time.Time
	PluginName   string
	Method       string
	Path         string
	StatusCode   int
	DurationMs   int
	IPAddress    string
	UserAgent    string
	Error        string
	RequestBody  string
	ResponseBody string
}

// LogRequest inserts a request log entry
func (s *Store) LogRequest(log *RequestLog) error {
	_, err := s.db.Exec(`
		INSERT INTO request_logs (plugin_name, method, path, status_code, duration_ms, ip_address, user_agent, error, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.PluginName, log.Method, log.Path, log.StatusCode, log.DurationMs, log.IPAddress, log.UserAgent, log.Error, log.RequestBody, log.ResponseBody)
	return err
}

// RequestLogQuery represents filters for request logs
type RequestLogQuery struct {
	Limit      int
	Offset     int
	PluginName string
	Method     string
	StatusCode int
	ErrorsOnly bool
}

// RequestLogStats represents aggregate statistics
type RequestLogStats struct {
	TotalRequests int
	ErrorRequests int
	AvgDurationMs int
	Plugins       int
}

const requestLogColumns = `id, timestamp, COALESCE(plugin_name, ''), method, path, COALESCE(status_code, 0), COALESCE(duration_ms, 0),
	COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(error, ''),
	COALESCE(request_body, ''), COALESCE(response_body, '')`

// GetRequestLogs retrieves request logs with filtering, newest first
func (s *Store) GetRequestLogs(q *RequestLogQuery) ([]*RequestLog, error) {
	query := `SELECT ` + requestLogColumns + ` FROM request_logs WHERE 1=1`
	args := []any{}

	if q.PluginName != "" {
		query += " AND plugin_name = ?"
		args = append(args, q.PluginName)
	}
	if q.Method != "" {
		query += " AND method = ?"
		args = append(args, q.Method)
	}
	if q.StatusCode > 0 {
		query += " AND status_code = ?"
		args = append(args, q.StatusCode)
	}
	if q.ErrorsOnly {
		query += " AND status_code >= 400"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		log := &RequestLog{}
		if err := rows.Scan(&log.ID, &log.Timestamp, &log.PluginName, &log.Method, &log.Path, &log.StatusCode,
			&log.DurationMs, &log.IPAddress, &log.UserAgent, &log.Error,
			&log.RequestBody, &log.ResponseBody); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// GetRecentRequests returns the most recent requests addressed to a plugin
func (s *Store) GetRecentRequests(pluginName string, limit int) ([]*RequestLog, error) {
	return s.GetRequestLogs(&RequestLogQuery{PluginName: pluginName, Limit: limit})
}

// GetRequestLogStats returns aggregate statistics
func (s *Store) GetRequestLogStats() (*RequestLogStats, error) {
	stats := &RequestLogStats{}
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0),
		       CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER),
		       COUNT(DISTINCT NULLIF(plugin_name, ''))
		FROM request_logs
	`).Scan(&stats.TotalRequests, &stats.ErrorRequests, &stats.AvgDurationMs, &stats.Plugins)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
