package ports

import (
	"log/slog"
	"net/http"
)

// Runtime carries the shared infrastructure handed to plugin factories.
type Runtime struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Log returns the runtime logger, or the default logger when none is set.
func (r Runtime) Log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Client returns the runtime HTTP client, or the default client when none is set.
func (r Runtime) Client() *http.Client {
	if r.HTTPClient == nil {
		return http.DefaultClient
	}
	return r.HTTPClient
}
