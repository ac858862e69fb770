package tablemate

import "log/slog"

// Config defines the configuration for a database handle.
type Config struct {
	// Host is the host specification of the backend, in one of the forms
	// "host", "host:port", "user:pass@host" or "user:pass@host:port".
	// An optional "http://" or "https://" prefix is accepted; full URLs
	// with a path are rejected.
	Host string `json:"host"`
	// Username is the Basic-Auth username. Mutually exclusive with
	// credentials embedded in Host.
	Username string `json:"username"`
	// Password is the Basic-Auth password.
	Password string `json:"password"`
	// Logger receives debug-level request/response events. When nil,
	// logging is disabled.
	Logger *slog.Logger `json:"-"`
	// AllowCrossOrigin permits following foreign-key and image URLs that
	// point outside the database origin. Off by default.
	AllowCrossOrigin bool `json:"allow_cross_origin"`
	// HTTPClient overrides the transport. When nil, NewHTTPClient is used.
	HTTPClient HTTPClient `json:"-"`
}
