// Package constants provides shared constants used throughout the
// qtoggleserver client codebase. This includes protocol timeouts, reconnect
// policy values, and other configuration defaults that should be consistent
// across the library and the CLI.
package constants

import "time"

// Listen protocol constants govern the long-polling cycle against the
// server's /listen endpoint.
const (
	// ListenKeepalive is the server-side hold time requested in steady state.
	// The server responds with an empty event list when nothing happened
	// within this window.
	ListenKeepalive = 60 * time.Second

	// QuickListenTimeout is the server-side hold time requested on the first
	// poll cycle and on the cycle right after an error, so state is refreshed
	// promptly once the server is reachable again.
	QuickListenTimeout = 1 * time.Second

	// ServerTimeoutMargin is added on top of the requested hold time to form
	// the HTTP request timeout, leaving the server room to respond at the
	// very end of its window.
	ServerTimeoutMargin = 5 * time.Second
)

// Reconnect policy constants define how listen failures are retried.
const (
	// FastReconnectListenErrors is the number of consecutive listen errors
	// that are still retried quickly before backing off.
	FastReconnectListenErrors = 2

	// FastReconnectDelay is the retry delay inside the fast-reconnect window.
	FastReconnectDelay = 1 * time.Second

	// ListenRetryInterval is the retry delay once the fast-reconnect window
	// is exhausted.
	ListenRetryInterval = 10 * time.Second
)

// Expectation constants govern the event expectation registry.
const (
	// DefaultExpectTimeout is how long a registered expectation waits for a
	// matching event before it expires.
	DefaultExpectTimeout = 60 * time.Second

	// ExpectSweepInterval is how often expired expectations are collected.
	ExpectSweepInterval = 1 * time.Second
)

// HTTP constants define defaults for the plain request/response API calls
// outside the listen cycle.
const (
	// DefaultHTTPTimeout is the standard timeout for one-shot API requests
	// such as the webhooks calls.
	DefaultHTTPTimeout = 30 * time.Second

	// DialTimeout is the timeout for establishing network connections.
	DialTimeout = 10 * time.Second

	// MaxIdleConnections is the maximum number of idle connections kept in
	// the transport pool.
	MaxIdleConnections = 10
)

// Session constants define the shape of generated session identifiers.
const (
	// SessionIDPrefix is prepended to every generated session identifier.
	SessionIDPrefix = "qtoggle-"

	// SessionIDHashLength is the number of hex characters kept from the
	// hashed session seed.
	SessionIDHashLength = 16
)

// File permission constants define standard Unix file permissions
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755
)

// Path constants
const (
	// DefaultConfigName is the base name of the CLI configuration file,
	// looked up as ~/.qtoggle.yaml.
	DefaultConfigName = ".qtoggle"

	// DefaultEnvPrefix is the environment variable prefix recognized by the
	// CLI configuration.
	DefaultEnvPrefix = "QTOGGLE"
)

// Format constants
const (
	// TimeFormatLog is the timestamp format used in console log output.
	TimeFormatLog = "2006-01-02 15:04:05.000"
)
