// Package notifications delivers operator-facing pipeline events via
// pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured
// in config.toml and gracefully degrades to a no-op when notifications are
// disabled. Failure and completion events can be toggled independently so
// a busy kiosk deployment can keep only the alerts it needs.
//
// Extend this package if you need alternative transports; all pipeline
// code depends only on the simple Service interface.
package notifications
