// Package browser is the headless-browser capability used by the page-load
// phase of a cycle: launch one session, open tabs, navigate, report status.
package browser

import (
	"context"
	"errors"
)

// ErrNoResponse is returned when a navigation finished without a main
// document response to read a status code from.
var ErrNoResponse = errors.New("navigation returned no response")

// Launcher starts a browser session. A session is exclusive to one cycle.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one running browser. Close releases the process and every tab
// still open in it; it must be safe to call after a failed NewTab.
type Session interface {
	NewTab(ctx context.Context) (Tab, error)
	Close() error
}

// Tab is one isolated page.
type Tab interface {
	// Navigate loads url and returns the HTTP status of the main document.
	// The deadline of ctx bounds the navigation.
	Navigate(ctx context.Context, url string) (int, error)
	Close() error
}
