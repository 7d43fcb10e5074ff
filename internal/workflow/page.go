// Package workflow submits the daily summary into the vendor web form by
// driving a browser.
package workflow

import "context"

// Element is a single resolved node of the page.
type Element interface {
	Visible() bool
	Text() string
	Attribute(name string) string
	Click() error
	Fill(value string) error
	Value() (string, error)
}

// Page is the part of a browser tab the submitter needs.
type Page interface {
	Goto(url string) error
	URL() string
	// Elements resolves every node matching selector, in document order.
	Elements(selector string) ([]Element, error)
	WaitForLoad() error
}

// Browser owns a single page for the duration of a submission.
type Browser interface {
	Page() Page
	Close() error
}

// LaunchFunc starts a browser.
type LaunchFunc func(ctx context.Context, headless bool) (Browser, error)
