package interfaces

import (
	"context"
	"time"

	"vaccine_booker/domain/entities"
)

// Browser defines the UI driver used by the booking loop
type Browser interface {
	// Navigate navigates to a URL
	Navigate(ctx context.Context, url string) error

	// Refresh reloads the current page
	Refresh(ctx context.Context) error

	// FindElement returns the first element matching the locator, or an
	// error wrapping ErrElementNotFound
	FindElement(ctx context.Context, locator entities.Locator) (Element, error)

	// FindElements returns every element matching the locator, possibly none
	FindElements(ctx context.Context, locator entities.Locator) ([]Element, error)

	// SetImplicitWait sets how long element lookups wait on their own
	SetImplicitWait(ctx context.Context, timeout time.Duration) error

	// ImplicitWait returns the current implicit wait
	ImplicitWait() time.Duration

	// Close closes the browser
	Close() error
}

// Element is a handle to an on-screen control. Handles are only valid until
// the next page transition.
type Element interface {
	// Text returns the visible text
	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value and whether it is set at all
	Attribute(ctx context.Context, name string) (string, bool, error)

	Click(ctx context.Context) error

	// SendKeys types text into the element
	SendKeys(ctx context.Context, text string) error

	IsDisplayed(ctx context.Context) (bool, error)

	IsEnabled(ctx context.Context) (bool, error)
}
