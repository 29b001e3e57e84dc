package booking

import (
	"context"
	"fmt"
	"time"

	"vaccine_booker/domain/entities"
	"vaccine_booker/domain/interfaces"
)

const (
	defaultWaitTimeout = 5 * time.Second
	pollInterval       = 500 * time.Millisecond
	settleDelay        = 100 * time.Millisecond
)

// Waiter polls the browser for elements until they are ready or a timeout
// elapses
type Waiter struct {
	browser interfaces.Browser
	clock   interfaces.Clock
}

// NewWaiter - creates a waiter bound to a browser session
func NewWaiter(browser interfaces.Browser, clock interfaces.Clock) *Waiter {
	return &Waiter{browser: browser, clock: clock}
}

// Require waits for the element and fails with ErrElementNotFound on timeout.
// A zero timeout means the default of five seconds.
func (w *Waiter) Require(ctx context.Context, locator entities.Locator, mode entities.Readiness, timeout time.Duration) (interfaces.Element, error) {
	el, found, err := w.Lookup(ctx, locator, mode, timeout)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s not %s within %s", interfaces.ErrElementNotFound, locator, mode, w.timeout(timeout))
	}
	return el, nil
}

// Lookup waits for the element and reports found=false on timeout. The error
// is only set when the wait itself could not be carried out.
func (w *Waiter) Lookup(ctx context.Context, locator entities.Locator, mode entities.Readiness, timeout time.Duration) (interfaces.Element, bool, error) {
	timeout = w.timeout(timeout)

	if err := w.clock.Sleep(ctx, settleDelay); err != nil {
		return nil, false, err
	}

	// Lookups must not block on their own while we poll
	previous := w.browser.ImplicitWait()
	if err := w.browser.SetImplicitWait(ctx, 0); err != nil {
		return nil, false, fmt.Errorf("failed to relax implicit wait: %w", err)
	}
	defer w.browser.SetImplicitWait(context.WithoutCancel(ctx), previous)

	deadline := w.clock.Now().Add(timeout)
	for {
		if el := w.ready(ctx, locator, mode); el != nil {
			if err := w.clock.Sleep(ctx, settleDelay); err != nil {
				return nil, false, err
			}
			return el, true, nil
		}

		remaining := deadline.Sub(w.clock.Now())
		if remaining <= 0 {
			return nil, false, nil
		}
		if err := w.clock.Sleep(ctx, min(pollInterval, remaining)); err != nil {
			return nil, false, err
		}
	}
}

func (w *Waiter) timeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultWaitTimeout
	}
	return timeout
}

// ready returns the element when it satisfies mode. Driver errors mean the
// page is still settling and are treated as not ready.
func (w *Waiter) ready(ctx context.Context, locator entities.Locator, mode entities.Readiness) interfaces.Element {
	el, err := w.browser.FindElement(ctx, locator)
	if err != nil || el == nil {
		return nil
	}

	switch mode {
	case entities.Visible:
		if ok, err := el.IsDisplayed(ctx); err != nil || !ok {
			return nil
		}
	case entities.Clickable:
		if ok, err := el.IsDisplayed(ctx); err != nil || !ok {
			return nil
		}
		if ok, err := el.IsEnabled(ctx); err != nil || !ok {
			return nil
		}
	}

	return el
}
