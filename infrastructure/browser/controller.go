package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vaccine_booker/domain/entities"
	"vaccine_booker/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

type browserController struct {
	pw           *playwright.Playwright
	browser      playwright.Browser
	context      playwright.BrowserContext
	page         playwright.Page
	logger       *logrus.Logger
	implicitWait time.Duration
}

// NewBrowserController - creates a Playwright driven Chromium session
func NewBrowserController(logger *logrus.Logger, headless bool) (interfaces.Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
		Locale: playwright.String("it-IT"),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.OnDialog(func(dialog playwright.Dialog) {
		logger.Debugf("Accepting dialog: %s", dialog.Message())
		dialog.Accept()
	})

	controller := &browserController{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		logger:  logger,
	}
	controller.SetImplicitWait(context.Background(), defaultImplicitWait)

	return controller, nil
}

// Navigate - navigates to the specified URL
func (b *browserController) Navigate(ctx context.Context, url string) error {
	b.logger.Debugf("Navigating to: %s", url)
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	})
	return err
}

// Refresh - reloads the current page
func (b *browserController) Refresh(ctx context.Context) error {
	b.logger.Debug("Refreshing page")
	_, err := b.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	})
	return err
}

// FindElement - returns the first element matching the locator
func (b *browserController) FindElement(ctx context.Context, locator entities.Locator) (interfaces.Element, error) {
	selector, err := playwrightSelector(locator)
	if err != nil {
		return nil, err
	}

	loc := b.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrElementNotFound, locator, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrElementNotFound, locator)
	}
	return &playwrightElement{loc: loc.First()}, nil
}

// FindElements - returns every element matching the locator
func (b *browserController) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.Element, error) {
	selector, err := playwrightSelector(locator)
	if err != nil {
		return nil, err
	}

	all, err := b.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", locator, err)
	}

	elements := make([]interfaces.Element, 0, len(all))
	for _, loc := range all {
		elements = append(elements, &playwrightElement{loc: loc})
	}
	return elements, nil
}

// minActionTimeout replaces a zero wait: Playwright reads 0 as "no timeout"
const minActionTimeout = time.Millisecond

// SetImplicitWait - maps to the page default timeout used by element actions
func (b *browserController) SetImplicitWait(ctx context.Context, timeout time.Duration) error {
	b.page.SetDefaultTimeout(playwrightTimeout(timeout))
	b.implicitWait = timeout
	return nil
}

// playwrightTimeout converts a wait to Playwright milliseconds, never zero
func playwrightTimeout(timeout time.Duration) float64 {
	return float64(max(timeout, minActionTimeout).Milliseconds())
}

func (b *browserController) ImplicitWait() time.Duration {
	return b.implicitWait
}

// Close - closes the browser and stops playwright
func (b *browserController) Close() error {
	var closeErr error

	if b.context != nil {
		if err := b.context.Close(); err != nil && !isClosedError(err) {
			closeErr = fmt.Errorf("failed to close context: %w", err)
		}
		b.context = nil
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil && !isClosedError(err) {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to close browser: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to close browser: %w", err)
			}
		}
		b.browser = nil
	}

	if b.pw != nil {
		b.pw.Stop()
		b.pw = nil
	}

	return closeErr
}

func isClosedError(err error) bool {
	return strings.Contains(err.Error(), "closed")
}

// playwrightSelector - converts a locator to a Playwright selector string
func playwrightSelector(locator entities.Locator) (string, error) {
	switch locator.By {
	case entities.ByName:
		return fmt.Sprintf(`[name=%q]`, locator.Pattern), nil
	case entities.ByXPath:
		return "xpath=" + locator.Pattern, nil
	case entities.ByCSS:
		return locator.Pattern, nil
	case entities.ByClassName:
		return "." + locator.Pattern, nil
	default:
		return "", fmt.Errorf("unsupported locator strategy: %s", locator.By)
	}
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	return e.loc.InnerText()
}

func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.loc.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return "", false, err
	}
	s, ok := value.(string)
	return s, ok, nil
}

func (e *playwrightElement) Click(ctx context.Context) error {
	return e.loc.Click()
}

func (e *playwrightElement) SendKeys(ctx context.Context, text string) error {
	return e.loc.Fill(text)
}

func (e *playwrightElement) IsDisplayed(ctx context.Context) (bool, error) {
	return e.loc.IsVisible()
}

func (e *playwrightElement) IsEnabled(ctx context.Context) (bool, error) {
	return e.loc.IsEnabled()
}
