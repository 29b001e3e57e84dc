package browser

import (
	"context"
	"fmt"
	"time"

	"vaccine_booker/domain/entities"
	"vaccine_booker/domain/interfaces"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

const chromedpActionTimeout = 30 * time.Second

// ChromedpController drives Chrome over the DevTools protocol without a
// WebDriver binary
type ChromedpController struct {
	tabCtx       context.Context
	cancelTab    context.CancelFunc
	cancelAlloc  context.CancelFunc
	logger       *logrus.Logger
	implicitWait time.Duration
}

// NewChromedpController - launches Chrome and opens one tab
func NewChromedpController(logger *logrus.Logger, headless bool) (*ChromedpController, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 720),
	)
	if binary := findBrowserBinary(chromeBinaries); binary != "" {
		logger.Infof("Using Chrome binary at: %s", binary)
		opts = append(opts, chromedp.ExecPath(binary))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debugf))

	// Run with no actions starts the browser
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &ChromedpController{
		tabCtx:       tabCtx,
		cancelTab:    cancelTab,
		cancelAlloc:  cancelAlloc,
		logger:       logger,
		implicitWait: defaultImplicitWait,
	}, nil
}

// run executes actions on the tab, giving up early when ctx is done
func (c *ChromedpController) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(c.tabCtx, chromedpActionTimeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate - navigates to the specified URL
func (c *ChromedpController) Navigate(ctx context.Context, url string) error {
	c.logger.Debugf("Navigating to: %s", url)
	return c.run(ctx, chromedp.Navigate(url))
}

// Refresh - reloads the current page
func (c *ChromedpController) Refresh(ctx context.Context) error {
	c.logger.Debug("Refreshing page")
	return c.run(ctx, chromedp.Reload())
}

// FindElement - returns the first element matching the locator
func (c *ChromedpController) FindElement(ctx context.Context, locator entities.Locator) (interfaces.Element, error) {
	elements, err := c.FindElements(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrElementNotFound, locator, err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrElementNotFound, locator)
	}
	return elements[0], nil
}

// FindElements - returns every element matching the locator, without waiting
func (c *ChromedpController) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.Element, error) {
	selector, by, err := chromedpSelector(locator)
	if err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(selector, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", locator, err)
	}

	elements := make([]interfaces.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromedpElement{controller: c, node: n})
	}
	return elements, nil
}

// SetImplicitWait - lookups never block here; the value is only remembered
func (c *ChromedpController) SetImplicitWait(ctx context.Context, timeout time.Duration) error {
	c.implicitWait = timeout
	return nil
}

func (c *ChromedpController) ImplicitWait() time.Duration {
	return c.implicitWait
}

// Close - closes the tab and the browser process
func (c *ChromedpController) Close() error {
	if c.cancelTab != nil {
		c.cancelTab()
		c.cancelTab = nil
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
		c.cancelAlloc = nil
	}
	return nil
}

func chromedpSelector(locator entities.Locator) (string, chromedp.QueryOption, error) {
	switch locator.By {
	case entities.ByName:
		return fmt.Sprintf(`[name=%q]`, locator.Pattern), chromedp.ByQueryAll, nil
	case entities.ByXPath:
		return locator.Pattern, chromedp.BySearch, nil
	case entities.ByCSS:
		return locator.Pattern, chromedp.ByQueryAll, nil
	case entities.ByClassName:
		return "." + locator.Pattern, chromedp.ByQueryAll, nil
	default:
		return "", nil, fmt.Errorf("unsupported locator strategy: %s", locator.By)
	}
}

type chromedpElement struct {
	controller *ChromedpController
	node       *cdp.Node
}

func (e *chromedpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.controller.run(ctx, chromedp.JavascriptAttribute(e.ids(), "innerText", &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

// Attribute - reads the attributes captured when the node was found
func (e *chromedpElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, ok := e.node.Attribute(name)
	return value, ok, nil
}

func (e *chromedpElement) Click(ctx context.Context) error {
	return e.controller.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *chromedpElement) SendKeys(ctx context.Context, text string) error {
	return e.controller.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

// IsDisplayed - an element without a box model is not rendered
func (e *chromedpElement) IsDisplayed(ctx context.Context) (bool, error) {
	var visible bool
	err := e.controller.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		visible = err == nil
		return nil
	}))
	return visible, err
}

func (e *chromedpElement) IsEnabled(ctx context.Context) (bool, error) {
	_, disabled := e.node.Attribute("disabled")
	return !disabled, nil
}

// Ensure ChromedpController implements Browser interface
var _ interfaces.Browser = (*ChromedpController)(nil)
