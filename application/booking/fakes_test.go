package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaccine_booker/domain/entities"
	"vaccine_booker/domain/interfaces"
)

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2021, 5, 20, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

type fakeElement struct {
	text     string
	attrs    map[string]string
	hidden   bool
	disabled bool
	clickErr error

	typed   string
	clicks  int
	onClick func()
}

func (e *fakeElement) Text(ctx context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) SendKeys(ctx context.Context, text string) error {
	e.typed += text
	return nil
}

func (e *fakeElement) IsDisplayed(ctx context.Context) (bool, error) { return !e.hidden, nil }

func (e *fakeElement) IsEnabled(ctx context.Context) (bool, error) { return !e.disabled, nil }

// fakeBrowser serves a fixed set of elements per locator
type fakeBrowser struct {
	elements   map[entities.Locator][]*fakeElement
	implicit   time.Duration
	implicits  []time.Duration
	finds      map[entities.Locator]int
	refreshes  int
	refreshErr error
	navigated  []string

	onFind    func(entities.Locator)
	onRefresh func()
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		elements: make(map[entities.Locator][]*fakeElement),
		finds:    make(map[entities.Locator]int),
		implicit: 2 * time.Second,
	}
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.navigated = append(b.navigated, url)
	return nil
}

func (b *fakeBrowser) Refresh(ctx context.Context) error {
	if b.refreshErr != nil {
		return b.refreshErr
	}
	b.refreshes++
	if b.onRefresh != nil {
		b.onRefresh()
	}
	return nil
}

func (b *fakeBrowser) FindElement(ctx context.Context, locator entities.Locator) (interfaces.Element, error) {
	b.finds[locator]++
	if b.onFind != nil {
		b.onFind(locator)
	}
	found := b.elements[locator]
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrElementNotFound, locator)
	}
	return found[0], nil
}

func (b *fakeBrowser) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.Element, error) {
	found := b.elements[locator]
	elements := make([]interfaces.Element, len(found))
	for i, el := range found {
		elements[i] = el
	}
	return elements, nil
}

func (b *fakeBrowser) SetImplicitWait(ctx context.Context, timeout time.Duration) error {
	b.implicit = timeout
	b.implicits = append(b.implicits, timeout)
	return nil
}

func (b *fakeBrowser) ImplicitWait() time.Duration { return b.implicit }

func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) set(locator entities.Locator, elements ...*fakeElement) {
	b.elements[locator] = elements
}

var errClick = errors.New("element is not attached to the page document")

func button(text string) *fakeElement {
	return &fakeElement{text: text, attrs: map[string]string{"onclick": "select()"}}
}

func inactiveButton(text string) *fakeElement {
	return &fakeElement{text: text, attrs: map[string]string{}}
}

func day(date string, available bool) *fakeElement {
	class := "fc-daygrid-day fc-day-future"
	if available {
		class += " highlight"
	}
	return &fakeElement{
		text:  date[len(date)-2:],
		attrs: map[string]string{"data-date": date, "class": class},
	}
}

func toElements(els ...*fakeElement) []interfaces.Element {
	out := make([]interfaces.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}
