package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vaccine_booker/domain/entities"
	"vaccine_booker/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const (
	slotWaitTimeout  = 3 * time.Second
	popupErrorMarker = "error"
	shortTextLen     = 16
)

func (b *Booker) login(ctx context.Context, log *logrus.Entry) error {
	log.Info("Entering and confirming login credentials")

	// The form fields do not always appear together; a reload stays on this
	// screen, so reload until they do
	var inputs []interfaces.Element
	for {
		found, ok, err := b.lookupAll(ctx, log, taxCodeField, cardNumberField, consentCheckbox)
		if err != nil {
			return err
		}
		if ok {
			inputs = found
			break
		}
		if err := b.refresh(ctx); err != nil {
			return err
		}
	}

	s := b.settings
	if err := typeInto(ctx, inputs[:2], []string{s.TaxCode, s.CardNumber}); err != nil {
		return err
	}
	if err := inputs[2].Click(ctx); err != nil {
		return fmt.Errorf("failed to tick consent: %w", err)
	}

	return b.click(ctx, confirmButton)
}

func (b *Booker) selectService(ctx context.Context, log *logrus.Entry) error {
	log.Infof("Selecting service %q", b.settings.ServiceLabel)
	return b.click(ctx, buttonLabelled(b.settings.ServiceLabel))
}

func (b *Booker) selectLocation(ctx context.Context, log *logrus.Entry, state *cycleState) error {
	if _, err := b.waiter.Require(ctx, locationHeading, entities.Visible, 0); err != nil {
		return err
	}

	buttons, err := b.browser.FindElements(ctx, locationButtons)
	if err != nil {
		return fmt.Errorf("failed to list locations: %w", err)
	}
	active, err := activeCandidates(ctx, buttons)
	if err != nil {
		return err
	}

	locations := RankCandidates(active, b.settings.Preferences, b.settings.Blacklist)
	if len(locations) == 0 {
		log.Info("No location available")
		return b.leaveEmptyLocations(ctx, log)
	}

	shortNames := make([]string, len(locations))
	for i, l := range locations {
		shortNames[i] = truncate(strings.TrimSpace(l.Text), shortTextLen)
	}
	log.Infof("Selected location: %s (available: %s)", locations[0].Text, strings.Join(shortNames, ", "))

	state.location = locations[0]
	if err := locations[0].Element.Click(ctx); err != nil {
		return fmt.Errorf("failed to click location: %w", err)
	}
	return nil
}

// leaveEmptyLocations returns to the login screen using the portal's back
// buttons, or reloads when configured to or when a button is missing
func (b *Booker) leaveEmptyLocations(ctx context.Context, log *logrus.Entry) error {
	if b.settings.NoLocationStrategy == entities.NoLocationRefresh {
		return errNoLocation
	}

	for _, back := range []entities.Locator{backToService, backToLogin} {
		el, found, err := b.waiter.Lookup(ctx, back, entities.Clickable, 0)
		if err != nil {
			return err
		}
		if !found {
			log.Debugf("%s missing, refreshing", back)
			if err := b.refresh(ctx); err != nil {
				return err
			}
			return errCycleReset
		}
		if err := el.Click(ctx); err != nil {
			return fmt.Errorf("failed to go back: %w", err)
		}
	}
	return errCycleReset
}

// scanDates walks the calendar month by month until a day within the
// configured range shows up or the range is exhausted
func (b *Booker) scanDates(ctx context.Context, log *logrus.Entry, state *cycleState) error {
	s := b.settings
	for {
		if _, err := b.waiter.Require(ctx, calendarReady, entities.Visible, 0); err != nil {
			return err
		}

		cells, err := b.browser.FindElements(ctx, calendarDays)
		if err != nil {
			return fmt.Errorf("failed to read calendar: %w", err)
		}
		days, err := readMonth(ctx, cells)
		if err != nil {
			return err
		}
		log.Infof("Available dates (unfiltered): %s", formatDays(AvailableDays(days)))

		qualifying, verdict := EvaluateMonth(days, s.MinDate, s.MaxDate)
		switch verdict {
		case NextMonth:
			if err := b.click(ctx, nextMonthButton); err != nil {
				return err
			}
			continue
		case Exhausted:
			return errNoDate
		}

		log.Infof("Selected date: %s (available: %s)", qualifying[0].Date.Format(dateLayout), formatDays(qualifying))
		state.day = qualifying[0]
		if err := qualifying[0].Element.Click(ctx); err != nil {
			return fmt.Errorf("failed to click date: %w", err)
		}
		return nil
	}
}

func (b *Booker) selectSlot(ctx context.Context, log *logrus.Entry, state *cycleState) error {
	if _, found, err := b.waiter.Lookup(ctx, timeSlotButtons, entities.Clickable, slotWaitTimeout); err != nil {
		return err
	} else if !found {
		return errNoSlot
	}

	buttons, err := b.browser.FindElements(ctx, timeSlotButtons)
	if err != nil {
		return fmt.Errorf("failed to list time slots: %w", err)
	}
	if len(buttons) == 0 {
		return errNoSlot
	}

	slots := make([]Candidate, 0, len(buttons))
	for _, el := range buttons {
		text, err := el.Text(ctx)
		if err != nil {
			return fmt.Errorf("failed to read time slot: %w", err)
		}
		slots = append(slots, Candidate{Element: el, Text: text})
	}

	slot := b.slots.Choose(slots)
	log.Infof("Selecting time slot: %s", slot.Text)
	state.slot = slot
	if err := slot.Element.Click(ctx); err != nil {
		return fmt.Errorf("failed to click time slot: %w", err)
	}
	return nil
}

func (b *Booker) fillDetails(ctx context.Context, log *logrus.Entry) error {
	log.Info("Entering personal details")

	inputs, ok, err := b.lookupAll(ctx, log, surnameField, nameField, emailField, phoneField)
	if err != nil {
		return err
	}
	if !ok {
		// A reload lands back on the login screen
		if err := b.refresh(ctx); err != nil {
			return err
		}
		return errCycleReset
	}

	s := b.settings
	return typeInto(ctx, inputs, []string{s.Surname, s.Name, s.Email, s.Phone})
}

func (b *Booker) confirm(ctx context.Context, log *logrus.Entry) error {
	if err := b.click(ctx, confirmButton); err != nil {
		return err
	}

	popup, err := b.waiter.Require(ctx, resultPopup, entities.Visible, 0)
	if err != nil {
		return err
	}
	class, _, err := popup.Attribute(ctx, "class")
	if err != nil {
		return fmt.Errorf("failed to read result popup: %w", err)
	}

	if PopupReportsError(class) {
		return interfaces.ErrSlotTaken
	}

	log.Info("Vaccine booked successfully")
	return nil
}

// PopupReportsError tells whether the result popup class marks a failure
func PopupReportsError(class string) bool {
	return strings.Contains(class, popupErrorMarker)
}

// lookupAll waits for every locator to be visible and reports ok=false as
// soon as one of them is missing
func (b *Booker) lookupAll(ctx context.Context, log *logrus.Entry, locators ...entities.Locator) ([]interfaces.Element, bool, error) {
	elements := make([]interfaces.Element, 0, len(locators))
	for _, loc := range locators {
		el, found, err := b.waiter.Lookup(ctx, loc, entities.Visible, 0)
		if err != nil {
			return nil, false, err
		}
		if !found {
			log.Debugf("%s missing, refreshing", loc)
			return nil, false, nil
		}
		elements = append(elements, el)
	}
	return elements, true, nil
}

// click waits for a clickable element and clicks it
func (b *Booker) click(ctx context.Context, locator entities.Locator) error {
	el, err := b.waiter.Require(ctx, locator, entities.Clickable, 0)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("failed to click %s: %w", locator, err)
	}
	return nil
}

func typeInto(ctx context.Context, inputs []interfaces.Element, values []string) error {
	for i, in := range inputs {
		if err := in.SendKeys(ctx, values[i]); err != nil {
			return fmt.Errorf("failed to type into field: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
