package booking

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"vaccine_booker/domain/entities"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// portal simulates the booking screens on top of fakeBrowser. Clicking a
// button swaps the served elements; a refresh always lands on login.
type portal struct {
	browser  *fakeBrowser
	settings *entities.Settings

	// emptyLocationVisits is how many location screens show no active button
	emptyLocationVisits int
	// incompleteLogins is how many login screens miss the card number field
	incompleteLogins    int
	// incompleteDetails is how many details screens miss the phone field
	incompleteDetails   int
	noBackButtons       bool
	months              [][]*fakeElement
	slots               []*fakeElement
	// outcomes are the popup classes of successive confirmations
	outcomes            []string

	loginVisits    int
	detailsVisits  int
	locationVisits int
	confirmations  int
	backClicks     int
	month          int

	taxCode, cardNumber         *fakeElement
	surname, name, email, phone *fakeElement
}

func newPortal(settings *entities.Settings) *portal {
	p := &portal{
		browser:  newFakeBrowser(),
		settings: settings,
		months: [][]*fakeElement{{
			day("2021-06-14", false),
			day("2021-06-15", true),
			day("2021-06-30", false),
		}},
		slots: []*fakeElement{button("09:00 - 09:15"), button("09:15 - 09:30")},
	}
	p.browser.onRefresh = p.login
	return p
}

func (p *portal) show() {
	p.browser.elements = make(map[entities.Locator][]*fakeElement)
}

func (p *portal) login() {
	p.show()
	p.loginVisits++

	p.taxCode, p.cardNumber = &fakeElement{}, &fakeElement{}
	p.browser.set(taxCodeField, p.taxCode)
	if p.loginVisits > p.incompleteLogins {
		p.browser.set(cardNumberField, p.cardNumber)
	}
	p.browser.set(consentCheckbox, &fakeElement{})
	p.browser.set(confirmButton, &fakeElement{onClick: p.service})
}

func (p *portal) service() {
	p.show()
	p.browser.set(buttonLabelled(p.settings.ServiceLabel), &fakeElement{onClick: p.locations})
	if !p.noBackButtons {
		p.browser.set(backToLogin, &fakeElement{onClick: p.goBack(p.login)})
	}
}

func (p *portal) locations() {
	p.show()
	p.locationVisits++

	buttons := []*fakeElement{
		inactiveButton("CentroB - Via X"),
		inactiveButton("CentroA - Via Z"),
		inactiveButton("CentroC - Via Y"),
	}
	if p.locationVisits > p.emptyLocationVisits {
		buttons = []*fakeElement{
			button("CentroB - Via X"),
			button("CentroA - Via Z"),
			inactiveButton("CentroC - Via Y"),
		}
	}
	for _, b := range buttons {
		b.onClick = p.calendar
	}

	p.browser.set(locationHeading, &fakeElement{})
	p.browser.set(locationButtons, buttons...)
	if !p.noBackButtons {
		p.browser.set(backToService, &fakeElement{onClick: p.goBack(p.service)})
	}
}

func (p *portal) goBack(screen func()) func() {
	return func() {
		p.backClicks++
		screen()
	}
}

func (p *portal) calendar() {
	p.month = 0
	p.showMonth()
}

func (p *portal) showMonth() {
	p.show()
	p.browser.set(calendarReady, &fakeElement{})

	cells := p.months[p.month]
	for _, c := range cells {
		c.onClick = p.timeSlots
	}
	p.browser.set(calendarDays, cells...)

	p.browser.set(nextMonthButton, &fakeElement{onClick: func() {
		p.month++
		p.showMonth()
	}})
}

func (p *portal) timeSlots() {
	p.show()
	for _, s := range p.slots {
		s.onClick = p.details
	}
	p.browser.set(timeSlotButtons, p.slots...)
}

func (p *portal) details() {
	p.show()
	p.detailsVisits++

	p.surname, p.name, p.email, p.phone = &fakeElement{}, &fakeElement{}, &fakeElement{}, &fakeElement{}
	p.browser.set(surnameField, p.surname)
	p.browser.set(nameField, p.name)
	p.browser.set(emailField, p.email)
	if p.detailsVisits > p.incompleteDetails {
		p.browser.set(phoneField, p.phone)
	}
	p.browser.set(confirmButton, &fakeElement{onClick: p.result})
}

func (p *portal) result() {
	p.show()
	class := "swal2-popup swal2-modal swal2-icon-success swal2-show"
	if p.confirmations < len(p.outcomes) {
		class = p.outcomes[p.confirmations]
	}
	p.confirmations++
	p.browser.set(resultPopup, &fakeElement{attrs: map[string]string{"class": class}})
}

const popupFailure = "swal2-popup swal2-modal swal2-icon-error swal2-show"

func testSettings() *entities.Settings {
	return &entities.Settings{
		Facility:           "6",
		Name:               "Mario",
		Surname:            "Rossi",
		TaxCode:            "RSSMRA60A01G224X",
		CardNumber:         "80380000001234567890",
		Email:              "mario.rossi@example.com",
		Phone:              "3331234567",
		Preferences:        []string{"CentroA", "CentroB"},
		MinDate:            date("2021-06-01"),
		MaxDate:            date("2021-06-30"),
		BaseWait:           time.Second,
		PortalURL:          "https://vaccinicovid.regione.veneto.it",
		ServiceLabel:       "Nati dal 1962 al 2009",
		NoLocationStrategy: entities.NoLocationGoBack,
		SlotStrategy:       entities.SlotFirst,
	}
}

type harness struct {
	portal *portal
	clock  *fakeClock
	hook   *test.Hook
	booker *Booker
}

func newHarness(settings *entities.Settings, configure func(*portal), opts ...Option) *harness {
	p := newPortal(settings)
	if configure != nil {
		configure(p)
	}
	p.login()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{portal: p, clock: newFakeClock(), hook: hook}
	opts = append([]Option{
		WithClock(h.clock),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)
	h.booker = NewBooker(p.browser, settings, logger, opts...)
	return h
}

func (h *harness) logged(level logrus.Level, message string) bool {
	for _, e := range h.hook.AllEntries() {
		if e.Level == level && e.Message == message {
			return true
		}
	}
	return false
}

func TestBooker_BooksPreferredLocation(t *testing.T) {
	h := newHarness(testSettings(), nil)

	booking, err := h.booker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "CentroA - Via Z", booking.Location)
	assert.Equal(t, date("2021-06-15"), booking.Date)
	assert.Equal(t, "09:00 - 09:15", booking.Slot)
	assert.Equal(t, 1, booking.Cycles)
	assert.Equal(t, h.clock.Now(), booking.ConfirmedAt)

	p := h.portal
	assert.Equal(t, []string{"https://vaccinicovid.regione.veneto.it/ulss6"}, p.browser.navigated)
	assert.Zero(t, p.browser.refreshes)
	assert.Equal(t, "RSSMRA60A01G224X", p.taxCode.typed)
	assert.Equal(t, "80380000001234567890", p.cardNumber.typed)
	assert.Equal(t, "Rossi", p.surname.typed)
	assert.Equal(t, "Mario", p.name.typed)
	assert.Equal(t, "mario.rossi@example.com", p.email.typed)
	assert.Equal(t, "3331234567", p.phone.typed)
	assert.True(t, h.logged(logrus.InfoLevel, "Vaccine booked successfully"))
}

func TestBooker_RandomWaitBeforeEachCycle(t *testing.T) {
	h := newHarness(testSettings(), func(p *portal) {
		p.outcomes = []string{popupFailure}
	})

	_, err := h.booker.Run(context.Background())
	require.NoError(t, err)

	var waits []time.Duration
	for _, d := range h.clock.slept {
		if d >= time.Second {
			waits = append(waits, d)
		}
	}
	require.Len(t, waits, 2)
	for _, w := range waits {
		assert.GreaterOrEqual(t, w, time.Second)
		assert.Less(t, w, 2*time.Second)
	}
}

func TestBooker_RetriesAfterLosingTheRace(t *testing.T) {
	h := newHarness(testSettings(), func(p *portal) {
		p.outcomes = []string{popupFailure}
	})

	booking, err := h.booker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, booking.Cycles)
	assert.Equal(t, 1, h.portal.browser.refreshes)
	assert.Equal(t, 2, h.portal.confirmations)
	assert.True(t, h.logged(logrus.WarnLevel, "Someone was faster, booking failed"))
}

func TestBooker_EmptyLocations(t *testing.T) {
	t.Run("goes back through the portal", func(t *testing.T) {
		h := newHarness(testSettings(), func(p *portal) {
			p.emptyLocationVisits = 1
		})

		booking, err := h.booker.Run(context.Background())
		require.NoError(t, err)

		p := h.portal
		assert.Equal(t, 2, booking.Cycles)
		assert.Zero(t, p.browser.refreshes)
		assert.Equal(t, 2, p.loginVisits)
		assert.Equal(t, 2, p.backClicks)
		assert.True(t, h.logged(logrus.InfoLevel, "No location available"))
	})

	t.Run("refreshes when configured", func(t *testing.T) {
		settings := testSettings()
		settings.NoLocationStrategy = entities.NoLocationRefresh
		h := newHarness(settings, func(p *portal) {
			p.emptyLocationVisits = 1
		})

		booking, err := h.booker.Run(context.Background())
		require.NoError(t, err)

		p := h.portal
		assert.Equal(t, 2, booking.Cycles)
		assert.Equal(t, 1, p.browser.refreshes)
		assert.Zero(t, p.backClicks)
	})

	t.Run("refreshes when a back button is missing", func(t *testing.T) {
		h := newHarness(testSettings(), func(p *portal) {
			p.emptyLocationVisits = 1
			p.noBackButtons = true
		})

		booking, err := h.booker.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, booking.Cycles)
		assert.Equal(t, 1, h.portal.browser.refreshes)
	})

	t.Run("blacklisted locations count as empty", func(t *testing.T) {
		settings := testSettings()
		settings.Blacklist = []string{"Via"}
		settings.NoLocationStrategy = entities.NoLocationRefresh

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h := newHarness(settings, nil)
		h.portal.browser.onRefresh = func() {
			cancel()
			h.portal.login()
		}

		_, err := h.booker.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, h.portal.confirmations)
		assert.True(t, h.logged(logrus.WarnLevel, "Cycle aborted: no location available"))
	})
}

func TestBooker_ReloadsIncompleteLogin(t *testing.T) {
	h := newHarness(testSettings(), func(p *portal) {
		p.incompleteLogins = 1
	})

	booking, err := h.booker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, booking.Cycles)
	assert.Equal(t, 1, h.portal.browser.refreshes)
	assert.Equal(t, 2, h.portal.loginVisits)
	assert.Equal(t, "RSSMRA60A01G224X", h.portal.taxCode.typed)
}

func TestBooker_RestartsOnIncompleteDetails(t *testing.T) {
	h := newHarness(testSettings(), func(p *portal) {
		p.incompleteDetails = 1
	})

	booking, err := h.booker.Run(context.Background())
	require.NoError(t, err)

	p := h.portal
	assert.Equal(t, 2, booking.Cycles)
	assert.Equal(t, 1, p.browser.refreshes)
	assert.Equal(t, 2, p.loginVisits)
	assert.Equal(t, 2, p.detailsVisits)
	assert.Equal(t, 1, p.confirmations)
	assert.Equal(t, "3331234567", p.phone.typed)
}

func TestBooker_ScansFollowingMonths(t *testing.T) {
	h := newHarness(testSettings(), func(p *portal) {
		p.months = [][]*fakeElement{
			{day("2021-05-20", true), day("2021-05-31", false)},
			{day("2021-06-15", false), day("2021-06-21", true), day("2021-06-30", false)},
		}
	})

	booking, err := h.booker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, date("2021-06-21"), booking.Date)
	assert.Equal(t, 1, h.portal.month)
}

// abortsCycle runs until the first refresh and cancels there
func abortsCycle(t *testing.T, h *harness) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.portal.browser.onRefresh = func() {
		cancel()
		h.portal.login()
	}

	booking, err := h.booker.Run(ctx)
	assert.Nil(t, booking)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "booking interrupted")
	assert.Equal(t, 1, h.portal.browser.refreshes)
	assert.Zero(t, h.portal.confirmations)
}

func TestBooker_RefreshesWhenNothingQualifies(t *testing.T) {
	t.Run("dates past the limit", func(t *testing.T) {
		h := newHarness(testSettings(), func(p *portal) {
			p.months = [][]*fakeElement{{day("2021-07-01", true), day("2021-07-31", false)}}
		})
		abortsCycle(t, h)
		assert.True(t, h.logged(logrus.WarnLevel, "Cycle aborted: no date found"))
	})

	t.Run("no time slots", func(t *testing.T) {
		h := newHarness(testSettings(), func(p *portal) {
			p.slots = nil
		})
		abortsCycle(t, h)
		assert.True(t, h.logged(logrus.WarnLevel, "Cycle aborted: no time slot available"))
	})

	t.Run("stale time slot", func(t *testing.T) {
		h := newHarness(testSettings(), func(p *portal) {
			stale := button("09:00 - 09:15")
			stale.clickErr = errClick
			p.slots = []*fakeElement{stale}
		})
		abortsCycle(t, h)
	})

	t.Run("empty calendar", func(t *testing.T) {
		h := newHarness(testSettings(), func(p *portal) {
			p.months = [][]*fakeElement{{}}
		})
		abortsCycle(t, h)
	})
}

func TestBooker_StopsOnCancelledContext(t *testing.T) {
	h := newHarness(testSettings(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	booking, err := h.booker.Run(ctx)
	assert.Nil(t, booking)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.portal.confirmations)
}

func TestBooker_RefreshFailureIsFatal(t *testing.T) {
	crash := errors.New("browser crashed")

	t.Run("after a lost race", func(t *testing.T) {
		h := newHarness(testSettings(), func(p *portal) {
			p.outcomes = []string{popupFailure}
		})
		h.portal.browser.refreshErr = crash

		booking, err := h.booker.Run(context.Background())
		assert.Nil(t, booking)
		assert.ErrorIs(t, err, crash)
		assert.Equal(t, 1, h.portal.confirmations)
	})

	t.Run("while waiting for the login form", func(t *testing.T) {
		h := newHarness(testSettings(), func(p *portal) {
			p.incompleteLogins = 1
		})
		h.portal.browser.refreshErr = crash

		_, err := h.booker.Run(context.Background())
		assert.ErrorIs(t, err, crash)
		assert.Zero(t, h.portal.confirmations)
	})
}

type lastSlot struct{}

func (lastSlot) Choose(slots []Candidate) Candidate { return slots[len(slots)-1] }

func TestBooker_SlotPolicy(t *testing.T) {
	h := newHarness(testSettings(), nil, WithSlotPolicy(lastSlot{}))

	booking, err := h.booker.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "09:15 - 09:30", booking.Slot)
}

func TestNewSlotPolicy(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	slots := candidates("09:00", "09:15", "09:30")

	assert.Equal(t, "09:00", NewSlotPolicy(entities.SlotFirst, rng).Choose(slots).Text)

	random := NewSlotPolicy(entities.SlotRandom, rng)
	assert.IsType(t, RandomSlot{}, random)
	for range 20 {
		assert.Contains(t, texts(slots), random.Choose(slots).Text)
	}
}
