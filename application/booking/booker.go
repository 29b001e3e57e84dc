package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"vaccine_booker/domain/entities"
	"vaccine_booker/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// errCycleReset means the page was already put back in a usable state
	errCycleReset = errors.New("cycle reset")
	errNoLocation = errors.New("no location available")
	errNoDate     = errors.New("no date found")
	errNoSlot     = errors.New("no time slot available")
)

// fatalError stops the loop; everything else is retried
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Booker drives the portal screens until an appointment is confirmed
type Booker struct {
	browser  interfaces.Browser
	waiter   *Waiter
	settings *entities.Settings
	clock    interfaces.Clock
	rng      *rand.Rand
	slots    SlotPolicy
	logger   *logrus.Logger
	session  string
}

// Option configures a Booker
type Option func(*Booker)

// WithClock replaces the wall clock
func WithClock(clock interfaces.Clock) Option {
	return func(b *Booker) {
		b.clock = clock
	}
}

// WithRand sets the random source used for waits and random slot picking
func WithRand(rng *rand.Rand) Option {
	return func(b *Booker) {
		b.rng = rng
	}
}

// WithSlotPolicy overrides the policy derived from the settings
func WithSlotPolicy(policy SlotPolicy) Option {
	return func(b *Booker) {
		b.slots = policy
	}
}

// NewBooker - creates a booker owning the given browser session
func NewBooker(browser interfaces.Browser, settings *entities.Settings, logger *logrus.Logger, opts ...Option) *Booker {
	b := &Booker{
		browser:  browser,
		settings: settings,
		clock:    SystemClock(),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		logger:   logger,
		session:  uuid.NewString(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.waiter = NewWaiter(browser, b.clock)
	if b.slots == nil {
		b.slots = NewSlotPolicy(settings.SlotStrategy, b.rng)
	}

	return b
}

// Run opens the portal and repeats booking cycles until one succeeds or ctx
// is cancelled
func (b *Booker) Run(ctx context.Context) (*entities.Booking, error) {
	log := b.logger.WithField("session", b.session)
	s := b.settings

	log.Infof("Loading platform ulss%s", s.Facility)
	if err := b.browser.Navigate(ctx, s.FacilityURL()); err != nil {
		return nil, fmt.Errorf("failed to open portal: %w", err)
	}

	log.Infof("Automatic vaccine booking for: %s", s.Name)
	log.Infof("Preferred locations (in order): %s", strings.Join(s.Preferences, ", "))
	log.Infof("Acceptable dates: %s - %s", s.MinDate.Format(dateLayout), s.MaxDate.Format(dateLayout))

	for cycle := 1; ; cycle++ {
		clog := log.WithField("cycle", cycle)

		wait := s.BaseWait + time.Duration(b.rng.Float64()*float64(s.BaseWait))
		clog.Infof("Waiting %.2f seconds", wait.Seconds())
		if err := b.clock.Sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("booking interrupted: %w", err)
		}

		booking, err := b.runCycle(ctx, clog)
		if err == nil {
			booking.Cycles = cycle
			return booking, nil
		}

		var fatal *fatalError
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("booking interrupted: %w", ctx.Err())
		case errors.As(err, &fatal):
			return nil, fatal.err
		case errors.Is(err, errCycleReset):
			continue
		case errors.Is(err, interfaces.ErrSlotTaken):
			clog.Warn("Someone was faster, booking failed")
		default:
			clog.Warnf("Cycle aborted: %v", err)
		}

		if err := b.refresh(ctx); err != nil {
			return nil, errors.Unwrap(err)
		}
	}
}

// cycleState carries what was chosen on earlier screens
type cycleState struct {
	location Candidate
	day      CalendarDay
	slot     Candidate
}

func (b *Booker) runCycle(ctx context.Context, log *logrus.Entry) (*entities.Booking, error) {
	var state cycleState

	stage := entities.StageLogin
	for stage != entities.StageResult {
		next, err := b.step(ctx, log, stage, &state)
		if err != nil {
			log.WithField("stage", stage).Debugf("stage failed: %v", err)
			return nil, err
		}
		stage = next
	}

	booking := &entities.Booking{
		Location:    strings.TrimSpace(state.location.Text),
		Date:        state.day.Date,
		Slot:        strings.TrimSpace(state.slot.Text),
		ConfirmedAt: b.clock.Now(),
	}

	log.Infof("Booked %s on %s, %s", booking.Location, booking.Date.Format(dateLayout), booking.Slot)
	return booking, nil
}

// step runs one screen and returns the next one
func (b *Booker) step(ctx context.Context, log *logrus.Entry, stage entities.Stage, state *cycleState) (entities.Stage, error) {
	switch stage {
	case entities.StageLogin:
		return entities.StageServiceTier, b.login(ctx, log)
	case entities.StageServiceTier:
		return entities.StageLocation, b.selectService(ctx, log)
	case entities.StageLocation:
		return entities.StageDateScan, b.selectLocation(ctx, log, state)
	case entities.StageDateScan:
		return entities.StageTimeSlot, b.scanDates(ctx, log, state)
	case entities.StageTimeSlot:
		return entities.StagePersonalDetails, b.selectSlot(ctx, log, state)
	case entities.StagePersonalDetails:
		return entities.StageConfirm, b.fillDetails(ctx, log)
	case entities.StageConfirm:
		return entities.StageResult, b.confirm(ctx, log)
	default:
		return stage, &fatalError{err: fmt.Errorf("unknown stage: %s", stage)}
	}
}

// refresh reloads the page; a browser that cannot reload is unusable
func (b *Booker) refresh(ctx context.Context) error {
	if err := b.browser.Refresh(ctx); err != nil {
		return &fatalError{err: fmt.Errorf("failed to refresh page: %w", err)}
	}
	return nil
}
