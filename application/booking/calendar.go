package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"vaccine_booker/domain/interfaces"
)

const (
	dateLayout         = "2006-01-02"
	availableDayMarker = "highlight"
)

// CalendarDay is one in-month cell of the displayed calendar
type CalendarDay struct {
	Element   interfaces.Element
	Date      time.Time
	Available bool
}

// MonthVerdict tells the date scan what to do after reading a month
type MonthVerdict int

const (
	// PickDate means at least one day qualifies
	PickDate MonthVerdict = iota
	// NextMonth means nothing qualifies but later months may
	NextMonth
	// Exhausted means the month already reaches the last acceptable date
	Exhausted
)

func (v MonthVerdict) String() string {
	switch v {
	case PickDate:
		return "pick"
	case NextMonth:
		return "next month"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("MonthVerdict(%d)", int(v))
	}
}

// AvailableDays returns the highlighted days in calendar order
func AvailableDays(days []CalendarDay) []CalendarDay {
	var available []CalendarDay
	for _, d := range days {
		if d.Available {
			available = append(available, d)
		}
	}
	return available
}

// EvaluateMonth keeps the available days within [minDate, maxDate] and decides
// whether to pick one, look at the next month or give up. days must be sorted
// and non-empty.
func EvaluateMonth(days []CalendarDay, minDate, maxDate time.Time) ([]CalendarDay, MonthVerdict) {
	var qualifying []CalendarDay
	for _, d := range AvailableDays(days) {
		if !d.Date.Before(minDate) && !d.Date.After(maxDate) {
			qualifying = append(qualifying, d)
		}
	}

	if len(qualifying) == 0 {
		if !days[len(days)-1].Date.Before(maxDate) {
			return nil, Exhausted
		}
		return nil, NextMonth
	}

	if qualifying[0].Date.After(maxDate) {
		return nil, Exhausted
	}
	return qualifying, PickDate
}

// readMonth reads the in-month cells of the calendar, sorted by date
func readMonth(ctx context.Context, cells []interfaces.Element) ([]CalendarDay, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: calendar has no days", interfaces.ErrUnexpectedPage)
	}

	days := make([]CalendarDay, 0, len(cells))
	for _, cell := range cells {
		raw, ok, err := cell.Attribute(ctx, "data-date")
		if err != nil {
			return nil, fmt.Errorf("failed to read day date: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: calendar day without data-date", interfaces.ErrUnexpectedPage)
		}
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad calendar date %q", interfaces.ErrUnexpectedPage, raw)
		}

		class, _, err := cell.Attribute(ctx, "class")
		if err != nil {
			return nil, fmt.Errorf("failed to read day class: %w", err)
		}

		days = append(days, CalendarDay{
			Element:   cell,
			Date:      date,
			Available: strings.Contains(class, availableDayMarker),
		})
	}

	slices.SortStableFunc(days, func(a, b CalendarDay) int {
		return a.Date.Compare(b.Date)
	})
	return days, nil
}

func formatDays(days []CalendarDay) string {
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.Date.Format(dateLayout)
	}
	return strings.Join(dates, ", ")
}
