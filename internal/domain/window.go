package domain

import "time"

// MonthDay is a calendar position with the year ignored.
type MonthDay struct {
	Month time.Month
	Day   int
}

// MonthDayOf returns the month and day of t.
func MonthDayOf(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

func (md MonthDay) ordinal() int {
	return int(md.Month)*100 + md.Day
}

// Window is a seasonal date range on the month-day circle. When End precedes
// Start the window wraps across the new year.
type Window struct {
	Start MonthDay
	End   MonthDay
}

// NewWindow builds a window from trend dates. It reports false when either
// bound is missing; such a window contains nothing.
func NewWindow(start, end *time.Time) (Window, bool) {
	if start == nil || end == nil {
		return Window{}, false
	}
	return Window{Start: MonthDayOf(*start), End: MonthDayOf(*end)}, true
}

// Wraps reports whether the window spans the year boundary.
func (w Window) Wraps() bool {
	return w.Start.ordinal() > w.End.ordinal()
}

// Contains reports whether md falls inside the window, bounds inclusive.
func (w Window) Contains(md MonthDay) bool {
	s, e, x := w.Start.ordinal(), w.End.ordinal(), md.ordinal()
	if s <= e {
		return s <= x && x <= e
	}
	return x >= s || x <= e
}
