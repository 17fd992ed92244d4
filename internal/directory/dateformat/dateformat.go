// Package dateformat converts dates of birth between the display form shown to
// users (DD/MM/YYYY) and the form the remote store expects on the wire.
//
// The two forms are distinct types so a conversion cannot be skipped silently.
// When the wire layout is MM/DD/YYYY both forms are slash separated two-two-four
// strings; a value is taken as already being in wire form only when reading it
// as DD/MM fails and reading it as MM/DD yields a day above 12. Dates whose day
// and month are both 12 or below cannot be told apart and are logged as
// ambiguous instead of guessed.
package dateformat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DisplayDate is a DD/MM/YYYY string.
type DisplayDate string

// WireDate is a date in the remote store's layout.
type WireDate string

func (d DisplayDate) String() string { return string(d) }
func (d WireDate) String() string    { return string(d) }

// WireLayout selects the store's date layout.
type WireLayout int

const (
	// WireISO is YYYY-MM-DD.
	WireISO WireLayout = iota
	// WireUS is MM/DD/YYYY.
	WireUS
)

const (
	displayLayout = "02/01/2006"
	isoLayout     = "2006-01-02"
	usLayout      = "01/02/2006"

	// DisplayPattern is the human-readable display layout.
	DisplayPattern = "DD/MM/YYYY"
)

var (
	ErrMalformed       = errors.New("malformed date")
	ErrNotCalendarDate = errors.New("not a calendar date")
)

var (
	displayRe = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/(\d{4})$`)
	usRe      = regexp.MustCompile(`^(0[1-9]|1[0-2])/(0[1-9]|[12][0-9]|3[01])/(\d{4})$`)
	isoRe     = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)
)

// FormatError reports a date that could not be parsed or converted.
type FormatError struct {
	Value    string
	Expected string
	Err      error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("date %q (expected %s): %v", e.Value, e.Expected, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (l WireLayout) String() string {
	if l == WireUS {
		return "MM/DD/YYYY"
	}
	return "YYYY-MM-DD"
}

func (l WireLayout) goLayout() string {
	if l == WireUS {
		return usLayout
	}
	return isoLayout
}

// ParseWireLayout reads a configured layout name.
func ParseWireLayout(s string) (WireLayout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iso", "yyyy-mm-dd":
		return WireISO, nil
	case "us", "mm/dd/yyyy":
		return WireUS, nil
	}
	return WireISO, fmt.Errorf("unknown wire date layout %q", s)
}

// ParseDisplay parses a DD/MM/YYYY string and checks it is a real calendar date.
func ParseDisplay(s string) (time.Time, error) {
	m := displayRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, &FormatError{Value: s, Expected: DisplayPattern, Err: ErrMalformed}
	}
	return calendarDate(s, DisplayPattern, m[3], m[2], m[1])
}

// FormatDisplay renders t as a DisplayDate.
func FormatDisplay(t time.Time) DisplayDate {
	return DisplayDate(t.Format(displayLayout))
}

func calendarDate(raw, expected, year, month, day string) (time.Time, error) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, &FormatError{Value: raw, Expected: expected, Err: ErrNotCalendarDate}
	}
	return t, nil
}

func parseISO(s string) (time.Time, error) {
	if len(s) > len(isoLayout) && s[len(isoLayout)] == 'T' {
		s = s[:len(isoLayout)]
	}
	m := isoRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, &FormatError{Value: s, Expected: WireISO.String(), Err: ErrMalformed}
	}
	return calendarDate(s, WireISO.String(), m[1], m[2], m[3])
}

func parseUS(s string) (time.Time, error) {
	m := usRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, &FormatError{Value: s, Expected: WireUS.String(), Err: ErrMalformed}
	}
	return calendarDate(s, WireUS.String(), m[3], m[1], m[2])
}

// Ambiguous reports whether a valid slash date reads as a different valid date
// when day and month are swapped.
func Ambiguous(t time.Time) bool {
	return t.Day() <= 12 && int(t.Month()) <= 12 && t.Day() != int(t.Month())
}

// Formatter converts between display and wire forms for one store layout.
type Formatter struct {
	layout WireLayout
	logger *slog.Logger
}

type Option func(*Formatter)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Formatter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Formatter for the given wire layout.
func New(layout WireLayout, opts ...Option) *Formatter {
	f := &Formatter{
		layout: layout,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Layout returns the wire layout.
func (f *Formatter) Layout() WireLayout {
	return f.layout
}

// ToWire converts a display date to the wire layout.
func (f *Formatter) ToWire(d DisplayDate) (WireDate, error) {
	t, err := ParseDisplay(string(d))
	if err != nil {
		if f.layout == WireUS {
			if wt, werr := parseUS(string(d)); werr == nil && wt.Day() > 12 {
				f.logger.Debug("date already in wire layout", "date", string(d), "layout", f.layout.String())
				return WireDate(d), nil
			}
		}
		return "", err
	}
	if f.layout == WireUS && Ambiguous(t) {
		f.logger.Warn("ambiguous slash date, read as day first",
			"date", string(d),
			"wire", t.Format(usLayout),
		)
	}
	return WireDate(t.Format(f.layout.goLayout())), nil
}

// ToDisplay converts a wire or ISO date (or ISO timestamp) to DD/MM/YYYY.
func (f *Formatter) ToDisplay(w string) (DisplayDate, error) {
	w = strings.TrimSpace(w)
	if f.layout == WireUS && strings.Contains(w, "/") {
		t, err := parseUS(w)
		if err != nil {
			return "", err
		}
		return FormatDisplay(t), nil
	}
	t, err := parseISO(w)
	if err != nil {
		return "", err
	}
	return FormatDisplay(t), nil
}

// MaskInput formats raw keystrokes as a partial DD/MM/YYYY value: non-digits are
// dropped, at most eight digits are kept and slashes are inserted after the day
// and month.
func MaskInput(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 8 {
		digits = digits[:8]
	}
	switch {
	case len(digits) <= 2:
		return digits
	case len(digits) <= 4:
		return digits[:2] + "/" + digits[2:]
	default:
		return digits[:2] + "/" + digits[2:4] + "/" + digits[4:]
	}
}
