package shop

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidWindow is returned for malformed "HH:MM-HH:MM" values.
var ErrInvalidWindow = errors.New("invalid opening window")

// Window is an opening interval in minutes after midnight. A Close at or
// before Open wraps past midnight.
type Window struct {
	Open  int
	Close int
}

// ParseWindow reads "07:00-22:00".
func ParseWindow(value string) (Window, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, value)
	}
	open, err := parseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, value)
	}
	closing, err := parseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, value)
	}
	return Window{Open: open, Close: closing}, nil
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether minute-of-day m falls inside the window.
func (w Window) Contains(m int) bool {
	if w.Close > w.Open {
		return m >= w.Open && m < w.Close
	}
	return m >= w.Open || m < w.Close
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Open/60, w.Open%60, w.Close/60, w.Close%60)
}

// Hours holds weekday and weekend windows evaluated in Location.
type Hours struct {
	Weekday  Window
	Weekend  Window
	Location *time.Location
}

// DefaultHours mirrors the shop's published schedule.
func DefaultHours() Hours {
	return Hours{
		Weekday:  Window{Open: 7 * 60, Close: 22 * 60},
		Weekend:  Window{Open: 8 * 60, Close: 23 * 60},
		Location: Jakarta(),
	}
}

// Jakarta returns Asia/Jakarta, or a fixed UTC+7 zone when tzdata is missing.
func Jakarta() *time.Location {
	if loc, err := time.LoadLocation("Asia/Jakarta"); err == nil {
		return loc
	}
	return time.FixedZone("WIB", 7*60*60)
}

// IsOpen reports whether the shop is open at now.
func (h Hours) IsOpen(now time.Time) bool {
	if h.Location != nil {
		now = now.In(h.Location)
	}
	window := h.Weekday
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		window = h.Weekend
	}
	return window.Contains(now.Hour()*60 + now.Minute())
}
