// Package timefmt converts between times and strings using strftime
// directives such as %Y-%m-%d %H:%M:%S.
package timefmt

import (
	"fmt"
	"time"

	"github.com/itchyny/timefmt-go"
)

// DefaultLayout is used when an empty layout is given.
const DefaultLayout = "%Y-%m-%d %H:%M:%S"

func layoutOrDefault(layout string) string {
	if layout == "" {
		return DefaultLayout
	}
	return layout
}

// Time2Str formats t with a strftime layout.
func Time2Str(t time.Time, layout string) string {
	return timefmt.Format(t, layoutOrDefault(layout))
}

// Str2Time parses s with a strftime layout. Without a zone directive in the
// layout the result is in UTC.
func Str2Time(s, layout string) (time.Time, error) {
	layout = layoutOrDefault(layout)
	t, err := timefmt.Parse(s, layout)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q with %q: %w", s, layout, err)
	}
	return t, nil
}

// Str2TimeIn is Str2Time interpreting zone-less input in loc.
func Str2TimeIn(s, layout string, loc *time.Location) (time.Time, error) {
	layout = layoutOrDefault(layout)
	t, err := timefmt.ParseInLocation(s, layout, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q with %q: %w", s, layout, err)
	}
	return t, nil
}
