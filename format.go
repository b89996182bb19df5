package auditlog

import (
	"fmt"
	"reflect"
	"time"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
)

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date on which t occurs in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return time.Date(0, 1, 1, t.Hour, t.Minute, t.Second, 0, time.UTC).Format(timeLayout)
}

// Formatter renders raw member values for messages and titles.
type Formatter struct {
	Localizer Localizer
}

// Format applies the value rules: nil becomes the null symbol, temporal values use
// fixed layouts, booleans use the localizer's words, fmt.Stringer values (enums)
// use their symbolic name and everything else its default string form.
func (f Formatter) Format(v any) string {
	if v == nil {
		return f.Localizer.NullSymbol
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return f.Localizer.NullSymbol
		}
		rv = rv.Elem()
	}
	if rv.CanInterface() {
		v = rv.Interface()
	}
	switch x := v.(type) {
	case time.Time:
		return x.Format(dateTimeLayout)
	case Date:
		return x.String()
	case TimeOfDay:
		return x.String()
	case bool:
		return f.Localizer.FormatBool(x)
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
