package table

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadTimeFormat is returned when a timestamp cannot be parsed with the
// configured layout.
var ErrBadTimeFormat = errors.New("timestamp does not match layout")

// Granularity is the stepping unit of a time-bucket sequence.
type Granularity int

const (
	GranularityYear Granularity = iota
	GranularityMonth
	GranularityDay
	GranularityHour
)

// GranularityOf inspects a Go reference layout and returns the finest unit
// it encodes. "2006" is yearly, "2006-01" monthly, "2006-01-02" daily and
// anything mentioning the hour ("15") hourly.
func GranularityOf(layout string) Granularity {
	switch {
	case strings.Contains(layout, "15"):
		return GranularityHour
	case strings.Contains(layout, "02"):
		return GranularityDay
	case strings.Contains(layout, "01"):
		return GranularityMonth
	default:
		return GranularityYear
	}
}

// StrToTime parses s using the reference layout.
func StrToTime(s, layout string) (time.Time, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q with layout %q", ErrBadTimeFormat, s, layout)
	}
	return t, nil
}

// TimeToStr formats t using the reference layout. It is the inverse of
// StrToTime for well-formed inputs: TimeToStr(StrToTime(s)) == s.
func TimeToStr(t time.Time, layout string) string {
	return t.Format(layout)
}

// Bucket truncates a raw timestamp string to its bucket label at the
// granularity the layout encodes. Raw values may be finer than the layout
// (e.g. daily data bucketed monthly); the raw layout is tried first and the
// bucket layout second.
func Bucket(raw, rawLayout, bucketLayout string) (string, error) {
	t, err := StrToTime(raw, rawLayout)
	if err != nil {
		return "", err
	}
	return TimeToStr(t, bucketLayout), nil
}

// step advances t by one unit of the granularity.
func step(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityHour:
		return t.Add(time.Hour)
	case GranularityDay:
		return t.AddDate(0, 0, 1)
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(1, 0, 0)
	}
}

// BucketSequence returns the full ordered sequence of bucket labels between
// first and last (inclusive) at the layout's granularity, plus one bucket
// beyond last. The trailing bucket gives aggregation headroom so the final
// real bucket never has to absorb boundary spill.
func BucketSequence(first, last, layout string) ([]string, error) {
	lo, err := StrToTime(first, layout)
	if err != nil {
		return nil, err
	}
	hi, err := StrToTime(last, layout)
	if err != nil {
		return nil, err
	}
	if hi.Before(lo) {
		lo, hi = hi, lo
	}

	g := GranularityOf(layout)
	var out []string
	for t := lo; !t.After(hi); t = step(t, g) {
		out = append(out, TimeToStr(t, layout))
	}
	out = append(out, TimeToStr(step(hi, g), layout))
	return out, nil
}
