// Package timeslot holds the pure time math of the scheduler: converting
// drag positions into quantized 5-minute clock slots, building wall-clock
// instants from a date plus a time of day, and computing the box geometry
// the rendering layer consumes.
//
// Everything here is stateless. All duration arithmetic is in whole
// minutes; sub-minute precision is not supported.
package timeslot

import (
	"fmt"
	"math"
	"time"
)

// SlotMinutes is the quantization granularity for drag placement.
const SlotMinutes = 5

// lastSlot is the final valid slot of a day (23:55). Pixel offsets past the
// 24h timeline clamp here instead of spilling into the next day.
var lastSlot = Clock{Hour: 23, Minute: 55}

// Clock is a time of day in whole minutes.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Minutes returns the offset from midnight in minutes.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

// Before reports whether c is strictly earlier in the day than other.
func (c Clock) Before(other Clock) bool { return c.Minutes() < other.Minutes() }

// Quantize converts a horizontal pixel offset on the day timeline into a
// clock slot. The minute is rounded to the nearest multiple of SlotMinutes;
// rounding carry past :60 moves into the next hour. Offsets beyond the 24h
// timeline clamp to the last valid slot, negative offsets clamp to 00:00.
func Quantize(pixelOffset, pixelsPerHour float64) Clock {
	if pixelsPerHour <= 0 {
		return Clock{}
	}
	// The epsilon keeps Quantize a fixed point under round-tripping: at
	// fractional scales the pixel offset of a slot can land a few ulps below
	// the exact minute, and a bare floor would slide one minute back.
	total := int(math.Floor(pixelOffset/pixelsPerHour*60 + 1e-9))
	if total < 0 {
		total = 0
	}
	hour := total / 60
	minute := int(math.Round(float64(total%60)/SlotMinutes)) * SlotMinutes
	if minute == 60 {
		hour++
		minute = 0
	}
	if hour > 23 {
		return lastSlot
	}
	return Clock{Hour: hour, Minute: minute}
}

// PixelOffset is the inverse of Quantize for a given scale: the left edge of
// the slot on the timeline.
func PixelOffset(c Clock, pixelsPerHour float64) float64 {
	return float64(c.Minutes()) * pixelsPerHour / 60
}

// NormalizeClock applies the forgiving-edit policy for direct numeric input:
// out-of-range hours or minutes fall back to 0 rather than failing the edit.
func NormalizeClock(hour, minute int) Clock {
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if minute < 0 || minute > 59 {
		minute = 0
	}
	return Clock{Hour: hour, Minute: minute}
}

// WithTimeOfDay sets the wall-clock time of day on the given date, zeroing
// seconds and below.
func WithTimeOfDay(date time.Time, c Clock) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// StartOfDay truncates an instant to midnight of its calendar date.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether two instants fall on the same calendar date in
// the schedule's reference calendar.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// Box is the horizontal geometry of an event on the timeline, in pixels.
// The renderer owns everything else about presentation.
type Box struct {
	Left  float64
	Width float64
}

// EventBox computes the (left, width) box of an event at the caller-supplied
// scale. The scale is supplied per call and never stored.
func EventBox(start, end time.Time, pixelsPerHour float64) Box {
	startMin := start.Hour()*60 + start.Minute()
	durMin := int(end.Sub(start) / time.Minute)
	return Box{
		Left:  float64(startMin) * pixelsPerHour / 60,
		Width: float64(durMin) * pixelsPerHour / 60,
	}
}
