package sampler

import (
	"fmt"
	"io"
)

// Series is an append-only sequence of readings for one resource dimension.
type Series[T fmt.Stringer] struct {
	readings []T
}

// Append records one reading.
func (s *Series[T]) Append(v T) {
	s.readings = append(s.readings, v)
}

// Len returns the number of readings.
func (s *Series[T]) Len() int {
	return len(s.readings)
}

// Last returns the most recent reading.
func (s *Series[T]) Last() (T, bool) {
	var zero T
	if len(s.readings) == 0 {
		return zero, false
	}
	return s.readings[len(s.readings)-1], true
}

// Readings returns a copy of the recorded readings.
func (s *Series[T]) Readings() []T {
	out := make([]T, len(s.readings))
	copy(out, s.readings)
	return out
}

// WriteLines writes one "<i>: <reading>" line per reading, numbered from 1.
func (s *Series[T]) WriteLines(w io.Writer) error {
	for i, r := range s.readings {
		if _, err := fmt.Fprintf(w, "%d: %s\n", i+1, r); err != nil {
			return err
		}
	}
	return nil
}

// average keeps a running mean without retaining the samples.
type average struct {
	n    int
	mean float64
}

func (a *average) add(v float64) {
	a.n++
	a.mean += (v - a.mean) / float64(a.n)
}

func (a *average) value() float64 {
	return a.mean
}
