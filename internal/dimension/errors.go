package dimension

import (
	"errors"
	"fmt"
)

// SyntaxError reports bracket text that is not a sequence of balanced groups.
type SyntaxError struct {
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("dimension %q: %s", e.Text, e.Reason)
}

// RangeError reports a literal range whose inclusive count is not positive,
// such as [0:7].
type RangeError struct {
	Range string
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range [%s] has non-positive size %d", e.Range, e.Count)
}

// ConversionError reports a bound that is neither an integer nor a recognised
// symbolic form. The term is kept as opaque text.
type ConversionError struct {
	Bound string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("dimension %q cannot be converted to an integer", e.Bound)
}

// IsRecoverable reports whether err holds only conversion errors, in which
// case the dimension returned alongside it is usable.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !IsRecoverable(e) {
				return false
			}
		}
		return true
	}
	var ce *ConversionError
	return errors.As(err, &ce)
}

// Messages flattens err into one message per joined error.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, Messages(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
