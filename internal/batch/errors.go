package batch

import "fmt"

// UnsupportedFormatError reports audio that cannot be accepted, either by
// extension at submit time or by content at decode time.
type UnsupportedFormatError struct {
	Name   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported audio format: %s", e.Name)
	}
	return fmt.Sprintf("unsupported audio format: %s: %s", e.Name, e.Reason)
}
