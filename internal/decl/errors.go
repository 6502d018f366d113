package decl

import (
	"errors"
	"fmt"
)

// ErrScanFailure is matched by every *ScanFailure via errors.Is.
var ErrScanFailure = errors.New("scan failure")

// ScanFailure is returned by Extract when the scanner produced no syntax root.
// It is terminal: no tables accompany it.
type ScanFailure struct {
	Path   string
	Reason string
}

func (e *ScanFailure) Error() string {
	return fmt.Sprintf("failed to parse declarations in %s: %s", e.Path, e.Reason)
}

// Is reports whether target is ErrScanFailure.
func (e *ScanFailure) Is(target error) bool {
	return target == ErrScanFailure
}
