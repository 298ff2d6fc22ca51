package camera

import "fmt"

// NotFoundError reports that no device satisfied any attempted constraint
// set, or that no media capability exists at all.
type NotFoundError struct {
	Facing Facing
	Err    error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("camera: no device found for facing %q: %v", e.Facing, e.Err)
	}
	return fmt.Sprintf("camera: no device found for facing %q", e.Facing)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// NotAvailableError reports that no active camera track exists to operate on.
type NotAvailableError struct {
	Op string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("camera: %s: no active camera stream", e.Op)
}

// NoFlashError reports that the active camera has no torch capability.
type NoFlashError struct{}

func (e *NoFlashError) Error() string {
	return "camera: no flash available"
}
