package pipeline

import "fmt"

// StartupError reports a resource that kept the installation from
// starting: an overlay asset, the detector model or the camera
type StartupError struct {
	Resource string
	Path     string
	Err      error
}

func (e *StartupError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s unavailable (%s): %v", e.Resource, e.Path, e.Err)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Resource, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
