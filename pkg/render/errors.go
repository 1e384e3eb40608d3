package render

import "fmt"

// UnsupportedConstructError reports IR that the chosen dialect profile
// cannot express. Fatal for that dialect choice only; compiling the same
// plan under a different profile may succeed.
type UnsupportedConstructError struct {
	Dialect   string
	Construct string
}

// Error implements error.
func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct: dialect %s cannot express %s", e.Dialect, e.Construct)
}
