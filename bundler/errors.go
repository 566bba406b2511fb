package bundler

import "fmt"

// ResolutionError reports an entry file or transitive dependency that
// could not be located or read.
type ResolutionError struct {
	Path   string
	Detail string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bundler: cannot resolve %s: %s: %v", e.Path, e.Detail, e.Err)
	}
	return fmt.Sprintf("bundler: cannot resolve %s: %s", e.Path, e.Detail)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// SyntaxError reports an unparsable contributing source file.
type SyntaxError struct {
	Path   string
	Detail string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("bundler: syntax error in %s: %s", e.Path, e.Detail)
}

// MinifyError reports malformed input to the minifier.
type MinifyError struct {
	Detail string
}

func (e *MinifyError) Error() string {
	return fmt.Sprintf("minify: %s", e.Detail)
}
