package security

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig covers fatal setup problems: missing tools, missing pom.xml,
	// invalid options and an empty dependency set.
	ErrConfig = errors.New("configuration error")

	// ErrBaselineMismatch is returned by verification when committed files
	// differ from freshly computed content.
	ErrBaselineMismatch = errors.New("dependency security baseline is out of date")
)

// StaleFile names one baseline file that failed verification.
type StaleFile struct {
	Path   string
	Reason string
}

// MismatchError lists every stale file found by Verify.
type MismatchError struct {
	Stale []StaleFile
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	b.WriteString(ErrBaselineMismatch.Error())
	b.WriteString(":")
	for _, s := range e.Stale {
		fmt.Fprintf(&b, "\n  %s: %s", s.Path, s.Reason)
	}
	b.WriteString("\nrun 'artagon security update' and commit the result")
	return b.String()
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrBaselineMismatch
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
