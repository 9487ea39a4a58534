package keywords

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for text that is empty where text is
	// required, or that cannot be decoded as text.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration is returned by NewConfig for malformed settings.
	ErrConfiguration = errors.New("configuration error")
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
