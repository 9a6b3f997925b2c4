package ppo

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/goppo/buffer/gae"
)

// ConfigError reports a configuration that cannot be trained with.
// ConfigErrors are detected before any parameter is updated.
type ConfigError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (c *ConfigError) Error() string {
	return c.Op + ": " + c.Err.Error()
}

// NumericError reports a non-finite value in a computed quantity,
// such as an advantage, a return, or a loss.
type NumericError struct {
	Quantity string
	Err      error
}

// Error satisfies the error interface
func (n *NumericError) Error() string {
	return fmt.Sprintf("non-finite %s: %v", n.Quantity, n.Err)
}

func configErrorf(op, format string, args ...interface{}) error {
	return &ConfigError{Op: op, Err: fmt.Errorf(format, args...)}
}

// IsConfigError returns whether or not an error reports an invalid
// configuration
func IsConfigError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigError)
	return ok
}

// IsNumericError returns whether or not an error reports a non-finite
// quantity, either in a loss or in the advantages and returns computed
// from a batch.
func IsNumericError(err error) bool {
	switch errors.Cause(err).(type) {
	case *NumericError, *gae.NumericError:
		return true
	}
	return false
}
