package gae

import "fmt"

// NumericError reports a non-finite entry in a computed quantity,
// usually caused by exploding values or a badly scaled reward.
type NumericError struct {
	Quantity string
	Row, Col int
	Value    float64
}

// Error satisfies the error interface
func (n *NumericError) Error() string {
	return fmt.Sprintf("non-finite %s %v at (%d, %d)", n.Quantity, n.Value,
		n.Row, n.Col)
}

// IsNumericError returns whether or not an error reports a non-finite
// quantity
func IsNumericError(err error) bool {
	_, ok := err.(*NumericError)
	return ok
}
