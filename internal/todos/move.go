package todos

import "fmt"

// Move returns a copy of items with the element at from moved to to. The
// other elements keep their relative order.
func Move[T any](items []T, from, to int) ([]T, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("%w: move %d -> %d in list of %d", ErrInvalidMove, from, to, n)
	}

	out := make([]T, 0, n)
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)

	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, nil
}
