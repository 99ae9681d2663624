package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// DoubleClamped doubles value, saturating at limit instead of overflowing
func DoubleClamped[T constraints.Integer](value, limit T) T {
	if value > limit/2 {
		return limit
	}
	return value * 2
}

// ClampSlots limits a requested page size to the slots still available under a
// capacity limit. It returns an error wrapping CapacityExhaustedError when nothing
// is left.
func ClampSlots[T constraints.Integer](requested, capacity, limit T) (T, error) {
	if capacity >= limit {
		return 0, cerrors.Wrapf(CapacityExhaustedError, "capacity is %d of a %d slot limit", capacity, limit)
	}

	remaining := limit - capacity
	if requested > remaining {
		return remaining, nil
	}
	return requested, nil
}
