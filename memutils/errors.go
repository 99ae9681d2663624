package memutils

import "github.com/pkg/errors"

// CapacityExhaustedError is the error returned from ClampSlots when a pool has already reached its slot limit
var CapacityExhaustedError error = errors.New("slot limit reached")
