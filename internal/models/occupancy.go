package models

import (
	"errors"
	"fmt"
)

// OccupancyState — производное состояние слота, сводка потребленной емкости.
type OccupancyState string

const (
	OccupancyEmpty OccupancyState = "empty"
	OccupancyHalf  OccupancyState = "half"
	OccupancyFull  OccupancyState = "full"
)

// ErrDataIntegrity означает, что сохраненные брони нарушают инвариант
// емкости слота. Такое состояние никогда не сглаживается молча.
var ErrDataIntegrity = errors.New("slot capacity invariant violated")

// ReduceOccupancy сводит счетчики активных броней слота к состоянию.
// fullCount и halfCount — количество активных броней режима full и half,
// ссылающихся на слот.
func ReduceOccupancy(fullCount, halfCount int) (OccupancyState, error) {
	if fullCount > 0 {
		if fullCount > 1 || halfCount > 0 {
			return OccupancyFull, fmt.Errorf("%w: full=%d half=%d", ErrDataIntegrity, fullCount, halfCount)
		}
		return OccupancyFull, nil
	}

	switch {
	case halfCount == 0:
		return OccupancyEmpty, nil
	case halfCount == 1:
		return OccupancyHalf, nil
	case halfCount == SlotCapacityUnits:
		return OccupancyFull, nil
	default:
		return OccupancyFull, fmt.Errorf("%w: full=0 half=%d", ErrDataIntegrity, halfCount)
	}
}

// Admits reports whether a booking of the given mode may be admitted
// into a slot currently in this state.
func (s OccupancyState) Admits(mode BookingMode) bool {
	if mode == ModeFull {
		return s == OccupancyEmpty
	}
	return s == OccupancyEmpty || s == OccupancyHalf
}

// UnitsConsumed returns the capacity units the state represents.
func (s OccupancyState) UnitsConsumed() int {
	switch s {
	case OccupancyHalf:
		return 1
	case OccupancyFull:
		return SlotCapacityUnits
	default:
		return 0
	}
}
