package fingerprint

import (
	"fmt"
	"sort"
)

// AnySlot asks the slot policy to choose.
const AnySlot = -1

// SlotPolicy decides which slot an enrollment writes to.
type SlotPolicy string

const (
	// SlotAuto uses the requested slot when given, else the lowest free one.
	SlotAuto SlotPolicy = "auto"
	// SlotLowestFree always uses the lowest free slot.
	SlotLowestFree SlotPolicy = "lowest_free"
	// SlotExplicit requires the caller to name the slot.
	SlotExplicit SlotPolicy = "explicit"
)

// Select returns the target slot.
//
// Parameters:
//   - requested: Caller's slot, or AnySlot
//   - capacity: Library size reported by the sensor
//   - occupied: Slots currently holding templates
//
// Returns:
//   - int: Slot in [0, capacity)
//   - error: ErrInvalidSlot, ErrSlotRequired or ErrLibraryFull
func (p SlotPolicy) Select(requested, capacity int, occupied []int) (int, error) {
	switch p {
	case SlotLowestFree:
		return lowestFree(capacity, occupied)
	case SlotExplicit:
		if requested == AnySlot {
			return 0, ErrSlotRequired
		}
		return requested, checkSlot(requested, capacity)
	default:
		if requested == AnySlot {
			return lowestFree(capacity, occupied)
		}
		return requested, checkSlot(requested, capacity)
	}
}

func checkSlot(slot, capacity int) error {
	if slot < 0 || slot >= capacity {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidSlot, slot, capacity)
	}
	return nil
}

func lowestFree(capacity int, occupied []int) (int, error) {
	used := append([]int(nil), occupied...)
	sort.Ints(used)

	next := 0
	for _, id := range used {
		if id > next {
			break
		}
		if id == next {
			next++
		}
	}
	if next >= capacity {
		return 0, fmt.Errorf("%w: %d of %d slots used", ErrLibraryFull, len(occupied), capacity)
	}
	return next, nil
}
