package bookings

import (
	"hash/fnv"

	"tirtha/models"
)

// Priority categories enter through their own gates; Gate 2 has the ramp,
// Gate 3 sits next to the creche. General bookings spread across the
// remaining gates by slot so one gate is not swamped at window change.
var generalGates = []string{"Gate 1", "Gate 4", "Gate 5"}

// AssignGate is deterministic given (category, slotID): the same booking
// inputs always produce the same gate.
func AssignGate(category, slotID string) string {
	switch category {
	case models.CategoryElderly, models.CategoryDisabled:
		return "Gate 2"
	case models.CategoryWomenChild:
		return "Gate 3"
	}
	h := fnv.New32a()
	h.Write([]byte(slotID))
	return generalGates[h.Sum32()%uint32(len(generalGates))]
}
