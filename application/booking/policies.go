package booking

import (
	"math/rand/v2"

	"vaccine_booker/domain/entities"
)

// SlotPolicy picks the time slot to book among the available ones
type SlotPolicy interface {
	Choose(slots []Candidate) Candidate
}

// FirstSlot always books the earliest slot listed
type FirstSlot struct{}

func (FirstSlot) Choose(slots []Candidate) Candidate {
	return slots[0]
}

// RandomSlot books a uniformly random slot, to avoid racing everyone else
// for the first one
type RandomSlot struct {
	rng *rand.Rand
}

func (p RandomSlot) Choose(slots []Candidate) Candidate {
	return slots[p.rng.IntN(len(slots))]
}

// NewSlotPolicy - returns the policy for the configured strategy
func NewSlotPolicy(strategy entities.SlotStrategy, rng *rand.Rand) SlotPolicy {
	if strategy == entities.SlotRandom {
		return RandomSlot{rng: rng}
	}
	return FirstSlot{}
}
