// Package ecs holds the entity registry and the closed set of component
// kinds that can be attached to an entity.
package ecs

import (
	"fmt"
	"math/bits"
)

// EntityID identifies an entity for the lifetime of a run. IDs start at 1
// and are never reused.
type EntityID int

// NoEntity marks an absent source or target (ambient events, untargeted options).
const NoEntity EntityID = -1

// Kind enumerates the component variants.
type Kind uint8

const (
	KindPosition Kind = iota
	KindHealth
	KindInventory
	KindCurrency
	KindNeeds
	KindRelationship
	KindSchedule
	KindOccupation
	KindMemory
	KindGoal
	kindCount
)

var kindNames = [kindCount]string{
	"position", "health", "inventory", "currency", "needs",
	"relationship", "schedule", "occupation", "memory", "goal",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k names one of the closed component variants.
func (k Kind) Valid() bool { return k < kindCount }

// ParseKind converts the save-file name of a component kind back to a Kind.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: component kind %q", ErrUnknownEnum, s)
}

// AllKinds lists every kind in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Component is implemented by every component variant.
type Component interface {
	Kind() Kind
}

// Mask is a set of component kinds, used for queries.
type Mask uint32

// MaskOf builds a mask from the given kinds.
func MaskOf(kinds ...Kind) Mask {
	var m Mask
	for _, k := range kinds {
		m = m.Set(k)
	}
	return m
}

// Set returns m with k added.
func (m Mask) Set(k Kind) Mask { return m | 1<<k }

// Clear returns m with k removed.
func (m Mask) Clear(k Kind) Mask { return m &^ (1 << k) }

// Has reports whether k is in the mask.
func (m Mask) Has(k Kind) bool { return m&(1<<k) != 0 }

// ContainsAll reports whether every kind in other is also in m.
func (m Mask) ContainsAll(other Mask) bool { return m&other == other }

// ContainsAny reports whether m and other share at least one kind.
func (m Mask) ContainsAny(other Mask) bool { return m&other != 0 }

// Count returns the number of kinds in the mask.
func (m Mask) Count() int { return bits.OnesCount32(uint32(m)) }
