// Package entropy derives reproducible random streams from the world seed
// and the calendar, so a run replayed from a save rolls the same dice.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	mrand "math/rand"
)

// Seed mixes base with the given parts into a new 64-bit seed.
func Seed(base int64, parts ...int64) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(base))
	h.Write(buf[:])
	for _, p := range parts {
		binary.LittleEndian.PutUint64(buf[:], uint64(p))
		h.Write(buf[:])
	}
	return int64(h.Sum64())
}

// ForDay returns a stream seeded from the world seed and a calendar day.
func ForDay(base int64, year, season, day int) *mrand.Rand {
	return mrand.New(mrand.NewSource(Seed(base, int64(year), int64(season), int64(day))))
}

// NewSeed returns a fresh seed from crypto/rand for runs started without one.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	s := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if s == 0 {
		s = 1
	}
	return s
}
