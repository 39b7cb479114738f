package controller

import (
	"fmt"
	"math/bits"
)

// BoneMask is a named bit set over skeleton bone indices used for partial
// body blending.
type BoneMask struct {
	Name string
	Bits []uint64
}

func NewBoneMask(name string, bones ...int) BoneMask {
	m := BoneMask{Name: name}
	for _, b := range bones {
		m.Set(b)
	}
	return m
}

func (m *BoneMask) Set(bone int) {
	if bone < 0 {
		return
	}
	word := bone / 64
	for len(m.Bits) <= word {
		m.Bits = append(m.Bits, 0)
	}
	m.Bits[word] |= 1 << uint(bone%64)
}

func (m *BoneMask) Has(bone int) bool {
	if bone < 0 || bone/64 >= len(m.Bits) {
		return false
	}
	return m.Bits[bone/64]&(1<<uint(bone%64)) != 0
}

// Bones lists the set bone indices in ascending order.
func (m *BoneMask) Bones() []int {
	var out []int
	for w, word := range m.Bits {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, w*64+b)
			word &= word - 1
		}
	}
	return out
}

// highest returns the largest set bone index, or -1.
func (m *BoneMask) highest() int {
	for w := len(m.Bits) - 1; w >= 0; w-- {
		if m.Bits[w] != 0 {
			return w*64 + 63 - bits.LeadingZeros64(m.Bits[w])
		}
	}
	return -1
}

func (m *BoneMask) validate(sk Skeleton) error {
	if hi := m.highest(); hi >= sk.BoneCount() {
		return fmt.Errorf("%w: mask %q references bone %d, skeleton has %d", ErrInvalidMask, m.Name, hi, sk.BoneCount())
	}
	return nil
}
