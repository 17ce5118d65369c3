// Package remap translates codebook indices between the full index space
// [0, n) and a reduced space of "used" indices.
//
// The mapping is not a perfect inverse: with the extra-slot policy every
// unknown index reports as len(used), and ToFull sends that slot back to full
// index 0.
package remap

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"

	"github.com/hupe1980/vqlayer/tensor"
)

var (
	// ErrShape is returned for index tensors with fewer than two axes.
	ErrShape = errors.New("remap: index tensor needs a batch axis and at least one more")

	// ErrIndexOutOfRange is returned by ToFull for reduced indices outside [0, ReEmbed()).
	ErrIndexOutOfRange = errors.New("remap: reduced index out of range")

	// ErrEmptyUsed is returned when the used set is empty.
	ErrEmptyUsed = errors.New("remap: used set is empty")
)

type policyKind uint8

const (
	policyRandom policyKind = iota
	policyExtra
	policyFixed
)

// UnknownPolicy decides the reduced index of a full index that is not in the used set.
type UnknownPolicy struct {
	kind  policyKind
	fixed int64
}

// UnknownRandom draws a uniformly random reduced index in [0, ReEmbed()).
func UnknownRandom() UnknownPolicy { return UnknownPolicy{kind: policyRandom} }

// UnknownExtra reports unknown indices as an extra slot len(used) and grows
// the reduced space by one.
func UnknownExtra() UnknownPolicy { return UnknownPolicy{kind: policyExtra} }

// UnknownFixed reports every unknown index as v.
func UnknownFixed(v int64) UnknownPolicy { return UnknownPolicy{kind: policyFixed, fixed: v} }

// ParsePolicy parses "random", "extra" or a base-10 integer.
func ParsePolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "", "random":
		return UnknownRandom(), nil
	case "extra":
		return UnknownExtra(), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return UnknownPolicy{}, fmt.Errorf("remap: unknown index policy %q: want \"random\", \"extra\" or an integer", s)
	}
	return UnknownFixed(v), nil
}

func (p UnknownPolicy) String() string {
	switch p.kind {
	case policyRandom:
		return "random"
	case policyExtra:
		return "extra"
	default:
		return strconv.FormatInt(p.fixed, 10)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p UnknownPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *UnknownPolicy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Remapper maps full codebook indices to positions in a used set and back.
// The used set is immutable after construction.
type Remapper struct {
	used    []int64
	reEmbed int
	unknown int64
	policy  UnknownPolicy
	rng     *rand.Rand
}

// New creates a Remapper over a copy of used. rng is required for the random
// policy and ignored otherwise.
func New(used []int64, policy UnknownPolicy, rng *rand.Rand) (*Remapper, error) {
	if len(used) == 0 {
		return nil, ErrEmptyUsed
	}
	r := &Remapper{
		used:    slices.Clone(used),
		reEmbed: len(used),
		policy:  policy,
		rng:     rng,
	}
	switch policy.kind {
	case policyRandom:
		if rng == nil {
			return nil, errors.New("remap: random unknown policy needs a random source")
		}
		r.unknown = -1
	case policyExtra:
		r.unknown = int64(len(used))
		r.reEmbed++
	case policyFixed:
		r.unknown = policy.fixed
	}
	return r, nil
}

// ReEmbed returns the size of the reduced index space.
func (r *Remapper) ReEmbed() int { return r.reEmbed }

// Used returns a copy of the used set.
func (r *Remapper) Used() []int64 { return slices.Clone(r.used) }

// UnknownIndex returns the reduced index given to unknown full indices, or -1
// for the random policy.
func (r *Remapper) UnknownIndex() int64 { return r.unknown }

// Policy returns the unknown-index policy.
func (r *Remapper) Policy() UnknownPolicy { return r.policy }

func (r *Remapper) hasExtra() bool { return r.reEmbed > len(r.used) }

// ToUsed maps full indices to reduced indices. t must have a batch axis and
// at least one more; the result has the same shape.
func (r *Remapper) ToUsed(t *tensor.Index) (*tensor.Index, error) {
	flat, err := batchView(t)
	if err != nil {
		return nil, err
	}
	src := flat.Data()
	out := make([]int64, len(src))
	for i, full := range src {
		out[i] = r.lookup(full)
	}
	return tensor.FromSlice(out, t.Shape()...)
}

func (r *Remapper) lookup(full int64) int64 {
	for pos, u := range r.used {
		if u == full {
			return int64(pos)
		}
	}
	if r.policy.kind == policyRandom {
		return r.rng.Int63n(int64(r.reEmbed))
	}
	return r.unknown
}

// ToFull maps reduced indices back to full indices. t must have a batch axis
// and at least one more; the result has the same shape. When the extra slot
// is configured, every reduced index >= len(used) maps to full index 0.
func (r *Remapper) ToFull(t *tensor.Index) (*tensor.Index, error) {
	flat, err := batchView(t)
	if err != nil {
		return nil, err
	}
	src := flat.Data()
	re0 := int64(len(r.used))
	out := make([]int64, len(src))
	for i, red := range src {
		if r.hasExtra() && red >= re0 {
			red = 0
		}
		if red < 0 || red >= re0 {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, red, r.reEmbed)
		}
		out[i] = r.used[red]
	}
	return tensor.FromSlice(out, t.Shape()...)
}

func batchView(t *tensor.Index) (*tensor.Index, error) {
	if t == nil || t.Dims() < 2 {
		var shape []int
		if t != nil {
			shape = t.Shape()
		}
		return nil, fmt.Errorf("%w: got shape %v", ErrShape, shape)
	}
	if t.Len() == 0 {
		return t, nil
	}
	return t.Reshape(t.Dim(0), -1)
}
