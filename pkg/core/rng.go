package core

// Rng is a SplitMix64 counter-based random number generator. Instances are
// seeded by hashing (base seed, stream, sequence) so that every pixel, light
// path and iteration gets an independent, reproducible stream regardless of
// which worker runs it.
type Rng struct {
	state uint64
}

// splitMix64 advances a SplitMix64 state and returns the next output
func splitMix64(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// HashSeed mixes a sequence of values into a single 64-bit seed
func HashSeed(values ...uint64) uint64 {
	h := uint64(0x9E3779B97F4A7C15)
	for _, v := range values {
		h ^= v
		splitMix64(&h)
		h = splitMix64(&h)
	}
	return h
}

// NewRng creates a generator for the given (base seed, stream, sequence)
// triple. Streams used for camera and light paths must pass different base
// seeds so the two families of paths are uncorrelated.
func NewRng(baseSeed, stream, sequence uint64) *Rng {
	return &Rng{state: HashSeed(baseSeed, stream, sequence)}
}

// NextUint64 returns the next raw 64-bit output
func (r *Rng) NextUint64() uint64 {
	return splitMix64(&r.state)
}

// NextFloat returns a uniform float64 in [0, 1)
func (r *Rng) NextFloat() float64 {
	// 53 mantissa bits, guaranteed < 1.0
	return float64(r.NextUint64()>>11) * (1.0 / (1 << 53))
}

// NextFloat2D returns two uniform floats in [0, 1)
func (r *Rng) NextFloat2D() Vec2 {
	return Vec2{X: r.NextFloat(), Y: r.NextFloat()}
}

// NextFloat3D returns three uniform floats in [0, 1)
func (r *Rng) NextFloat3D() Vec3 {
	return Vec3{X: r.NextFloat(), Y: r.NextFloat(), Z: r.NextFloat()}
}

// NextInt returns a uniform integer in [lo, hi)
func (r *Rng) NextInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	n := uint64(hi - lo)
	return lo + int(r.NextUint64()%n)
}
