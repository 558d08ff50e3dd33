package rng

// splitMix64 is a small, fast, deterministic generator used as the core
// bit-source for both RNG cogs. It is not cryptographic; the engine's only
// requirement is reproducibility given a seed, which splitmix64 gives
// cheaply and with good statistical properties for simulation use.
type splitMix64 struct {
	state uint64
}

func newSplitMix64(seed uint64) *splitMix64 {
	return &splitMix64{state: seed}
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// mix64 is a fixed-output hash used to derive independent child seeds from
// a parent state plus a distinguishing tag (a split counter, or a
// (lineage-key, time-step) priming pair). It folds the inputs in turn:
// each is XORed into the running state, which then goes through the
// splitmix64 finalizer, so the result depends on the order of the inputs.
func mix64(inputs ...uint64) uint64 {
	var z uint64 = 0xCAFEF00DBEEF5EED
	for _, in := range inputs {
		z ^= in
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z ^= z >> 31
	}
	return z
}
