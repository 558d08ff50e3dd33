package rng

// PrimeableStream is the concrete Primeable RNG cog used by the
// Independent regime. Unlike SplittableStream it carries no state worth
// preserving across lineages: every draw sequence begins by priming from
// the lineage's injective habitat index and its logical time step, so two
// workers (or two partitions) computing the same lineage's next event
// reconstruct the identical stream without talking to each other.
type PrimeableStream struct {
	baseSeed uint64
	core     *splitMix64
}

// NewPrimeableStream creates a stream whose priming is additionally salted
// by baseSeed (the run's configured seed), so two different runs with
// different seeds never collide even for the same lineage/time-step pair.
func NewPrimeableStream(baseSeed uint64) *PrimeableStream {
	return &PrimeableStream{baseSeed: baseSeed, core: newSplitMix64(baseSeed)}
}

// Prime deterministically reseeds the stream from (key, timeStep).
func (p *PrimeableStream) Prime(key uint64, timeStep uint64) {
	p.core = newSplitMix64(mix64(p.baseSeed, key, timeStep))
}

func (p *PrimeableStream) Uniform() float64 {
	return uniformFromUint64(p.core.next())
}

func (p *PrimeableStream) UniformIndex(n uint64) uint64 {
	if n == 0 {
		panic("rng: UniformIndex called with n=0")
	}
	return lemireBounded(p.core.next, n)
}

func (p *PrimeableStream) Exponential(rate float64) float64 {
	return exponentialFromUniform(p.Uniform(), rate)
}
