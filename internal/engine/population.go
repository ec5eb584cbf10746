package engine

// population is the column store for per-agent state. Agents are never
// allocated as individual objects: an agent is an index into four parallel
// columns, which keeps the "all columns same length" invariant mechanically
// enforceable and the per-step scans cache-friendly.
//
// effort is written once at entry and never mutated. attachment and wealth
// are mutated every step and must stay ≥ 0. rewardCount only grows.
type population struct {
	effort       []float64
	attachment   []float64
	wealth       []float64
	everRewarded []bool
	rewardCount  []int
}

func newPopulation(capacity int) *population {
	return &population{
		effort:       make([]float64, 0, capacity),
		attachment:   make([]float64, 0, capacity),
		wealth:       make([]float64, 0, capacity),
		everRewarded: make([]bool, 0, capacity),
		rewardCount:  make([]int, 0, capacity),
	}
}

// enter appends a new agent with the given fixed effort transcript.
func (p *population) enter(effort, initialAttachment float64) {
	p.effort = append(p.effort, effort)
	p.attachment = append(p.attachment, initialAttachment)
	p.wealth = append(p.wealth, 0)
	p.everRewarded = append(p.everRewarded, false)
	p.rewardCount = append(p.rewardCount, 0)
}

func (p *population) size() int {
	return len(p.effort)
}

func (p *population) meanEffort() float64 {
	if len(p.effort) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range p.effort {
		sum += e
	}
	return sum / float64(len(p.effort))
}

// rewardCounts copies the reward column into the provided scratch slice as
// float64 for the statistics functions, growing it if needed.
func (p *population) rewardCounts(scratch []float64) []float64 {
	scratch = scratch[:0]
	for _, c := range p.rewardCount {
		scratch = append(scratch, float64(c))
	}
	return scratch
}
