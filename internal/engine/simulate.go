// Package engine runs one parameterized trajectory of the reinforcement
// process: one entrant per step, attachment-weighted reward allocation with
// an effort tilt, optional churn decay and taxation, and the per-step
// metric series derived from the accumulated population.
package engine

import (
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/meritsim/internal/entropy"
	"github.com/talgya/meritsim/internal/stats"
)

// weightFloor keeps every weight strictly positive so no agent's winning
// probability collapses to zero once alpha > 0 meets a zeroed attachment.
const weightFloor = 1e-9

// topAgentCount is how many agents the terminal reward-share list carries.
const topAgentCount = 20

// StepMetrics is one row of the per-step time series.
type StepMetrics struct {
	Step                int     `json:"step"`
	RewardConcentration float64 `json:"reward_concentration"`
	WealthConcentration float64 `json:"wealth_concentration"`
	MutualInfo          float64 `json:"mutual_info"`
	Top1Share           float64 `json:"top1_share"`
	Top10Share          float64 `json:"top10_share"`
	TaxRevenue          float64 `json:"tax_revenue"`
}

// AgentShare is one bar of the terminal top-agent display.
type AgentShare struct {
	Index   int     `json:"index"` // entry order, 0-based
	Effort  float64 `json:"effort"`
	Rewards int     `json:"rewards"`
	Share   float64 `json:"share"` // fraction of all rewards granted
}

// EffortBin is one bar of the terminal P(everRewarded | effort bin)
// histogram over equal-width bins spanning [0,1), the top edge absorbed
// into the last bin.
type EffortBin struct {
	Lo         float64 `json:"lo"`
	Hi         float64 `json:"hi"`
	Agents     int     `json:"agents"`
	RewardProb float64 `json:"reward_prob"`
}

// Run is the immutable result of one Simulate call. It is owned by the
// caller and safe to share read-only across consumers.
type Run struct {
	Params          Params        `json:"params"`
	Series          []StepMetrics `json:"series"`
	TopAgents       []AgentShare  `json:"top_agents"`
	EffortHistogram []EffortBin   `json:"effort_histogram"`
	TaxRevenue      float64       `json:"tax_revenue"`
}

// Final returns the last row of the series, or a zero row for an empty run.
func (r *Run) Final() StepMetrics {
	if len(r.Series) == 0 {
		return StepMetrics{}
	}
	return r.Series[len(r.Series)-1]
}

// Simulate runs one trajectory of Horizon steps and returns the completed
// run. A Horizon of 0 yields an empty series, not an error. The per-step
// order — entry, churn, wealth tax, weights, winner draw, reward and income
// tax, metrics — is the contract: it defines both the semantics and the
// PRNG call sequence that makes runs reproducible.
func Simulate(p Params) *Run {
	rng := entropy.NewStream(p.Seed)
	var wave opensimplex.Noise
	if p.Entry == EntryWave {
		wave = opensimplex.NewNormalized(int64(p.Seed))
	}

	pop := newPopulation(p.Horizon)
	run := &Run{
		Params: p,
		Series: make([]StepMetrics, 0, p.Horizon),
	}
	weights := make([]float64, 0, p.Horizon)
	scratch := make([]float64, 0, p.Horizon)
	revenue := 0.0

	for step := 1; step <= p.Horizon; step++ {
		// Entry: effort is fixed for the agent's lifetime.
		var effort float64
		switch p.Entry {
		case EntryWave:
			effort = wave.Eval2(float64(step)*p.WaveFrequency, 0.5)
		default:
			effort = rng.Next()
		}
		pop.enter(effort, p.InitialAttachment)

		// Churn decay applies to every agent, the fresh entrant included.
		if p.Churn > 0 {
			keep := 1 - p.Churn
			for i := range pop.attachment {
				pop.attachment[i] *= keep
			}
		}

		// Wealth tax. Only the attachment-side levy is recorded as revenue;
		// the wealth-side levy adjusts the post-tax ledger without being
		// counted again.
		if p.WealthTaxRate > 0 {
			for i := range pop.attachment {
				levy := pop.attachment[i] * p.WealthTaxRate
				pop.attachment[i] -= levy
				revenue += levy
				pop.wealth[i] -= pop.wealth[i] * p.WealthTaxRate
			}
		}

		// Weights: attachment^alpha with an exponential effort tilt around
		// the current population mean.
		mean := pop.meanEffort()
		weights = weights[:0]
		for i := range pop.attachment {
			base := pop.attachment[i]
			if base < weightFloor {
				base = weightFloor
			}
			w := math.Pow(base, p.Alpha) * math.Exp(p.Lambda*(pop.effort[i]-mean))
			weights = append(weights, w)
		}

		// One reward of 1 unit per step, split between winner and revenue.
		winner := rng.WeightedIndex(weights)
		afterTax := 1 - p.IncomeTaxRate
		pop.attachment[winner] += afterTax
		pop.wealth[winner] += afterTax
		revenue += p.IncomeTaxRate
		pop.everRewarded[winner] = true
		pop.rewardCount[winner]++

		// Metrics over the accumulated population.
		scratch = pop.rewardCounts(scratch)
		rewardConc := stats.Concentration(scratch)

		wealthConc := rewardConc
		totalWealth := 0.0
		for _, w := range pop.wealth {
			totalWealth += w
		}
		if totalWealth > 0 {
			wealthConc = stats.Concentration(pop.wealth)
		}

		run.Series = append(run.Series, StepMetrics{
			Step:                step,
			RewardConcentration: rewardConc,
			WealthConcentration: wealthConc,
			MutualInfo:          stats.MutualInfo(pop.effort, pop.everRewarded, p.Bins),
			Top1Share:           stats.TopShare(scratch, 1),
			Top10Share:          stats.TopDecileShare(scratch),
			TaxRevenue:          revenue,
		})
	}

	run.TaxRevenue = revenue
	run.TopAgents = topAgents(pop, p.Horizon)
	run.EffortHistogram = effortHistogram(pop, p.Bins)
	return run
}

// topAgents ranks agents by reward count and returns the leading slice with
// shares relative to all rewards granted.
func topAgents(pop *population, steps int) []AgentShare {
	if pop.size() == 0 || steps == 0 {
		return nil
	}

	order := make([]int, pop.size())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pop.rewardCount[order[a]] > pop.rewardCount[order[b]]
	})

	n := topAgentCount
	if n > len(order) {
		n = len(order)
	}
	out := make([]AgentShare, 0, n)
	for _, idx := range order[:n] {
		out = append(out, AgentShare{
			Index:   idx,
			Effort:  pop.effort[idx],
			Rewards: pop.rewardCount[idx],
			Share:   float64(pop.rewardCount[idx]) / float64(steps),
		})
	}
	return out
}

// effortHistogram buckets agents into equal-width effort bins over [0,1)
// and reports the conditional probability of ever having been rewarded per
// bin. An effort of exactly 1.0 lands in the last bin.
func effortHistogram(pop *population, bins int) []EffortBin {
	if bins < 1 || pop.size() == 0 {
		return nil
	}

	total := make([]int, bins)
	hits := make([]int, bins)
	for i, e := range pop.effort {
		b := int(e * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		total[b]++
		if pop.everRewarded[i] {
			hits[b]++
		}
	}

	width := 1.0 / float64(bins)
	out := make([]EffortBin, bins)
	for b := range out {
		out[b] = EffortBin{
			Lo:     float64(b) * width,
			Hi:     float64(b+1) * width,
			Agents: total[b],
		}
		if total[b] > 0 {
			out[b].RewardProb = float64(hits[b]) / float64(total[b])
		}
	}
	return out
}
