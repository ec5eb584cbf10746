// Package regime maps a (reinforcement, effort-weight, churn) parameter
// triple to a coarse qualitative label for display. The regions are
// hand-tuned and tested in priority order — they may geometrically overlap,
// and the first match wins. Nothing from simulated output feeds back into
// this classification.
package regime

// Class is a named regime with its display color.
type Class struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Classify returns the regime for the given parameters. The five regions are
// mutually exclusive by evaluation order.
func Classify(alpha, lambda, churn float64) Class {
	switch {
	case alpha < 0.5 && lambda > 0.8 && churn > 0.005:
		return Class{Name: "Ordered", Color: "#4ade80"}
	case alpha >= 0.5 && alpha < 1.0 && lambda > 0.6 && churn < 0.01:
		return Class{Name: "Periodic", Color: "#60a5fa"}
	case alpha >= 0.9 && alpha <= 1.2 && lambda >= 0.4 && lambda <= 0.8 && churn >= 0.005 && churn <= 0.015:
		return Class{Name: "Complex", Color: "#c084fc"}
	case alpha > 1.2 && lambda < 0.5 && churn < 0.005:
		return Class{Name: "Chaotic", Color: "#f87171"}
	default:
		return Class{Name: "Transitional", Color: "#94a3b8"}
	}
}
