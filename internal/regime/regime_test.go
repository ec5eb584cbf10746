package regime

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		alpha  float64
		lambda float64
		churn  float64
		want   string
	}{
		{name: "ordered", alpha: 0.3, lambda: 0.9, churn: 0.01, want: "Ordered"},
		{name: "periodic", alpha: 0.7, lambda: 0.7, churn: 0.005, want: "Periodic"},
		{name: "complex", alpha: 1.0, lambda: 0.6, churn: 0.01, want: "Complex"},
		{name: "chaotic", alpha: 1.5, lambda: 0.2, churn: 0.001, want: "Chaotic"},
		{name: "transitional default", alpha: 1.0, lambda: 0.1, churn: 0.05, want: "Transitional"},
		{name: "ordered needs churn", alpha: 0.3, lambda: 0.9, churn: 0.0, want: "Transitional"},
		{name: "chaotic needs low churn", alpha: 1.5, lambda: 0.2, churn: 0.01, want: "Transitional"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.alpha, tc.lambda, tc.churn)
			if got.Name != tc.want {
				t.Fatalf("Classify(%v, %v, %v) = %q, want %q",
					tc.alpha, tc.lambda, tc.churn, got.Name, tc.want)
			}
			if got.Color == "" {
				t.Fatalf("regime %q has no display color", got.Name)
			}
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// alpha=0.95, lambda=0.7, churn=0.006 satisfies both the Periodic and
	// Complex regions; Periodic is tested first and must win.
	got := Classify(0.95, 0.7, 0.006)
	if got.Name != "Periodic" {
		t.Fatalf("overlapping regions must resolve by priority: got %q, want Periodic", got.Name)
	}
}
