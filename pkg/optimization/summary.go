// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of a single carbon price search.
type Summary struct {
	Gas        string   `json:"gas"`
	Region     string   `json:"region"`
	Period     int      `json:"period"`
	Year       int      `json:"year"`
	Target     float64  `json:"target"`
	Price      float64  `json:"price"`
	Reduction  float64  `json:"reduction"`
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
	Notes      []string `json:"notes,omitempty"`
}

// Shortfall returns how far the reduction at Price stays below Target.
func (s Summary) Shortfall() float64 {
	if s.Reduction >= s.Target {
		return 0
	}
	return s.Target - s.Reduction
}
