package dashboard

// Chart kinds
const (
	KindBar = "bar"
	KindPie = "pie"
)

// GradeBuckets are the labels of the grade distribution, lowest scores first.
var GradeBuckets = []string{"0-59", "60-69", "70-79", "80-89", "90-100"}

// Card is a single metric.
type Card struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Chart holds the data of a chart; Labels and Values are parallel.
type Chart struct {
	Key    string    `json:"key"`
	Title  string    `json:"title"`
	Kind   string    `json:"kind"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type Dashboard struct {
	Role   string  `json:"role"`
	Cards  []Card  `json:"cards"`
	Charts []Chart `json:"charts"`
}

// newChart builds a Chart following the order of labels; missing counts are 0.
func newChart(key, title, kind string, labels []string, counts map[string]int) Chart {
	c := Chart{Key: key, Title: title, Kind: kind, Labels: labels, Values: make([]float64, len(labels))}
	for i, l := range labels {
		c.Values[i] = float64(counts[l])
	}
	return c
}
