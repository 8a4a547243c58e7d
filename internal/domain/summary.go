package domain

// Band is a symmetric weighted quantile band: per month, the Q and 1-Q
// area-weighted quantiles of one cluster.
type Band struct {
	Q     float64   `json:"q"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

// ClusterSummary holds the area-weighted statistics of one parameter within
// one cluster of a (scenario, scope) unit. Cluster is the 1-based display label.
type ClusterSummary struct {
	Scenario  string    `json:"scenario"`
	Scope     string    `json:"scope"`
	Parameter Parameter `json:"parameter"`
	Cluster   int       `json:"cluster"`
	Cells     int       `json:"cells"`
	Area      float64   `json:"area"`
	AreaShare float64   `json:"area_share"`
	Months    []int     `json:"months"`
	Median    []float64 `json:"median"`
	Bands     []Band    `json:"bands"`
}

// InertiaRecord is one point of an elbow curve.
type InertiaRecord struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}
