package detect

// Reason codes for rejection paths. Absence of a ball is silent at the
// detection level; the report keeps the machine-readable cause so overlay
// and calibration tooling can explain each "no ball" frame.
const (
	ReasonEmptyFrame  = "empty-frame"
	ReasonArea        = "area"
	ReasonRadius      = "radius"
	ReasonCirc        = "circ"
	ReasonFill        = "fill"
	ReasonVMedian     = "v-med"
	ReasonRadial      = "radial"
	ReasonNoContour   = "no-contour"
	ReasonLowInnerCov = "low-inner-cov"
	ReasonLowHueCov   = "low-hue-cov"
	ReasonLowVMedian  = "low-v-med"
	ReasonLowSatCov   = "low-sat-cov"
	ReasonLowRingDen  = "low-ring-density"
	ReasonWeakRadial  = "weak-radial"
)

// CandidateStats captures the metrics of the winning contour candidate.
type CandidateStats struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	R           float64 `json:"r"`
	Area        float64 `json:"area"`
	Circularity float64 `json:"circularity"`
	Fill        float64 `json:"fill"`
	Score       float64 `json:"score"`
	Strict      bool    `json:"strict"`
	VMedian     float64 `json:"v_median"`
	InnerCov    float64 `json:"inner_cov"`
	HueCov      float64 `json:"hue_cov"`
	SatCov      float64 `json:"sat_cov"`
	RingDensity float64 `json:"ring_density"`
	RadialScore float64 `json:"radial_score"`
	RadialCov   float64 `json:"radial_cov"`
}

// Reject is one rejected contour with its cause.
type Reject struct {
	Reason      string  `json:"reason"`
	Area        float64 `json:"area"`
	Circularity float64 `json:"circularity"`
	Fill        float64 `json:"fill"`
	R           float64 `json:"r"`
	VMedian     float64 `json:"v_median"`
}

// FallbackStats describes a distance-transform fallback attempt.
type FallbackStats struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	REstimate float64 `json:"r_estimate"`
	CompArea  float64 `json:"comp_area"`
	InnerCov  float64 `json:"inner_cov"`
	RingDen   float64 `json:"ring_density"`
	Peaks     int     `json:"peaks"`
	Accepted  bool    `json:"accepted"`
}

// Report is the per-frame diagnostic record published by ColorGate.
// It is advisory: correctness never depends on it, but tests and the
// calibration dashboard assert on it directly.
type Report struct {
	FrameW int `json:"frame_w"`
	FrameH int `json:"frame_h"`

	AThreshold  int     `json:"a_threshold"`
	APercentile float64 `json:"a_percentile_value"`

	Contours   int `json:"contours"`
	Considered int `json:"considered"`
	Strict     int `json:"strict"`

	Best     *CandidateStats `json:"best,omitempty"`
	Rejects  []Reject        `json:"rejects,omitempty"`
	Fallback *FallbackStats  `json:"fallback,omitempty"`

	RefineAttempted bool `json:"refine_attempted"`
	RefineOK        bool `json:"refine_ok"`

	// Reason is set when the frame produced no detection.
	Reason string `json:"reason,omitempty"`
}
