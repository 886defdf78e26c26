package detect

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"github.com/mtdev/go-dogtrack/pkg/debug"
)

// GateConfig holds every threshold of the geometric detector.
// Defaults are tuned for a red/orange ball on indoor floors.
type GateConfig struct {
	// Lab redness gate: threshold = max(AMin, percentile(a, APercentile)).
	APercentile float64 `json:"a_percentile"`
	AMin        int     `json:"a_min"`

	// HSV gates. Red hue wraps: [0..HRedMax] ∪ [HRedMin2..179];
	// orange is [HOrangeMin..HOrangeMax].
	SMin       int `json:"s_min"`
	VMin       int `json:"v_min"`
	HRedMax    int `json:"h_red_max"`
	HRedMin2   int `json:"h_red_min2"`
	HOrangeMin int `json:"h_orange_min"`
	HOrangeMax int `json:"h_orange_max"`

	// Contour gates.
	MinArea        float64 `json:"min_area"`
	MaxAreaRatio   float64 `json:"max_area_ratio"`
	MinRadius      float64 `json:"min_radius"`
	MaxRadiusRatio float64 `json:"max_radius_ratio"`

	// Loose gates admit reflection-distorted shapes; strict gates mark
	// high-confidence candidates that earn a score bonus.
	LooseCircularity  float64 `json:"loose_circularity"`
	LooseFill         float64 `json:"loose_fill"`
	StrictCircularity float64 `json:"strict_circularity"`
	StrictFill        float64 `json:"strict_fill"`

	// Inner-circle sampling and post-check confidence gates.
	InnerRatio          float64 `json:"inner_ratio"`
	MinInnerCoverage    float64 `json:"min_inner_coverage"`
	MinHueCoverage      float64 `json:"min_hue_coverage"`
	MinSatCoverage      float64 `json:"min_sat_coverage"`
	MinVMedian          float64 `json:"min_v_median"`
	VMedianRingWaive    float64 `json:"v_median_ring_waive"`
	RingDensityStrict   float64 `json:"ring_density_strict"`
	RingDensityLoose    float64 `json:"ring_density_loose"`
	MinRadialScore      float64 `json:"min_radial_score"`
	MinRadialCoverage   float64 `json:"min_radial_coverage"`
	RadialGateEnabled   bool    `json:"radial_gate_enabled"`
	RadiusInflation     float64 `json:"radius_inflation"`
	DebugTopRejects     int     `json:"debug_top_rejects"`
}

// DefaultGateConfig returns thresholds tuned on warm/dim indoor scenes.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		APercentile: 97.0,
		AMin:        135,

		SMin:       60,
		VMin:       40,
		HRedMax:    12,
		HRedMin2:   155,
		HOrangeMin: 6,
		HOrangeMax: 40,

		MinArea:        500.0,
		MaxAreaRatio:   0.15,
		MinRadius:      10.0,
		MaxRadiusRatio: 0.40,

		LooseCircularity:  0.30,
		LooseFill:         0.30,
		StrictCircularity: 0.48,
		StrictFill:        0.45,

		InnerRatio:        0.75,
		MinInnerCoverage:  0.35,
		MinHueCoverage:    0.18,
		MinSatCoverage:    0.22,
		MinVMedian:        100,
		VMedianRingWaive:  180,
		RingDensityStrict: 0.010,
		RingDensityLoose:  0.012,
		MinRadialScore:    0.55,
		MinRadialCoverage: 0.15,
		RadialGateEnabled: true,
		RadiusInflation:   1.10,
		DebugTopRejects:   5,
	}
}

// ColorGate is the geometric ball detector: dual color-space gating,
// morphological cleanup, contour scoring, circle-fit refinement, and a
// distance-transform fallback for merged ball+reflection blobs.
//
// Not safe for concurrent use; each session owns one instance.
type ColorGate struct {
	cfg    GateConfig
	report Report
}

// NewColorGate builds a detector with the given thresholds.
func NewColorGate(cfg GateConfig) *ColorGate {
	if cfg.RadiusInflation <= 0 {
		cfg.RadiusInflation = 1.10
	}
	if cfg.InnerRatio <= 0 || cfg.InnerRatio > 1 {
		cfg.InnerRatio = 0.75
	}
	return &ColorGate{cfg: cfg}
}

// Report returns the diagnostic record for the most recent frame.
func (d *ColorGate) Report() Report {
	return d.report
}

type candidate struct {
	x, y, r     float64
	area        float64
	circ, fill  float64
	strict      bool
	score       float64
	vMed        float64
	innerCov    float64
	hueCov      float64
	satCov      float64
	ringDen     float64
	radialScore float64
	radialCov   float64
}

// gateMasks bundles the per-frame masks and channels the pipeline shares.
type gateMasks struct {
	combined gocv.Mat // lab ∧ hue, cleaned
	hue      gocv.Mat
	sv       gocv.Mat // S ≥ SMin ∧ V ≥ VMin
	value    gocv.Mat // HSV V channel
}

func (m *gateMasks) Close() {
	m.combined.Close()
	m.hue.Close()
	m.sv.Close()
	m.value.Close()
}

// Detect runs the full pipeline on one BGR frame. A nil ball is the normal
// outcome for frames without a plausible ball; the reason lands in Report.
func (d *ColorGate) Detect(frame gocv.Mat) (*Ball, error) {
	d.report = Report{}
	if frame.Empty() || frame.Cols() == 0 || frame.Rows() == 0 {
		d.report.Reason = ReasonEmptyFrame
		return nil, nil
	}
	w, h := frame.Cols(), frame.Rows()
	d.report.FrameW, d.report.FrameH = w, h

	masks, err := d.buildMasks(frame)
	if err != nil {
		return nil, err
	}
	defer masks.Close()

	cands, rejects := d.scanContours(frame, masks, w, h)
	d.report.Rejects = topRejects(rejects, d.cfg.DebugTopRejects)

	best, ok := d.selectBest(cands, masks)
	if !ok {
		d.report.Reason = ReasonNoContour
		return d.fallback(frame, masks, w, h)
	}

	rx, ry, rr, refineOK := d.refineCircle(frame, masks, best.x, best.y, best.r)
	d.report.RefineAttempted = true
	d.report.RefineOK = refineOK
	if refineOK {
		best.x, best.y, best.r = rx, ry, rr
	}

	if reason := d.postCheck(frame, masks, &best, refineOK); reason != "" {
		debug.DetectLog("detect: best contour rejected: %s\n", reason)
		d.report.Reason = reason
		return d.fallback(frame, masks, w, h)
	}

	d.publishBest(best)
	return d.accept(best.x, best.y, best.r, best.area, best.circ), nil
}

// accept inflates the radius for downstream ROI/UI use. The inflation is
// cosmetic: it must never feed back into confidence decisions.
func (d *ColorGate) accept(x, y, r, area, circ float64) *Ball {
	return &Ball{
		X:           int(math.Round(x)),
		Y:           int(math.Round(y)),
		R:           int(math.Round(r * d.cfg.RadiusInflation)),
		Area:        area,
		Circularity: circ,
	}
}

// buildMasks produces the redness, hue and saturation/value gates.
func (d *ColorGate) buildMasks(frame gocv.Mat) (*gateMasks, error) {
	cfg := d.cfg

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(frame, &lab, gocv.ColorBGRToLab)
	labCh := gocv.Split(lab)
	aCh := labCh[1]
	defer func() {
		for i := range labCh {
			labCh[i].Close()
		}
	}()

	aThr, aPct := d.rednessThreshold(aCh)
	d.report.AThreshold = aThr
	d.report.APercentile = aPct

	maskLab := gocv.NewMat()
	defer maskLab.Close()
	gocv.Threshold(aCh, &maskLab, float32(aThr-1), 255, gocv.ThresholdBinary)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)
	hsvCh := gocv.Split(hsv)
	value := hsvCh[2]
	hsvCh[0].Close()
	hsvCh[1].Close()

	sv := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, float64(cfg.SMin), float64(cfg.VMin), 0),
		gocv.NewScalar(180, 255, 255, 0), &sv)

	hue := d.hueMask(hsv)

	combined := gocv.NewMat()
	gocv.BitwiseAnd(maskLab, hue, &combined)

	// Cleanup: median blur kills speckle, one elliptical opening cuts the
	// thin bridges that merge a ball with its floor reflection.
	gocv.MedianBlur(combined, &combined, 5)
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(9, 9))
	defer kernel.Close()
	gocv.MorphologyEx(combined, &combined, gocv.MorphOpen, kernel)

	return &gateMasks{combined: combined, hue: hue, sv: sv, value: value}, nil
}

// rednessThreshold computes max(AMin, percentile(a, APercentile)) over a
// subsampled a-channel.
func (d *ColorGate) rednessThreshold(aCh gocv.Mat) (int, float64) {
	data := aCh.ToBytes()
	if len(data) == 0 {
		return d.cfg.AMin, 0
	}
	const stride = 4
	samples := make([]float64, 0, len(data)/stride+1)
	for i := 0; i < len(data); i += stride {
		samples = append(samples, float64(data[i]))
	}
	sort.Float64s(samples)
	pct := stat.Quantile(d.cfg.APercentile/100.0, stat.Empirical, samples, nil)
	thr := d.cfg.AMin
	if int(pct) > thr {
		thr = int(pct)
	}
	return thr, pct
}

// hueMask keeps red (wrap-around) and orange hues with sufficient S and V.
func (d *ColorGate) hueMask(hsv gocv.Mat) gocv.Mat {
	cfg := d.cfg
	sLo, vLo := float64(cfg.SMin), float64(cfg.VMin)

	red1 := gocv.NewMat()
	defer red1.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, sLo, vLo, 0),
		gocv.NewScalar(float64(cfg.HRedMax), 255, 255, 0), &red1)

	red2 := gocv.NewMat()
	defer red2.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(float64(cfg.HRedMin2), sLo, vLo, 0),
		gocv.NewScalar(180, 255, 255, 0), &red2)

	orange := gocv.NewMat()
	defer orange.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(float64(cfg.HOrangeMin), sLo, vLo, 0),
		gocv.NewScalar(float64(cfg.HOrangeMax), 255, 255, 0), &orange)

	hue := gocv.NewMat()
	gocv.BitwiseOr(red1, red2, &hue)
	gocv.BitwiseOr(hue, orange, &hue)
	return hue
}

// scanContours gates and scores every external contour of the cleaned mask.
func (d *ColorGate) scanContours(frame gocv.Mat, m *gateMasks, w, h int) ([]candidate, []Reject) {
	cfg := d.cfg
	frameArea := float64(w * h)
	maxR := cfg.MaxRadiusRatio * math.Min(float64(w), float64(h))

	contours := gocv.FindContours(m.combined, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var cands []candidate
	var rejects []Reject
	reject := func(reason string, area, circ, fill, r, vMed float64) {
		rejects = append(rejects, Reject{
			Reason: reason, Area: area, Circularity: circ, Fill: fill, R: r, VMedian: vMed,
		})
	}

	d.report.Contours = contours.Size()
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < cfg.MinArea || area > cfg.MaxAreaRatio*frameArea {
			reject(ReasonArea, area, 0, 0, 0, 0)
			continue
		}
		perim := gocv.ArcLength(c, true)
		cxF, cyF, rF := gocv.MinEnclosingCircle(c)
		cx, cy, r := float64(cxF), float64(cyF), float64(rF)
		if r < cfg.MinRadius || r > maxR {
			reject(ReasonRadius, area, 0, 0, r, 0)
			continue
		}

		circ := Circularity(area, perim)
		fill := Fill(area, r)
		innerR := r * cfg.InnerRatio
		vMed := d.circleVMedian(m.value, nil, cx, cy, innerR)

		if circ < cfg.LooseCircularity {
			reject(ReasonCirc, area, circ, fill, r, vMed)
			continue
		}
		if fill < cfg.LooseFill {
			reject(ReasonFill, area, circ, fill, r, vMed)
			continue
		}
		strict := circ >= cfg.StrictCircularity && fill >= cfg.StrictFill

		radialScore, radialCov, radialTotal := d.radialSymmetry(frame, cx, cy, r)
		if cfg.RadialGateEnabled && strict {
			// Only gate when there is enough edge evidence to judge.
			applicable := radialTotal >= 80 && radialCov >= cfg.MinRadialCoverage*0.5
			pass := radialScore >= cfg.MinRadialScore && radialCov >= cfg.MinRadialCoverage
			if applicable && !pass {
				reject(ReasonRadial, area, circ, fill, r, vMed)
				continue
			}
		}

		score := Score(area, circ, fill, strict)
		score *= BrightnessScale(vMed, cfg.MinVMedian)
		satCov := d.circleCoverage(m.sv, cx, cy, innerR)
		score *= SaturationScale(satCov, cfg.MinSatCoverage)

		if vMed < cfg.MinVMedian {
			reject(ReasonVMedian, area, circ, fill, r, vMed)
			continue
		}

		cands = append(cands, candidate{
			x: cx, y: cy, r: r,
			area: area, circ: circ, fill: fill,
			strict: strict, score: score, vMed: vMed,
			satCov:      satCov,
			hueCov:      d.circleCoverage(m.hue, cx, cy, innerR),
			innerCov:    d.circleCoverage(m.combined, cx, cy, innerR),
			ringDen:     d.ringEdgeDensity(frame, cx, cy, r),
			radialScore: radialScore,
			radialCov:   radialCov,
		})
		if cands[len(cands)-1].strict {
			d.report.Strict++
		}
		d.report.Considered++
	}
	return cands, rejects
}

// selectBest ranks candidates: strict pool if available, upper-of-pair
// preference for stacked ball+reflection blobs, then highest inner median
// brightness with score as tiebreak.
func (d *ColorGate) selectBest(cands []candidate, m *gateMasks) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	pool := cands
	var strictOnly []candidate
	for _, c := range cands {
		if c.strict {
			strictOnly = append(strictOnly, c)
		}
	}
	if len(strictOnly) > 0 {
		pool = strictOnly
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if c.score > best.score {
			best = c
		}
	}

	if upper, ok := preferUpperOfPair(pool); ok {
		best = upper
	}

	// Final rank: v-median first, score second.
	if len(pool) > 1 {
		for _, c := range pool {
			if c.vMed > best.vMed || (c.vMed == best.vMed && c.score > best.score) {
				best = c
			}
		}
	}
	return best, true
}

// preferUpperOfPair detects two vertically stacked similar blobs (ball over
// its floor reflection) and prefers the upper one when its color metrics
// hold up.
func preferUpperOfPair(pool []candidate) (candidate, bool) {
	type pair struct {
		a, b candidate
		cost float64
	}
	var pairs []pair
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			a, b := pool[i], pool[j]
			r0 := math.Min(a.r, b.r)
			if r0 <= 1 {
				continue
			}
			dx := math.Abs(a.x - b.x)
			dy := math.Abs(a.y - b.y)
			dr := math.Abs(a.r - b.r)
			if dx > 0.85*r0 || dr > 0.35*r0 || dy < 0.45*r0 {
				continue
			}
			pairs = append(pairs, pair{a, b, dx + dy + dr})
		}
	}
	if len(pairs) == 0 {
		return candidate{}, false
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].cost < pairs[j].cost })
	a, b := pairs[0].a, pairs[0].b
	upper, lower := a, b
	if b.y < a.y {
		upper, lower = b, a
	}

	vClose := upper.vMed+12.0 >= lower.vMed
	scoreU := 0.45*(upper.vMed/255.0) + 0.25*upper.satCov + 0.20*upper.hueCov + 0.10*upper.innerCov
	scoreL := 0.45*(lower.vMed/255.0) + 0.25*lower.satCov + 0.20*lower.hueCov + 0.10*lower.innerCov
	if vClose || scoreU >= scoreL*0.90 {
		return upper, true
	}
	return candidate{}, false
}

// postCheck applies the confidence gates to the (possibly refined) winner.
// Returns "" on acceptance, otherwise the rejection reason.
func (d *ColorGate) postCheck(frame gocv.Mat, m *gateMasks, best *candidate, refineOK bool) string {
	cfg := d.cfg
	innerR := best.r * cfg.InnerRatio
	best.innerCov = d.circleCoverage(m.combined, best.x, best.y, innerR)
	best.hueCov = d.circleCoverage(m.hue, best.x, best.y, innerR)
	best.satCov = d.circleCoverage(m.sv, best.x, best.y, innerR)
	best.vMed = d.circleVMedian(m.value, &m.combined, best.x, best.y, innerR)
	best.ringDen = d.ringEdgeDensity(frame, best.x, best.y, best.r)
	best.radialScore, best.radialCov, _ = d.radialSymmetry(frame, best.x, best.y, best.r)

	if best.radialCov >= cfg.MinRadialCoverage {
		best.score *= 0.5 + 0.5*best.radialScore
	}

	if best.innerCov < cfg.MinInnerCoverage {
		return ReasonLowInnerCov
	}
	if best.hueCov < cfg.MinHueCoverage {
		return ReasonLowHueCov
	}
	if best.vMed < cfg.MinVMedian {
		return ReasonLowVMedian
	}
	if best.satCov < cfg.MinSatCoverage {
		return ReasonLowSatCov
	}

	// Ring density gate, waived for very bright candidates or when the
	// circle fit confirmed the boundary.
	ringMin := cfg.RingDensityLoose
	if best.strict {
		ringMin = cfg.RingDensityStrict
	}
	ringWaive := refineOK || best.vMed >= cfg.VMedianRingWaive
	if !ringWaive && best.ringDen < ringMin {
		return ReasonLowRingDen
	}

	if cfg.RadialGateEnabled && best.radialCov >= cfg.MinRadialCoverage {
		ringStrong := best.ringDen >= cfg.RingDensityStrict*1.25
		if best.radialScore < cfg.MinRadialScore && !refineOK && !ringStrong {
			return ReasonWeakRadial
		}
	}
	return ""
}

func (d *ColorGate) publishBest(best candidate) {
	d.report.Best = &CandidateStats{
		X: best.x, Y: best.y, R: best.r,
		Area: best.area, Circularity: best.circ, Fill: best.fill,
		Score: best.score, Strict: best.strict,
		VMedian: best.vMed, InnerCov: best.innerCov,
		HueCov: best.hueCov, SatCov: best.satCov,
		RingDensity: best.ringDen,
		RadialScore: best.radialScore, RadialCov: best.radialCov,
	}
}

// circleCoverage is the fraction of pixels inside the circle that are set
// in the given binary mask.
func (d *ColorGate) circleCoverage(mask gocv.Mat, cx, cy, r float64) float64 {
	if r <= 1 {
		return 0
	}
	w, h := mask.Cols(), mask.Rows()
	x0, y0, x1, y1 := circleBounds(cx, cy, r, w, h)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	r2 := r * r
	var inside, set int
	for y := y0; y < y1; y++ {
		dy := float64(y) - cy
		for x := x0; x < x1; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy > r2 {
				continue
			}
			inside++
			if mask.GetUCharAt(y, x) > 0 {
				set++
			}
		}
	}
	if inside == 0 {
		return 0
	}
	return float64(set) / float64(inside)
}

// circleVMedian is the median HSV value inside the circle. When mask is
// non-nil only mask-set pixels are sampled (used for the post-check; the
// scan pass samples the raw inner circle).
func (d *ColorGate) circleVMedian(value gocv.Mat, mask *gocv.Mat, cx, cy, r float64) float64 {
	if r <= 1 {
		return 0
	}
	w, h := value.Cols(), value.Rows()
	x0, y0, x1, y1 := circleBounds(cx, cy, r, w, h)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	r2 := r * r
	var samples []float64
	for y := y0; y < y1; y++ {
		dy := float64(y) - cy
		for x := x0; x < x1; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy > r2 {
				continue
			}
			if mask != nil && mask.GetUCharAt(y, x) == 0 {
				continue
			}
			samples = append(samples, float64(value.GetUCharAt(y, x)))
		}
	}
	if len(samples) == 0 {
		// Post-check fell entirely outside the mask: fall back to raw.
		if mask != nil {
			return d.circleVMedian(value, nil, cx, cy, r)
		}
		return 0
	}
	sort.Float64s(samples)
	return stat.Quantile(0.5, stat.Empirical, samples, nil)
}

// ringEdgeDensity is the fraction of annulus pixels around the candidate
// boundary that are Canny edges.
func (d *ColorGate) ringEdgeDensity(frame gocv.Mat, cx, cy, r float64) float64 {
	if r <= 3 {
		return 0
	}
	edges, ox, oy, ok := edgeROI(frame, cx, cy, r, 1.5)
	if !ok {
		return 0
	}
	defer edges.Close()

	rIn := math.Max(2, r*0.78)
	rOut := math.Max(rIn+2, r*1.18)
	lcx, lcy := cx-float64(ox), cy-float64(oy)
	rIn2, rOut2 := rIn*rIn, rOut*rOut

	var annArea, edgeCount int
	for y := 0; y < edges.Rows(); y++ {
		dy := float64(y) - lcy
		for x := 0; x < edges.Cols(); x++ {
			dx := float64(x) - lcx
			d2 := dx*dx + dy*dy
			if d2 < rIn2 || d2 > rOut2 {
				continue
			}
			annArea++
			if edges.GetUCharAt(y, x) > 0 {
				edgeCount++
			}
		}
	}
	if annArea <= 1 {
		return 0
	}
	return float64(edgeCount) / float64(annArea)
}

// radialSymmetry computes the radial edge symmetry score: the fraction of
// ring edge pixels whose gradient points radially (cosθ > 0.7), plus the
// ring edge coverage and the number of edge pixels considered.
func (d *ColorGate) radialSymmetry(frame gocv.Mat, cx, cy, r float64) (score, coverage float64, total int) {
	if r <= 4 {
		return 0, 0, 0
	}
	pad := math.Max(18, r*1.6)
	w, h := frame.Cols(), frame.Rows()
	rect := clampRect(cx, cy, pad, w, h)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return 0, 0, 0
	}
	roi := frame.Region(rect)
	defer roi.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(roi, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(7, 7), 1.2, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 60, 120)

	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	lcx, lcy := cx-float64(rect.Min.X), cy-float64(rect.Min.Y)
	rIn := math.Max(2, r*0.85)
	rOut := math.Max(rIn+2, r*1.15)
	rIn2, rOut2 := rIn*rIn, rOut*rOut

	var gx, gy, rx, ry []float64
	var ringArea int
	for y := 0; y < edges.Rows(); y++ {
		dy := float64(y) - lcy
		for x := 0; x < edges.Cols(); x++ {
			dx := float64(x) - lcx
			d2 := dx*dx + dy*dy
			if d2 < rIn2 || d2 > rOut2 {
				continue
			}
			ringArea++
			if edges.GetUCharAt(y, x) == 0 {
				continue
			}
			gx = append(gx, float64(gradX.GetFloatAt(y, x)))
			gy = append(gy, float64(gradY.GetFloatAt(y, x)))
			rx = append(rx, dx)
			ry = append(ry, dy)
		}
	}
	if ringArea == 0 {
		return 0, 0, 0
	}
	score, _, total = RadialAlignment(gx, gy, rx, ry)
	coverage = float64(len(gx)) / float64(ringArea)
	return score, coverage, total
}

// edgeROI extracts a blurred-gray Canny edge map around a candidate.
func edgeROI(frame gocv.Mat, cx, cy, r, padRatio float64) (edges gocv.Mat, ox, oy int, ok bool) {
	pad := math.Max(18, r*padRatio)
	rect := clampRect(cx, cy, pad, frame.Cols(), frame.Rows())
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return gocv.Mat{}, 0, 0, false
	}
	roi := frame.Region(rect)
	defer roi.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(roi, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(7, 7), 1.2, 0, gocv.BorderDefault)

	edges = gocv.NewMat()
	gocv.Canny(gray, &edges, 60, 120)
	return edges, rect.Min.X, rect.Min.Y, true
}

func clampRect(cx, cy, pad float64, w, h int) image.Rectangle {
	x0 := int(math.Max(0, math.Round(cx-pad)))
	y0 := int(math.Max(0, math.Round(cy-pad)))
	x1 := int(math.Min(float64(w), math.Round(cx+pad)+1))
	y1 := int(math.Min(float64(h), math.Round(cy+pad)+1))
	return image.Rect(x0, y0, x1, y1)
}

func circleBounds(cx, cy, r float64, w, h int) (x0, y0, x1, y1 int) {
	x0 = int(math.Max(0, math.Floor(cx-r)))
	y0 = int(math.Max(0, math.Floor(cy-r)))
	x1 = int(math.Min(float64(w), math.Ceil(cx+r)+1))
	y1 = int(math.Min(float64(h), math.Ceil(cy+r)+1))
	return
}

func topRejects(rejects []Reject, n int) []Reject {
	if n <= 0 || len(rejects) == 0 {
		return nil
	}
	sort.Slice(rejects, func(i, j int) bool { return rejects[i].Area > rejects[j].Area })
	if len(rejects) > n {
		rejects = rejects[:n]
	}
	return rejects
}
