package detect

import (
	"image"
	"image/color"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"github.com/mtdev/go-dogtrack/pkg/debug"
)

// refineCircle runs a Hough circle search in a padded ROI around a contour
// seed. On shiny floors the ROI often contains two stacked circles (ball
// and reflection): among circles near the seed with solid saturation
// coverage, the upper one wins; plain distance to the seed breaks ties.
func (d *ColorGate) refineCircle(frame gocv.Mat, m *gateMasks, cx, cy, r float64) (x, y, rr float64, ok bool) {
	w, h := frame.Cols(), frame.Rows()
	pad := math.Max(20, r*1.6)
	rect := clampRect(cx, cy, pad, w, h)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return 0, 0, 0, false
	}
	roi := frame.Region(rect)
	defer roi.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(roi, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(9, 9), 1.5, 0, gocv.BorderDefault)

	minR := int(math.Max(8, math.Round(r*0.70)))
	maxR := int(math.Round(r * 1.35))
	minDist := math.Max(20, math.Round(r))

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(gray, &circles, gocv.HoughGradient,
		1.2, minDist, 120, 24, minR, maxR)
	if circles.Empty() || circles.Cols() == 0 {
		return 0, 0, 0, false
	}

	seedX := cx - float64(rect.Min.X)
	seedY := cy - float64(rect.Min.Y)
	maxDistAllow := math.Max(30, 0.9*r)

	type fit struct {
		x, y, r  float64
		dist     float64
		solidSat bool
	}
	var fits []fit
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		if len(v) < 3 {
			continue
		}
		fx, fy, fr := float64(v[0]), float64(v[1]), float64(v[2])
		dist := math.Hypot(fx-seedX, fy-seedY)
		if dist > maxDistAllow {
			continue
		}
		gx := fx + float64(rect.Min.X)
		gy := fy + float64(rect.Min.Y)
		satCov := d.circleCoverage(m.sv, gx, gy, fr*d.cfg.InnerRatio)
		fits = append(fits, fit{x: gx, y: gy, r: fr, dist: dist,
			solidSat: satCov >= d.cfg.MinSatCoverage})
	}
	if len(fits) == 0 {
		return 0, 0, 0, false
	}

	sort.Slice(fits, func(i, j int) bool {
		if fits[i].solidSat != fits[j].solidSat {
			return fits[i].solidSat
		}
		if fits[i].y != fits[j].y {
			return fits[i].y < fits[j].y
		}
		return fits[i].dist < fits[j].dist
	})
	best := fits[0]
	debug.DetectLog("detect: refine ok (%d circles) @ (%.0f,%.0f) r=%.1f\n",
		len(fits), best.x, best.y, best.r)
	return best.x, best.y, best.r, true
}

// fallback handles the merged ball+reflection case: the combined mask is a
// peanut no contour gate accepts, but the distance transform still peaks at
// the ball center. Among strong peaks the upper one is preferred; the
// result is only accepted when the circle fit confirms it. Distance-only
// acceptance produces too many false positives.
func (d *ColorGate) fallback(frame gocv.Mat, m *gateMasks, w, h int) (*Ball, error) {
	cfg := d.cfg
	if gocv.CountNonZero(m.combined) < int(cfg.MinArea) {
		return nil, nil
	}
	maxR := cfg.MaxRadiusRatio * math.Min(float64(w), float64(h))

	labels := gocv.NewMat()
	defer labels.Close()
	statsMat := gocv.NewMat()
	defer statsMat.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()
	n := gocv.ConnectedComponentsWithStats(m.combined, &labels, &statsMat, &centroids)
	if n <= 1 {
		return nil, nil
	}

	dist := gocv.NewMat()
	defer dist.Close()
	distLabels := gocv.NewMat()
	defer distLabels.Close()
	gocv.DistanceTransform(m.combined, &dist, &distLabels,
		gocv.DistL2, gocv.DistanceMask5, gocv.DistanceLabelCComp)

	px, py, estR, peaks := upperStrongPeak(dist)
	if estR < 8 || estR > maxR {
		return nil, nil
	}
	if py < 0 || py >= labels.Rows() || px < 0 || px >= labels.Cols() {
		return nil, nil
	}
	lbl := int(labels.GetIntAt(py, px))
	if lbl <= 0 {
		return nil, nil
	}
	compArea := float64(statsMat.GetIntAt(lbl, 4))
	if compArea < cfg.MinArea || compArea > float64(w*h)*cfg.MaxAreaRatio {
		return nil, nil
	}

	fx, fy := float64(px), float64(py)
	innerCov := d.circleCoverage(m.combined, fx, fy, estR*cfg.InnerRatio)
	ringDen := d.ringEdgeDensity(frame, fx, fy, estR)
	fb := &FallbackStats{
		X: px, Y: py, REstimate: estR, CompArea: compArea,
		InnerCov: innerCov, RingDen: ringDen, Peaks: peaks,
	}
	d.report.Fallback = fb
	if innerCov < cfg.MinInnerCoverage || ringDen < cfg.RingDensityLoose {
		return nil, nil
	}

	rx, ry, rr, ok := d.refineCircle(frame, m, fx, fy, estR)
	if !ok || rr < cfg.MinRadius || rr > maxR {
		debug.DetectLog("detect: fallback refine failed @ (%d,%d) r~%.1f\n", px, py, estR)
		return nil, nil
	}
	fb.Accepted = true
	d.report.Reason = ""
	d.report.Best = &CandidateStats{X: rx, Y: ry, R: rr, Area: compArea, InnerCov: innerCov, RingDensity: ringDen}
	return d.accept(rx, ry, rr, compArea, 0), nil
}

// upperStrongPeak scans the distance transform for up to six local peaks
// by iterated max-suppression, then picks the upper-most peak whose value
// is within 90% of the global maximum.
func upperStrongPeak(dist gocv.Mat) (x, y int, r float64, peaks int) {
	work := dist.Clone()
	defer work.Close()

	type peak struct {
		x, y int
		v    float64
	}
	var found []peak
	var globalMax float64
	for i := 0; i < 6; i++ {
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(work)
		v := float64(maxVal)
		if v <= 0 {
			break
		}
		if i == 0 {
			globalMax = v
		}
		found = append(found, peak{x: maxLoc.X, y: maxLoc.Y, v: v})
		supR := int(math.Max(6, math.Round(v*0.85)))
		gocv.Circle(&work, maxLoc, supR, color.RGBA{}, -1)
	}
	if len(found) == 0 {
		return 0, 0, 0, 0
	}

	var strong []peak
	for _, p := range found {
		if p.v >= 0.90*globalMax {
			strong = append(strong, p)
		}
	}
	if len(strong) == 0 {
		strong = found[:1]
	}
	sort.Slice(strong, func(i, j int) bool {
		if strong[i].y != strong[j].y {
			return strong[i].y < strong[j].y
		}
		return strong[i].v > strong[j].v
	})
	best := strong[0]
	return best.x, best.y, best.v, len(found)
}
