package detect

import "math"

// Pure geometric scoring helpers. These carry no gocv state so the gating
// math stays unit-testable without image fixtures.

// Circularity is 4πA/P² for a contour of area A and perimeter P.
// 1.0 for a perfect circle, approaching 0 for elongated shapes.
func Circularity(area, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

// Fill is the ratio of contour area to the area of its minimum enclosing
// circle. Low fill means the contour only grazes its bounding circle
// (crescents, merged reflections).
func Fill(area, r float64) float64 {
	if r <= 0 {
		return 0
	}
	return area / (math.Pi * r * r)
}

// Score combines area with soft circularity/fill terms. The +0.25 offsets
// keep borderline shapes competitive instead of zeroing them out; strict
// candidates get a flat bonus.
func Score(area, circ, fill float64, strict bool) float64 {
	s := area * (0.25 + circ) * (0.25 + fill)
	if strict {
		s *= 1.35
	}
	return s
}

// BrightnessScale maps an inner-circle median brightness to a score
// multiplier: heavy penalty below the floor, a monotonic boost up to +35%
// above it. Dark reflection blobs score low even when round.
func BrightnessScale(vMedian, vFloor float64) float64 {
	if vMedian < vFloor {
		return 0.30
	}
	span := 255.0 - vFloor
	if span < 1e-6 {
		span = 1e-6
	}
	t := (vMedian - vFloor) / span
	if t > 1 {
		t = 1
	}
	return 1.0 + 0.35*t
}

// SaturationScale is the analogous multiplier for solid-saturation
// coverage inside the inner circle.
func SaturationScale(cov, covMin float64) float64 {
	if cov < covMin {
		return 0.35
	}
	span := 1.0 - covMin
	if span < 1e-6 {
		span = 1e-6
	}
	t := (cov - covMin) / span
	if t > 1 {
		t = 1
	}
	return 1.0 + 0.25*t
}

// RadialAlignment measures how consistently edge gradients point along the
// radial direction from a candidate center. gx/gy are gradient components
// and rx/ry the matching radial vectors for each ring edge pixel. Returns
// the fraction of pixels whose gradient/radial cosine exceeds 0.7, plus the
// aligned and valid counts. A true sphere boundary has strong radial
// structure; flat reflections and furniture edges do not.
func RadialAlignment(gx, gy, rx, ry []float64) (score float64, aligned, total int) {
	n := len(gx)
	if n == 0 || n != len(gy) || n != len(rx) || n != len(ry) {
		return 0, 0, 0
	}
	for i := 0; i < n; i++ {
		gmag := math.Hypot(gx[i], gy[i])
		rmag := math.Hypot(rx[i], ry[i])
		if gmag < 1e-6 || rmag < 1e-6 {
			continue
		}
		total++
		cos := (gx[i]*rx[i] + gy[i]*ry[i]) / (gmag * rmag)
		if cos > 0.7 {
			aligned++
		}
	}
	if total == 0 {
		return 0, 0, 0
	}
	return float64(aligned) / float64(total), aligned, total
}
