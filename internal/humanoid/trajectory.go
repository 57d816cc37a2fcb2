// internal/humanoid/trajectory.go
package humanoid

import (
	"math"
	"math/rand"
	"time"
)

// computeEaseInOutCubic provides a smooth acceleration and deceleration profile for movement.
func computeEaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// fittsDuration models the time to reach a target of the given width with
// Fitts's law, MT = A + B*log2(1 + D/W), randomized by +/- 15%.
func fittsDuration(a, b, distance, width float64, rng *rand.Rand) time.Duration {
	if width < 1 {
		width = 1
	}
	id := math.Log2(1.0 + distance/width)
	mt := a + b*id
	mt += mt * (rng.Float64()*0.3 - 0.15)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt * float64(time.Millisecond))
}

// bezierPath samples a cubic Bezier curve from start to end with numSteps
// points. The two control points sit at a third and two thirds of the way and
// are pushed sideways by a random amount proportional to jitter*distance.
// Sampling follows the ease-in-out profile, so points bunch up at both ends.
func bezierPath(start, end Vector2D, numSteps int, jitter float64, rng *rand.Rand) []Vector2D {
	p0, p3 := start, end
	mainVec := end.Sub(start)
	dist := mainVec.Mag()

	if dist < 1.0 || numSteps <= 1 {
		return []Vector2D{end}
	}

	mainDir := mainVec.Normalize()
	side := mainDir.Perp()

	p1 := start.Add(mainDir.Mul(dist / 3.0)).Add(side.Mul(rng.NormFloat64() * jitter * dist))
	p2 := start.Add(mainDir.Mul(dist * 2.0 / 3.0)).Add(side.Mul(rng.NormFloat64() * jitter * dist))

	path := make([]Vector2D, numSteps)
	for i := 0; i < numSteps; i++ {
		t := computeEaseInOutCubic(float64(i) / float64(numSteps-1))
		omt := 1.0 - t
		omt2 := omt * omt
		omt3 := omt2 * omt
		t2 := t * t
		t3 := t2 * t

		path[i] = p0.Mul(omt3).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t3)).Clamp()
	}
	// Land exactly on the target regardless of float drift.
	path[numSteps-1] = end
	return path
}
