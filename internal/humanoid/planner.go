// internal/humanoid/planner.go
// Package humanoid plans simulated pointer movements: a curved, eased path
// from the last cursor position to a point inside the target, and a press
// hold time. Drivers replay the plan through their native input API.
package humanoid

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/xkilldash9x/crossbrowse/internal/config"
)

// Plan is one pointer click: the moves to replay and how long to hold the button.
type Plan struct {
	Path []Vector2D
	Hold time.Duration
	// Duration is the modeled movement time that Path was sampled over.
	Duration time.Duration
}

// Target returns the final point of the plan.
func (p Plan) Target() Vector2D {
	if len(p.Path) == 0 {
		return Vector2D{}
	}
	return p.Path[len(p.Path)-1]
}

// Planner produces click plans for one session. It remembers where the
// previous plan left the cursor. It is safe for concurrent use.
type Planner struct {
	cfg config.HumanoidConfig

	mu      sync.Mutex
	rng     *rand.Rand
	current Vector2D
	hasPos  bool
}

// New creates a Planner. A zero seed picks a time based one.
func New(cfg config.HumanoidConfig) *Planner {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Planner{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// PlanClick plans a click on the box at (x, y) with the given size, in
// viewport coordinates.
func (p *Planner) PlanClick(x, y, width, height float64) Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	center := Vector2D{X: x + width/2, Y: y + height/2}
	if !p.cfg.Enabled {
		p.current, p.hasPos = center, true
		return Plan{Path: []Vector2D{center}, Hold: time.Duration(p.cfg.ClickHoldMinMs) * time.Millisecond}
	}

	target := p.targetPoint(x, y, width, height)
	start := p.startPoint(target)

	dist := start.Dist(target)
	duration := fittsDuration(p.cfg.FittsA, p.cfg.FittsB, dist, math.Min(width, height), p.rng)

	steps := int(duration.Seconds() * p.cfg.StepsPerSecond)
	if steps < 2 {
		steps = 2
	}
	if steps > p.cfg.MaxSteps {
		steps = p.cfg.MaxSteps
	}

	plan := Plan{
		Path:     bezierPath(start, target, steps, p.cfg.CurveJitter, p.rng),
		Hold:     p.holdDuration(),
		Duration: duration,
	}
	p.current, p.hasPos = target, true
	return plan
}

// targetPoint picks a point around the center, kept TargetInset of the box
// size away from every edge.
func (p *Planner) targetPoint(x, y, width, height float64) Vector2D {
	spread := 0.5 - p.cfg.TargetInset
	offset := func(size float64) float64 {
		// Three standard deviations reach the allowed edge.
		u := math.Max(-1, math.Min(1, p.rng.NormFloat64()/3))
		return size * (0.5 + spread*u)
	}
	return Vector2D{X: x + offset(width), Y: y + offset(height)}.Clamp()
}

// startPoint returns the remembered cursor position, or a point a short
// random distance from the target when the session has not moved yet.
func (p *Planner) startPoint(target Vector2D) Vector2D {
	if p.hasPos {
		return p.current
	}
	angle := p.rng.Float64() * 2 * math.Pi
	dist := 120 + p.rng.Float64()*120
	return target.Add(Vector2D{X: math.Cos(angle), Y: math.Sin(angle)}.Mul(dist)).Clamp()
}

// holdDuration draws a press duration from a normal distribution centered in
// the configured range and clamped to it.
func (p *Planner) holdDuration() time.Duration {
	lo := float64(p.cfg.ClickHoldMinMs)
	hi := float64(p.cfg.ClickHoldMaxMs)
	mean := (lo + hi) / 2
	sd := (hi - lo) / 4
	ms := math.Max(lo, math.Min(hi, mean+p.rng.NormFloat64()*sd))
	return time.Duration(ms * float64(time.Millisecond))
}

// Position returns the last planned cursor position and whether one exists.
func (p *Planner) Position() (Vector2D, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.hasPos
}
