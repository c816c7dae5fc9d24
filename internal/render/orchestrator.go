package render

import (
	"context"
	"image"
	"log"
	"math"
	"sync"
	"time"

	"plantpulse/internal/layout"
	"plantpulse/internal/theme"
)

// DefaultRefresh keeps the now-line current without new data.
const DefaultRefresh = 60 * time.Second

type State int

const (
	StateIdle State = iota
	StateMeasuring
	StatePainting
)

func (s State) String() string {
	switch s {
	case StateMeasuring:
		return "measuring"
	case StatePainting:
		return "painting"
	default:
		return "idle"
	}
}

type Trigger int

const (
	TriggerInput Trigger = iota
	TriggerTheme
	TriggerResize
	TriggerTick
)

func (t Trigger) String() string {
	switch t {
	case TriggerTheme:
		return "theme"
	case TriggerResize:
		return "resize"
	case TriggerTick:
		return "tick"
	default:
		return "input"
	}
}

// PaintResult describes one paint pass.
type PaintResult struct {
	Trigger     Trigger
	Skipped     bool
	Reason      string
	At          time.Time
	Width       float64
	Height      float64
	Theme       string
	Rows        int
	Bars        int
	Diagnostics []layout.Diagnostic
}

// Orchestrator repaints the wallboard whenever an input changes, the surface
// is resized, the theme flips, or the refresh interval elapses. Paints never
// overlap: Paint holds a lock for the whole pass and Run handles triggers on
// a single goroutine.
type Orchestrator struct {
	Painter    *Painter
	NewSurface SurfaceFactory
	Scale      float64
	Interval   time.Duration
	Now        func() time.Time
	Logger     *log.Logger
	Verbose    bool
	// Night, when set, is consulted on every tick to auto-switch the theme.
	Night *theme.NightSwitch
	// Registry and SurfaceID publish every painted image.
	Registry  *Registry
	SurfaceID string
	OnPaint   func(PaintResult, image.Image)
	// Reload, when set, is polled first on every tick and may call SetNight;
	// ok replaces the inputs but keeps the current mode.
	Reload func(now time.Time) (in Inputs, ok bool)

	paintMu sync.Mutex

	mu       sync.Mutex
	in       Inputs
	width    float64
	height   float64
	state    State
	last     PaintResult
	image    image.Image
	triggers chan Trigger
}

func NewOrchestrator(p *Painter, factory SurfaceFactory) *Orchestrator {
	return &Orchestrator{
		Painter:    p,
		NewSurface: factory,
		Scale:      1,
		Interval:   DefaultRefresh,
		Now:        time.Now,
		Logger:     log.Default(),
		triggers:   make(chan Trigger, 16),
	}
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

func (o *Orchestrator) enqueue(t Trigger) {
	select {
	case o.triggers <- t:
	default:
		// A queued paint will pick up the latest state.
	}
}

// SetInputs replaces the render inputs and requests a repaint.
func (o *Orchestrator) SetInputs(in Inputs) {
	o.mu.Lock()
	o.in = in
	o.mu.Unlock()
	o.enqueue(TriggerInput)
}

// SetNight switches the theme. It is a no-op when the mode is unchanged.
func (o *Orchestrator) SetNight(night bool) {
	o.mu.Lock()
	changed := o.in.Night != night
	o.in.Night = night
	o.mu.Unlock()
	if changed {
		o.enqueue(TriggerTheme)
	}
}

// Resize records the measured viewport size.
func (o *Orchestrator) Resize(w, h float64) {
	o.mu.Lock()
	o.width, o.height = math.Floor(w), math.Floor(h)
	if o.width > 0 && o.state == StateIdle {
		o.state = StateMeasuring
	}
	o.mu.Unlock()
	o.enqueue(TriggerResize)
}

// Tick requests a refresh of the now-line.
func (o *Orchestrator) Tick() {
	o.enqueue(TriggerTick)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Inputs() Inputs {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.in
}

// Last returns the most recent paint result and image.
func (o *Orchestrator) Last() (PaintResult, image.Image) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.image
}

// Paint runs one complete paint pass synchronously. A zero width or a
// missing surface skips the pass; the next trigger retries.
func (o *Orchestrator) Paint(trigger Trigger) PaintResult {
	o.paintMu.Lock()
	defer o.paintMu.Unlock()

	now := o.Now()
	if trigger == TriggerTick && o.Reload != nil {
		if in, ok := o.Reload(now); ok {
			o.mu.Lock()
			in.Night = o.in.Night
			o.in = in
			o.mu.Unlock()
		}
	}
	if trigger == TriggerTick && o.Night != nil {
		night, _ := o.Night.Check(now)
		o.mu.Lock()
		o.in.Night = night
		o.mu.Unlock()
	}

	o.mu.Lock()
	in, w, h := o.in, o.width, o.height
	o.mu.Unlock()

	res := PaintResult{Trigger: trigger, At: now, Width: w}
	if w <= 0 {
		return o.skip(res, "viewport width is zero")
	}
	if o.Painter == nil || o.NewSurface == nil {
		return o.skip(res, "no surface")
	}

	o.setState(StatePainting)
	sc := o.Painter.Prepare(in, w, h, now)
	surface, err := o.NewSurface(int(sc.Width), int(math.Ceil(sc.Height)), o.Scale)
	if err != nil || surface == nil {
		o.setState(StateIdle)
		reason := "no surface"
		if err != nil {
			reason = err.Error()
		}
		return o.skip(res, reason)
	}
	th := o.Painter.Themes.Pick(in.Night)
	o.Painter.Draw(surface, sc, th)
	img := surface.Image()

	res.Height = sc.Height
	res.Theme = th.Name
	res.Rows = len(sc.Rows)
	res.Bars = len(sc.Bars)
	res.Diagnostics = sc.Diagnostics
	for _, d := range sc.Diagnostics {
		o.logf("render: %s", d.Message)
	}
	if o.Registry != nil && o.SurfaceID != "" {
		o.Registry.Put(Painted{ID: o.SurfaceID, Image: img, PaintedAt: now, Theme: th.Name})
	}

	o.mu.Lock()
	o.last, o.image, o.state = res, img, StateIdle
	o.mu.Unlock()
	if o.Verbose {
		o.logf("render: painted %s %.0fx%.0f rows=%d bars=%d theme=%s", trigger, sc.Width, sc.Height, res.Rows, res.Bars, th.Name)
	}
	if o.OnPaint != nil {
		o.OnPaint(res, img)
	}
	return res
}

func (o *Orchestrator) skip(res PaintResult, reason string) PaintResult {
	res.Skipped = true
	res.Reason = reason
	if o.Verbose {
		o.logf("render: skipped %s paint: %s", res.Trigger, reason)
	}
	return res
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run handles triggers and the refresh ticker until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	interval := o.Interval
	if interval <= 0 {
		interval = DefaultRefresh
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.Paint(TriggerTick)
		case t := <-o.triggers:
			o.Paint(t)
		}
	}
}
