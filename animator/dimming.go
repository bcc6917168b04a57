package animator

import "time"

type DimConfig struct {
	StartHour int
	EndHour   int
	Normal    int
	Dimmed    int
}

type DimState int

const (
	DimNormal DimState = iota
	DimDimmed
)

func (s DimState) String() string {
	if s == DimDimmed {
		return "dimmed"
	}
	return "normal"
}

// Dimmer picks the brightness for the time of day.
type Dimmer struct {
	cfg DimConfig
}

func NewDimmer(cfg DimConfig) *Dimmer {
	return &Dimmer{cfg: cfg}
}

// State is DimDimmed when now's hour falls in [StartHour, EndHour). A start
// after the end wraps past midnight; equal hours never dim.
func (d *Dimmer) State(now time.Time) DimState {
	h := now.Hour()
	start, end := d.cfg.StartHour, d.cfg.EndHour
	var dim bool
	if start > end {
		dim = h >= start || h < end
	} else {
		dim = h >= start && h < end
	}
	if dim {
		return DimDimmed
	}
	return DimNormal
}

func (d *Dimmer) TargetBrightness(now time.Time) int {
	if d.State(now) == DimDimmed {
		return d.cfg.Dimmed
	}
	return d.cfg.Normal
}
