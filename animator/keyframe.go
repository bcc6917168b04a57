package animator

import "fmt"

// Callback draws one keyframe of a scene.
type Callback func(tick Tick) error

// Keyframe is a single registration. It is never modified once stored.
type Keyframe struct {
	Period   int
	Callback Callback
	Owner    SceneID
}

// Registry holds the keyframes contributed by every scene, in registration
// order. It is filled while scenes are built and only read afterwards.
type Registry struct {
	keyframes []Keyframe
	byOwner   map[SceneID][]int
}

func NewRegistry() *Registry {
	return &Registry{byOwner: make(map[SceneID][]int)}
}

// Register adds a keyframe firing on every tick divisible by period.
func (r *Registry) Register(period int, cb Callback, owner SceneID) error {
	if period <= 0 {
		return fmt.Errorf("%w: scene %s asked for %d", ErrInvalidPeriod, owner, period)
	}
	if cb == nil {
		return fmt.Errorf("scene %s registered a nil callback", owner)
	}
	r.byOwner[owner] = append(r.byOwner[owner], len(r.keyframes))
	r.keyframes = append(r.keyframes, Keyframe{Period: period, Callback: cb, Owner: owner})
	return nil
}

// RegisterAll adds the keyframes of one scene together: if any of them is
// rejected none is stored.
func (r *Registry) RegisterAll(owner SceneID, frames ...Keyframe) error {
	for _, kf := range frames {
		if kf.Period <= 0 {
			return fmt.Errorf("%w: scene %s asked for %d", ErrInvalidPeriod, owner, kf.Period)
		}
		if kf.Callback == nil {
			return fmt.Errorf("scene %s registered a nil callback", owner)
		}
	}
	for _, kf := range frames {
		if err := r.Register(kf.Period, kf.Callback, owner); err != nil {
			return err
		}
	}
	return nil
}

// Due returns the callbacks of owner that fire on tick, first registered first.
func (r *Registry) Due(tick Tick, owner SceneID) []Callback {
	var due []Callback
	for _, i := range r.byOwner[owner] {
		kf := r.keyframes[i]
		if uint64(tick)%uint64(kf.Period) == 0 {
			due = append(due, kf.Callback)
		}
	}
	return due
}

// Keyframes lists the registrations of owner.
func (r *Registry) Keyframes(owner SceneID) []Keyframe {
	idx := r.byOwner[owner]
	out := make([]Keyframe, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.keyframes[i])
	}
	return out
}

// Len is the total number of registrations.
func (r *Registry) Len() int {
	return len(r.keyframes)
}
