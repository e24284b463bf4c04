package pose

// FilterConfig holds the rejection thresholds and blending weights for the
// temporal pose filter.
type FilterConfig struct {
	// MaxAngle is the largest accepted orientation jump between consecutive
	// poses, in radians.
	MaxAngle float64
	// MaxDistance is the largest accepted translation jump, in meters.
	MaxDistance float64
	// SlerpT is the spherical interpolation factor applied to accepted
	// orientations (previous → new).
	SlerpT float64
	// EMAAlpha is the exponential-moving-average weight for accepted
	// translations: blended = alpha*new + (1-alpha)*old.
	EMAAlpha float64
}

// Filter rejects implausible poses and temporally smooths accepted ones.
// It is owned by the worker lane and is not safe for concurrent use.
type Filter struct {
	cfg  FilterConfig
	prev *Pose
}

// NewFilter creates a Filter with the given thresholds.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Apply feeds one raw pose through the filter.
//
// With no previous accepted pose, raw is accepted unconditionally as the new
// baseline. Otherwise the pose is rejected when the orientation jump exceeds
// MaxAngle or the translation jump exceeds MaxDistance: the filter reports
// no pose, and the previous accepted pose is retained while tracking and
// dropped otherwise. Accepted poses are blended into the previous one
// (SLERP for orientation, EMA for translation) and stored.
func (f *Filter) Apply(raw Pose, tracking bool) (Pose, bool) {
	if f.prev == nil {
		f.prev = &raw
		return raw, true
	}

	old := *f.prev

	angle := GeodesicAngle(old.Orientation, raw.Orientation)
	dist := old.Translation.Sub(raw.Translation).Norm()

	if angle > f.cfg.MaxAngle || dist > f.cfg.MaxDistance {
		if !tracking {
			f.prev = nil
		}
		return Pose{}, false
	}

	blended := Pose{
		Translation: raw.Translation.Mul(f.cfg.EMAAlpha).
			Add(old.Translation.Mul(1 - f.cfg.EMAAlpha)),
		Orientation: Slerp(old.Orientation, raw.Orientation, f.cfg.SlerpT),
	}

	f.prev = &blended
	return blended, true
}

// Last returns the last accepted pose, or nil if there is none.
func (f *Filter) Last() *Pose {
	return f.prev
}

// Reset clears the filter baseline, e.g. when tracking ends.
func (f *Filter) Reset() {
	f.prev = nil
}
