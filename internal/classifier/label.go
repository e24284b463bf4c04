package classifier

// Label is the closed set of gesture classes the pipeline acts on.
// Raw classifier strings are mapped here at the boundary; nothing
// downstream ever inspects a string.
type Label int

const (
	// LabelOther covers every class the pipeline does not act on,
	// including "no gesture recognized".
	LabelOther Label = iota
	// LabelOpenPalm drives tracking start/continue.
	LabelOpenPalm
	// LabelGripperTrigger toggles the gripper.
	LabelGripperTrigger
	// LabelResetTrigger requests a robot reset.
	LabelResetTrigger
)

// Canonical label strings produced by the gesture model.
const (
	rawOpenPalm       = "Open_Palm"
	rawGripperTrigger = "Closed_Fist"
	rawResetTrigger   = "Thumb_Up"
)

// ParseLabel maps a raw classifier string onto the closed label set.
// Unknown strings map to LabelOther.
func ParseLabel(s string) Label {
	switch s {
	case rawOpenPalm:
		return LabelOpenPalm
	case rawGripperTrigger:
		return LabelGripperTrigger
	case rawResetTrigger:
		return LabelResetTrigger
	default:
		return LabelOther
	}
}

// String returns a human-readable name for logging and overlay text.
func (l Label) String() string {
	switch l {
	case LabelOpenPalm:
		return "open-palm"
	case LabelGripperTrigger:
		return "gripper-trigger"
	case LabelResetTrigger:
		return "reset-trigger"
	default:
		return "other"
	}
}
