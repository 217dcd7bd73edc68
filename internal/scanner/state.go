package scanner

// State is the lifecycle of one sensor.
type State int

const (
	Idle State = iota
	Scanning
	Complete
	NoResourcesFound
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Scanning:
		return "Scanning"
	case Complete:
		return "Complete"
	case NoResourcesFound:
		return "No resources found"
	default:
		return "Unknown"
	}
}

// Terminal states only end when the vessel moves to another body.
func (s State) Terminal() bool {
	return s == Complete || s == NoResourcesFound
}

// Status lines shown next to a sensor.
const (
	StatusIdle     = "Idle"
	StatusScanning = "Scanning..."
	StatusStarved  = "Not enough resources"
	StatusComplete = "Complete"
)
