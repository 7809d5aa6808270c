package types

// Stage is one phase of the install state machine
type Stage int

const (
	StageResolving Stage = iota
	StagePreallocating
	StageDownloading
	StageVerifying
	StageExtracting
	StageFinalizing
	StageCompleted
	StageFailed
)

// String returns the string representation of the stage
func (s Stage) String() string {
	switch s {
	case StageResolving:
		return "resolving"
	case StagePreallocating:
		return "preallocating"
	case StageDownloading:
		return "downloading"
	case StageVerifying:
		return "verifying"
	case StageExtracting:
		return "extracting"
	case StageFinalizing:
		return "finalizing"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// MarshalText encodes the stage by name
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// InstallAccepted is returned by install before any transfer starts
type InstallAccepted struct {
	SessionID string `json:"session_id"`
	AppID     string `json:"app_id"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
}
