package events

import (
	"time"

	"github.com/GriffinCanCode/librarian/internal/shared/types"
)

// Type names an event on the wire
type Type string

const (
	TypeInstallStarted     Type = "install-started"
	TypeInstallProgressed  Type = "install-progressed"
	TypeInstallCompleted   Type = "install-completed"
	TypeInstallFailed      Type = "install-failed"
	TypeAuthError          Type = "auth-error"
	TypePropertyChanged    Type = "property-changed"
	TypeLaunchReady        Type = "launch-ready"
	TypeLibraryUpdated     Type = "library-updated"
	TypeAppNewVersionFound Type = "app-new-version-found"
)

// Terminal reports whether t ends an install session
func (t Type) Terminal() bool {
	return t == TypeInstallCompleted || t == TypeInstallFailed
}

// Event is one notification. Payload holds one of the payload structs below.
type Event struct {
	Type      Type        `json:"type"`
	AppID     string      `json:"app_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Emitter receives events
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(Event)

// Emit calls f(e)
func (f EmitterFunc) Emit(e Event) { f(e) }

// Nop discards every event
var Nop Emitter = EmitterFunc(func(Event) {})

// InstallStartedPayload announces a session that passed Preallocating
type InstallStartedPayload struct {
	AppID           string `json:"app_id"`
	Version         string `json:"version"`
	Path            string `json:"path"`
	TotalSize       uint64 `json:"total_size"`
	RequiresNetwork bool   `json:"requires_network"`
	OS              string `json:"os"`
}

// InstallProgressedPayload reports transfer progress
type InstallProgressedPayload struct {
	AppID   string      `json:"app_id"`
	Stage   types.Stage `json:"stage"`
	Bytes   uint64      `json:"bytes"`
	Total   uint64      `json:"total"`
	Percent float64     `json:"percent"`
}

// InstallCompletedPayload ends a successful session
type InstallCompletedPayload struct {
	AppID string `json:"app_id"`
}

// InstallFailedPayload ends a failed session
type InstallFailedPayload struct {
	AppID  string `json:"app_id"`
	Reason string `json:"reason"`
}

// AuthErrorPayload carries a login failure cause
type AuthErrorPayload struct {
	Message string `json:"message"`
}

// PropertyChangedPayload names a derived property whose value changed
type PropertyChangedPayload struct {
	Which string `json:"which"`
}

// LaunchReadyPayload signals pre-launch work is done
type LaunchReadyPayload struct {
	AppID string `json:"app_id"`
}

// LibraryUpdatedPayload reports a rescan
type LibraryUpdatedPayload struct {
	Count int `json:"count"`
}

// NewVersionPayload reports an installed app with a newer catalog version
type NewVersionPayload struct {
	AppID   string `json:"app_id"`
	Version string `json:"version"`
}

// Property names used in property-changed events
const (
	PropertyStatus     = "status"
	PropertyUsername   = "username"
	PropertyIdentifier = "identifier"
)

func newEvent(t Type, appID string, payload interface{}) Event {
	return Event{Type: t, AppID: appID, Timestamp: time.Now().UTC(), Payload: payload}
}

// InstallStarted builds an install-started event
func InstallStarted(p InstallStartedPayload) Event {
	return newEvent(TypeInstallStarted, p.AppID, p)
}

// InstallProgressed builds an install-progressed event
func InstallProgressed(appID string, stage types.Stage, bytes, total uint64) Event {
	var percent float64
	if total > 0 {
		percent = float64(bytes) / float64(total) * 100
	}
	return newEvent(TypeInstallProgressed, appID, InstallProgressedPayload{
		AppID:   appID,
		Stage:   stage,
		Bytes:   bytes,
		Total:   total,
		Percent: percent,
	})
}

// InstallCompleted builds an install-completed event
func InstallCompleted(appID string) Event {
	return newEvent(TypeInstallCompleted, appID, InstallCompletedPayload{AppID: appID})
}

// InstallFailed builds an install-failed event
func InstallFailed(appID, reason string) Event {
	return newEvent(TypeInstallFailed, appID, InstallFailedPayload{AppID: appID, Reason: reason})
}

// AuthError builds an auth-error event
func AuthError(message string) Event {
	return newEvent(TypeAuthError, "", AuthErrorPayload{Message: message})
}

// PropertyChanged builds a property-changed event
func PropertyChanged(which string) Event {
	return newEvent(TypePropertyChanged, "", PropertyChangedPayload{Which: which})
}

// LaunchReady builds a launch-ready event
func LaunchReady(appID string) Event {
	return newEvent(TypeLaunchReady, appID, LaunchReadyPayload{AppID: appID})
}

// LibraryUpdated builds a library-updated event
func LibraryUpdated(count int) Event {
	return newEvent(TypeLibraryUpdated, "", LibraryUpdatedPayload{Count: count})
}

// NewVersionFound builds an app-new-version-found event
func NewVersionFound(appID, version string) Event {
	return newEvent(TypeAppNewVersionFound, appID, NewVersionPayload{AppID: appID, Version: version})
}
