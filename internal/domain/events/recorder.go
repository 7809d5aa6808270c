package events

import "sync"

// Recorder keeps every emitted event in order. Used by tests and debugging
// endpoints.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements Emitter
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns recorded events of type t
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ForApp returns recorded events naming appID
func (r *Recorder) ForApp(appID string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.AppID == appID {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears the recording
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
