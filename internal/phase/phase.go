// Package phase models the observable lifecycle of a transcription job.
//
// The worker does not emit structured progress, so the supervisor infers the
// current phase from recognizable fragments of its output. Phases are
// ordered and monotonic per job: once a job is seen in a later phase it
// never reports an earlier one, even if a stray line matches an earlier
// marker.
package phase

import "strings"

// Phase is one step of a job's lifecycle.
type Phase int

const (
	Initializing Phase = iota
	DetectingSpeech
	Transcribing
	Aligning
	Diarizing
	Finalizing
)

var names = [...]string{
	Initializing:    "initializing",
	DetectingSpeech: "detecting_speech",
	Transcribing:    "transcribing",
	Aligning:        "aligning",
	Diarizing:       "diarizing",
	Finalizing:      "finalizing",
}

var labels = [...]string{
	Initializing:    "Initializing",
	DetectingSpeech: "Detecting speech (VAD)",
	Transcribing:    "Transcribing",
	Aligning:        "Aligning timestamps",
	Diarizing:       "Identifying speakers",
	Finalizing:      "Finalizing output",
}

func (p Phase) String() string {
	if p < Initializing || int(p) >= len(names) {
		return "unknown"
	}
	return names[p]
}

// Label returns the operator-facing status text for the phase.
func (p Phase) Label() string {
	if p < Initializing || int(p) >= len(labels) {
		return "Working"
	}
	return labels[p]
}

// markers maps worker output fragments to the phase they announce, checked
// in this order. Finalizing has no marker: the supervisor enters it when the
// output streams close.
var markers = []struct {
	fragment string
	phase    Phase
}{
	{"Performing VAD", DetectingSpeech},
	{"voice activity detection", DetectingSpeech},
	{"Performing transcription", Transcribing},
	{"Performing alignment", Aligning},
	{"Performing diarization", Diarizing},
}

// Classify returns the phase after observing one line of worker output.
// The result never regresses below current; unrecognized lines leave the
// phase unchanged.
func Classify(current Phase, line string) Phase {
	for _, m := range markers {
		if strings.Contains(line, m.fragment) {
			if m.phase > current {
				return m.phase
			}
			return current
		}
	}
	return current
}
