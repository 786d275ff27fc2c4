// Package form drives the submission flow: pick a CSV file and a language
// pair, validate, upload, follow the status, then refresh the file list.
package form

// Status is one of the five form states.
type Status string

const (
	// StatusIdle means nothing is running.
	StatusIdle Status = "idle"

	// StatusUploading means the CSV is being sent.
	StatusUploading Status = "uploading"

	// StatusProcessing means the service is generating audio.
	StatusProcessing Status = "processing"

	// StatusCompleted means the last submission succeeded.
	StatusCompleted Status = "completed"

	// StatusError means selection, validation or submission failed.
	StatusError Status = "error"
)

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// IsActive returns true while a submission is in flight.
func (s Status) IsActive() bool {
	return s == StatusUploading || s == StatusProcessing
}

// IsFinished returns true once a submission completed or failed.
func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusError
}

// NoProgress marks a State without a progress value.
const NoProgress = -1

// Status messages.
const (
	MsgReady          = "Ready to process CSV file"
	MsgInvalidFile    = "Please select a valid CSV file"
	MsgNoFile         = "Please select a CSV file first"
	MsgMissingLangs   = "Please select both languages"
	MsgSameLangs      = "Please select different languages"
	MsgUploading      = "Uploading file..."
	MsgProcessing     = "Processing CSV and generating audio..."
	MsgFinalizing     = "Finalizing audio generation..."
	MsgCompleted      = "Audio generation completed successfully!"
	msgFailedPrefix   = "Audio generation failed: "
	msgSelectedPrefix = "File selected: "
)

// State is what the form shows: a status, a message and an optional
// percentage.
type State struct {
	Status   Status
	Message  string
	Progress int
}

// Idle is the initial state.
func Idle() State {
	return State{Status: StatusIdle, Message: MsgReady, Progress: NoProgress}
}

// Failed builds an error state.
func Failed(msg string) State {
	return State{Status: StatusError, Message: msg, Progress: NoProgress}
}

// HasProgress reports whether Progress holds a percentage.
func (s State) HasProgress() bool {
	return s.Progress >= 0 && s.Progress <= 100
}
