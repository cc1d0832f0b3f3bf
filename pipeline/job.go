package pipeline

import "fmt"

// Status is one stage of a pipeline run. Transitions are strictly forward;
// StatusDone and StatusFailed are terminal.
type Status string

const (
	StatusReceived     Status = "received"
	StatusUploading    Status = "uploading"
	StatusTranscribing Status = "transcribing"
	StatusPolishing    Status = "polishing"
	StatusExtracting   Status = "extracting"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
)

// Job is one in-flight audio-to-proposal conversion. Each run owns its Job
// exclusively; nothing is shared between concurrent runs.
type Job struct {
	ID       string
	FilePath string
	Status   Status
}

func NewJob(id, filePath string) *Job {
	return &Job{
		ID:       id,
		FilePath: filePath,
		Status:   StatusReceived,
	}
}

// Transition validates and applies a status change.
func (j *Job) Transition(to Status) error {
	if to == j.Status {
		return nil
	}
	if !validTransition(j.Status, to) {
		return fmt.Errorf("invalid transition: %s -> %s", j.Status, to)
	}
	j.Status = to
	return nil
}

// Terminal reports whether the job finished, successfully or not.
func (j *Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

// validTransition enforces the forward-only state machine edges.
func validTransition(from, to Status) bool {
	if from == StatusDone || from == StatusFailed {
		return false
	}
	if to == StatusFailed {
		return true
	}
	switch from {
	case StatusReceived:
		return to == StatusUploading || to == StatusPolishing
	case StatusUploading:
		return to == StatusTranscribing
	case StatusTranscribing:
		return to == StatusPolishing
	case StatusPolishing:
		return to == StatusExtracting
	case StatusExtracting:
		return to == StatusDone
	default:
		return false
	}
}
