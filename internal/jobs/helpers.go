package jobs

import "github.com/seantiz/podfree/internal/model"

// Start marks a job running with the given message.
func (r *Registry) Start(id, message string) {
	status := model.StatusRunning
	r.Update(id, Update{Status: &status, Message: &message})
}

// Progress sets progress and message together.
func (r *Registry) Progress(id string, progress float64, message string) {
	r.Update(id, Update{Progress: &progress, Message: &message})
}

// SetProgress sets progress only.
func (r *Registry) SetProgress(id string, progress float64) {
	r.Update(id, Update{Progress: &progress})
}

// SetMessage sets the status message only.
func (r *Registry) SetMessage(id, message string) {
	r.Update(id, Update{Message: &message})
}

// AppendLog appends one log line.
func (r *Registry) AppendLog(id, line string) {
	r.Update(id, Update{LogLine: &line})
}

// Complete marks a job completed at 100%.
func (r *Registry) Complete(id, message string) {
	status := model.StatusCompleted
	progress := 100.0
	r.Update(id, Update{Status: &status, Progress: &progress, Message: &message})
}

// Fail marks a job failed.
func (r *Registry) Fail(id, message string) {
	status := model.StatusFailed
	r.Update(id, Update{Status: &status, Message: &message})
}
