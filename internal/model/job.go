package model

import "time"

// Job status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job type constants.
const (
	TypeProxy  = "proxy"
	TypeScript = "script"
	TypeExport = "export"
)

// Export kinds.
const (
	KindAudio = "audio"
	KindVideo = "video"
)

// validTransitions maps each status to the set of statuses it may transition to.
// pending→failed covers jobs that fail before any work starts (missing source,
// missing binary).
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether status accepts no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// ValidKind reports whether kind names a supported export target.
func ValidKind(kind string) bool {
	return kind == KindAudio || kind == KindVideo
}

// Job is one unit of background work tracked by the registry. Values handed
// out by the registry are snapshots; mutating them has no effect on the
// stored record.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Label     string    `json:"label"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message"`
	Logs      []string  `json:"logs"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payload carries the type-specific parameters of a job. Exactly one field is
// set, matching Job.Type.
type Payload struct {
	Proxy  *ProxyPayload  `json:"proxy,omitempty"`
	Script *ScriptPayload `json:"script,omitempty"`
	Export *ExportPayload `json:"export,omitempty"`
}

// ProxyPayload describes a proxy encode.
type ProxyPayload struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ScriptPayload describes an automation script run.
type ScriptPayload struct {
	Script  string `json:"script"`
	WorkDir string `json:"work_dir"`
}

// ExportPayload describes a transcript-driven export.
type ExportPayload struct {
	Kind     string `json:"kind"`
	Source   string `json:"source"`
	Output   string `json:"output"`
	Segments int    `json:"segments"`
}

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	var out Payload
	if p.Proxy != nil {
		v := *p.Proxy
		out.Proxy = &v
	}
	if p.Script != nil {
		v := *p.Script
		out.Script = &v
	}
	if p.Export != nil {
		v := *p.Export
		out.Export = &v
	}
	return out
}

// Clone returns a deep copy of the job.
func (j Job) Clone() Job {
	out := j
	out.Logs = append([]string(nil), j.Logs...)
	if out.Logs == nil {
		out.Logs = []string{}
	}
	out.Payload = j.Payload.Clone()
	return out
}
