package process

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external tool the engine relies on.
type Requirement struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
}

// Status reports whether a requirement is available on this host.
type Status struct {
	Requirement
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// CheckBinaries looks up each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		st := Status{Requirement: req}
		switch {
		case req.Command == "":
			st.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(req.Command); err != nil {
				st.Detail = fmt.Sprintf("binary %q not found", req.Command)
			} else {
				st.Available = true
			}
		}
		results = append(results, st)
	}
	return results
}
