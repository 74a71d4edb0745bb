// Package engine runs the background media work of a workspace: proxy
// encodes, helper scripts and transcript-driven exports. Every operation
// creates a job in the registry, dispatches one goroutine for it and returns
// the job id immediately; progress and outcome are observed through the
// registry.
package engine
