// Package jobs holds the in-memory job registry: the single source of truth
// for job status, progress, messages and log lines. Job state lives for the
// life of the process only.
package jobs
