// Package task manages the lifecycle of asynchronous video analyses.
//
// A Registry records each task's status and final outcome, and a TaskRunner
// feeds submitted videos to a fixed pool of workers so that HTTP handlers
// return as soon as the upload is stored. State is held in memory only and
// is lost when the process exits.
package task
