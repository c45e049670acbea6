// Package mocks provides hand-written test doubles for the interfaces that
// cross package boundaries: speech transcription, profile extraction and
// the extraction pipeline.
//
// Each mock exposes Fn fields for per-test behavior and falls back to fixed
// default values when a Fn is nil. Call tracking is safe for concurrent use
// so the mocks can be driven from task runner workers.
package mocks
