// Package artifact stores uploaded videos on disk for the duration of one
// analysis and removes them afterwards.
//
// Files are written under a single upload directory with a random UUID name
// that keeps the original extension, so concurrent uploads never collide.
// The filesystem is abstracted with afero so tests can run against an
// in-memory filesystem.
package artifact
