// Package extraction turns a stored video into a structured profile.
//
// A Pipeline runs two external collaborators in sequence: a Transcriber that
// converts speech to text, and an Extractor that asks a language model for a
// JSON profile. The model output is treated as untrusted and is always
// normalized (see NormalizeProfile) before it is returned.
//
// Failures are reported as *Failure values carrying a Kind and a message that
// is safe to show to API clients. They match the package sentinel errors with
// errors.Is.
package extraction
