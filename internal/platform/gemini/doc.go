// Package gemini adapts Google's Gemini API to the extraction collaborators.
//
// Extractor sends a transcript to a Gemini model in JSON mode and returns the
// raw payload. Transcriber uploads a media file through the Files API and asks
// a model for a verbatim transcript, as an alternative to the local whisper
// CLI. Both depend on small interfaces over the genai client so tests can
// substitute fakes.
package gemini
