// Package service contains the application use cases. AnalysisService
// coordinates the artifact store, the task runner and the extraction
// pipeline behind the HTTP handlers, which never touch those components
// directly.
package service
