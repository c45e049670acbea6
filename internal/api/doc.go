// Package api exposes the analysis service over HTTP. Handlers parse
// multipart uploads and path parameters, call the service layer and map
// its errors to status codes and client-safe messages.
package api
