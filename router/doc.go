// Package router wraps http.ServeMux with the middlewares a svcweaver
// service runs behind: request ids, panic recovery, OpenAPI validation,
// CORS, timeouts and an access log. Requests rejected by validation, cut off
// by the timeout, or whose handler panicked receive an error envelope whose
// errno is the HTTP status. ExampleNew_customOptions combines built-in and
// custom middlewares; ExampleLoadConfig reads the settings from TOML.
package router
