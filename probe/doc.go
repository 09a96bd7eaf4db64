// Package probe turns databases, service registries and downstream services
// into health checks for info.InfoHandler. Failed checks return *Error, which
// carries errno 503. See ExampleNewServiceProbe for checking a peer service
// through client.Client.
package probe
