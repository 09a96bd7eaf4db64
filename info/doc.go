// Package info exposes build metadata, health probes, the OpenAPI document,
// and the service catalog of a svcweaver service. Every endpoint except the
// raw OpenAPI document answers with an errno/error/data envelope, so other
// services can call them through client.Client.
//
// See ExampleInfoHandler_full for a runnable wiring of the handler and probes.
package info
