// Package svcweaver bundles the pieces services need to call each other over
// HTTP with a shared errno/error/data JSON envelope, and to answer in kind.
//
// The client package resolves a service name to a base URL, performs the call,
// and hands back an envelope.Result that is either a classified payload
// (object, list or paging list) or a Failure explaining what went wrong. Each
// call writes exactly one log record; failures carry a diagnostic report with
// the call arguments and a stack trace.
//
// # Packages
//
//   - envelope: the Result type, the response classifier, and the Builder
//     used by servers to write envelopes.
//   - client: the dispatcher with one method per HTTP verb.
//   - registry: static, TOML, SQL and MongoDB service resolvers.
//   - diagnostic: renders call reports and argument dumps.
//   - responder: writes envelopes and error envelopes from HTTP handlers.
//   - router: http.ServeMux factory with OpenAPI validation, CORS, timeouts and
//     request logging.
//   - info and probe: health, version and service catalog endpoints backed by
//     database and downstream service probes.
//   - grpcx: converts failures to gRPC statuses and back.
//   - logsink: slog handler writing through zerolog.
//   - jsonutil: tiny helpers around sonic.
//
// # Quick Start
//
//	services, _ := registry.LoadFile("services.toml")
//	c := client.New(services, client.WithLogger(logger))
//
//	res := c.Get(ctx, "core", "menu/index", map[string]string{"page": "1"})
//	if res.HasError() {
//	    return res.Err()
//	}
//	var items []MenuItem
//	err := res.DecodeData(&items)
//
// On the serving side, share one responder so envelopes and request ids stay
// consistent:
//
//	resp := responder.NewResponder(responder.WithLogger(logger))
//	resp.RespondWithPaging(w, r, total, page, pageSize, items)
package svcweaver
