// Package bus implements the typed message bus that connects the host
// process with the UI process.
//
// Two patterns share one envelope format: request/response, where the
// sender suspends until the matching response arrives, and fire-and-forget
// notifications. Responses are matched to requests by id only; a response
// whose id has no pending entry is dropped. The bus never times a request
// out on its own. Callers bound their wait with a context.
//
// Every event kind is declared in a closed Catalog together with the
// payload types it carries in each direction. Frames naming unknown kinds
// are rejected where they enter the bus.
package bus
