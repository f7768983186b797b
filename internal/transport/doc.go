// Package transport defines the narrow contracts the execution engine uses
// to talk to the remote analysis API — submit a step's work, poll a deferred
// job, fetch a finished artifact — together with the wire-level models those
// operations exchange. The HTTP implementation lives in pulseapi; tests
// substitute in-memory fakes.
package transport
