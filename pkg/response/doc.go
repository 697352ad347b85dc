// Package response provides buffered response values and the negotiation
// of handler results into canonical send-event sequences.
//
// A [Response] carries status, headers, and a complete body. Its Events
// method produces the canonical sendable sequence for the transport: one
// response.start event followed by one final response.body event.
// [Negotiate] normalizes the heterogeneous values handlers may return
// (nil, *Response, string, []byte, or any JSON-marshalable value) into a
// *Response under a fixed convention that callers may rely on.
//
// Anything implementing [Sendable] qualifies as a valid handler result for
// the sending stage, so applications can stream custom framings without
// buffering through a Response.
package response
