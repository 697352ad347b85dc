// Package request provides the lazily-decoding facade over request
// connections.
//
// A Request wraps a connection's immutable scope plus its receive and send
// operations. Derived views (headers, URL, cookies, content type, the
// buffered body, decoded text, JSON, and form data) are computed on first
// access and cached on the instance, so each expensive decode runs at most
// once per connection no matter how often it is read. Caches are
// per-instance and never shared across connections.
//
// Decode failures surface as *api.DecodeError values carrying the decode
// step (encoding, json, form). The body buffer is filled by draining the
// receive stream exactly once; buffering itself never fails with a decode
// error.
package request
