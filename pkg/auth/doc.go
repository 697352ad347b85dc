// Package auth authenticates request connections with bearer tokens.
//
// Bearer builds a middleware stage that validates HS256-signed JWTs from
// the Authorization header of request connections. A valid token yields an
// Identity that travels down the chain on the context; handlers read it
// back with IdentityFromContext. A missing or invalid token short-circuits
// the chain with a 401 result. Paths on the bypass list skip authentication
// entirely, as do message and lifecycle connections.
package auth
