// Package auth implements the service-account authentication lifecycle:
// credential parsing, JWT-bearer assertion signing, and bearer-token
// management with proactive refresh.
//
// The Manager guarantees at most one token exchange in flight at any
// time; concurrent callers needing a fresh token join the same pending
// exchange. It implements oauth2.TokenSource through an adapter so the
// generated Google API clients consume tokens directly from it.
package auth
