// Package auth owns the OAuth credential lifecycle for all backends.
//
// The Store persists one credential per backend as a JSON file under a
// configured directory and hands out oauth2 token sources that refresh
// transparently and write refreshed tokens back to disk. Credentials never
// leave this package except as oauth2 token sources; token values are never
// logged.
//
// The interactive browser-consent step is abstracted behind the Flow
// interface so tests can supply a canned token instead of a real
// authorization round trip.
//
// Concurrent use of the same token file is not serialized; callers that
// share a credential directory across processes must coordinate externally.
package auth
