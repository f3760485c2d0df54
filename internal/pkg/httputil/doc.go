// Package httputil holds the JSON response helpers every handler writes
// through, so status codes and error envelopes stay uniform.
package httputil
