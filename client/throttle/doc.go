// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound HTTP requests per host using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		4, // requests per second, per host
//		2, // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// When a host's bucket is empty, requests to it block until a token
// becomes available or the request context is cancelled. Requests to
// other hosts are unaffected.
package throttle
