// Package client provides the HTTP client used to talk to the textbook
// platform, built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(0),
//		client.WithUserAgent("bookfetch/1.0"),
//		client.WithBearer(creds.Token),
//		client.WithThrottle(4, 2),
//	)
//
// # Making Requests
//
// Construct a [URL] and [Request], then execute with [Client.Do]:
//
//	u := client.URL("https", "api.example.com", "/v1/resource")
//	req, err := client.Request(ctx, u, http.MethodGet)
//	err = c.Do(req, http.StatusOK, client.WithDestination(&result))
//
// Responses with an unexpected status come back as an
// [*UnexpectedStatusError]. 401 and 403 additionally match [ErrAuthFailure].
//
// # Downloading Files
//
// Stream a response body directly to disk with size and checksum
// validation and progress reporting:
//
//	n, err := c.Download(req, http.StatusOK, "/tmp/book.pdf",
//		client.WithExpected(client.Expected{Size: 1 << 20, Checksum: md5Hex}),
//		client.WithProgress(func(done, total int64) { ... }),
//	)
//
// For lower-level control see the
// [github.com/adamwoolhether/bookfetch/client/download] package.
package client
