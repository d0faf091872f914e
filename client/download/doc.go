// Package download streams HTTP response bodies to disk and validates the
// result against an expected size and checksum.
//
// # Single Download
//
// [Handle] writes the response body to a temporary file alongside the
// destination path, validates it, then atomically renames it on success:
//
//	n, err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, logger,
//		download.WithExpected(download.Expected{Size: 1024, Checksum: md5hex}),
//		download.WithProgress(func(done, total int64) { ... }),
//	)
//
// # Checking Local Files
//
// [Verify] compares a file already on disk with an [Expected] value
// without loading it into memory, which lets callers skip downloads that
// are already present and correct.
//
// Most callers should use [github.com/adamwoolhether/bookfetch/client.Client.Download],
// which invokes Handle after checking the response status.
package download
