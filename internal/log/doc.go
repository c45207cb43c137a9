// Package log provides the application's logging setup on top of the
// standard slog package.
//
// The MaskingHandler scrubs values that would leak operational details
// into shared logs: proxy credentials embedded in URLs, API keys, and
// authentication headers. Rotation logs are routinely pasted into issue
// reports, so masking happens in the handler rather than at call sites.
package log
