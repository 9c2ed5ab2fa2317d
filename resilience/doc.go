// Package resilience provides retry with exponential backoff and
// client-side rate limiting for API calls.
//
// Retry is scoped to a single logical call: attempt state lives on the
// stack and is discarded after success or exhaustion. When every
// attempt fails on a retryable error, the caller receives an
// *ExhaustedError wrapping the last observed failure.
package resilience
