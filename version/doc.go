// Package version exposes the library version reported to the API in
// the User-Agent header.
//
// Version defaults to "dev" and can be pinned at build time:
//
//	go build -ldflags "-X github.com/cbkit/cbkit/version.Version=1.2.0"
//
// When the library is consumed as a module dependency the version is
// resolved from the embedded build info instead.
package version
