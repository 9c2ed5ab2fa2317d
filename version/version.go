package version

import (
	"runtime/debug"
	"sync"
)

// modulePath is the import path version resolution looks for in the
// consumer's build info.
const modulePath = "github.com/cbkit/cbkit"

// Version is set at build time via -ldflags.
var Version = "dev"

var resolveOnce = sync.OnceValue(resolve)

// resolve returns the effective library version: the ldflags override
// when set, otherwise the module version recorded in the consumer's
// build info.
func resolve() string {
	if Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	for _, dep := range info.Deps {
		if dep.Path == modulePath && dep.Version != "" {
			return dep.Version
		}
	}
	return Version
}

// String returns the effective library version.
func String() string {
	return resolveOnce()
}

// UserAgent is the User-Agent header value sent on every REST request
// and websocket handshake.
func UserAgent() string {
	return "cbkit/" + String()
}
