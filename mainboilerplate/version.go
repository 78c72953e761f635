// Package mainboilerplate contains shared boilerplate of the flashmap
// binary: logging, layered flag / environment / INI configuration, and
// run diagnostics.
package mainboilerplate

// Version and BuildDate are populated at link time, with:
//
//	-ldflags "-X go.flashmap.dev/core/mainboilerplate.Version=... -X go.flashmap.dev/core/mainboilerplate.BuildDate=..."
var (
	Version   = "development"
	BuildDate = "unknown"
)
