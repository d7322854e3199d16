package version

// Version is the specsync release version, overridable at build time via
// -ldflags "-X github.com/specsync/specsync/internal/version.Version=...".
var Version = "0.1.0-dev"
