package config

// Version is the auditlog binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/auditlog/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
