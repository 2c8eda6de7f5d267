package version

// Version is the release of wikiquery. Overridden at build time with
// -ldflags "-X wikiquery/pkg/version.Version=...".
var Version = "v0.3.1"
