package kvsession

import _ "embed"

// Version is the kvsession release, read from the VERSION file.
//
//go:embed VERSION
var Version string
