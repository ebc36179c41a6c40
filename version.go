package daqs

import _ "embed"

// Version is the release of the daqs module, read from the VERSION file.
//
//go:embed VERSION
var Version string
