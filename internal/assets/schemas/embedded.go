// Package schemasassets embeds the JSON schemas bucketglob validates against,
// so validation works from any working directory or install location.
package schemasassets

import _ "embed"

// GlobManifestSchema is the glob-manifest JSON schema.
//
//go:embed glob-manifest.schema.json
var GlobManifestSchema []byte
