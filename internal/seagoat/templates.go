package seagoat

import _ "embed"

// The engine image is assembled from these templates plus a snapshot of
// the repository; see buildContext.

//go:embed templates/Dockerfile.seagoat.base
var dockerfileTemplate []byte

//go:embed templates/run.base.sh
var runScriptTemplate []byte
