package lambundaler

import (
	"fmt"

	"github.com/aztecrex/lambundaler/deploy"
)

// Artifact keys present in Result.Artifacts.
const (
	// ArtifactSourcemap holds the source map content (string) when a
	// map was requested and minification ran.
	ArtifactSourcemap = "sourcemap"

	// ArtifactLambda holds the *deploy.Function descriptor returned by
	// the platform's create call when deployment ran.
	ArtifactLambda = "lambda"
)

// Request describes one build run. It is consumed synchronously and
// never retained or mutated by the pipeline.
type Request struct {
	// Entry is the path to the handler source file.
	Entry string

	// Export is the identifier exposed as the handler. It survives
	// bundling and minification unrenamed.
	Export string

	// Minify activates the minifier stage.
	Minify bool

	// SourcemapName, when set together with Minify, requests a source
	// map artifact and labels the original source inside the map.
	SourcemapName string

	// Files are extra file paths included verbatim in the archive,
	// each under its base name, in order.
	Files []string

	// Output, when set, is the filesystem path the archive is written
	// to.
	Output string

	// Deploy, when set, publishes the archive after it is assembled.
	Deploy *DeployOptions
}

// DeployOptions selects the deployment target. Client carries the
// platform connection; see deploy.NewLambdaClient.
type DeployOptions struct {
	Client       deploy.Platform
	FunctionName string
	Role         string
	Overwrite    bool
}

// Result is the output of a successful build.
type Result struct {
	// Archive is the complete zip content.
	Archive []byte

	// Artifacts maps artifact keys to auxiliary outputs. It is always
	// non-nil and empty when no optional producing stage ran.
	Artifacts map[string]any
}

func (r Request) validate() error {
	if r.Entry == "" {
		return fmt.Errorf("entry path is required")
	}
	if r.Export == "" {
		return fmt.Errorf("export name is required")
	}
	if r.Deploy != nil {
		if r.Deploy.Client == nil {
			return fmt.Errorf("deploy: platform client is required")
		}
		if r.Deploy.FunctionName == "" {
			return fmt.Errorf("deploy: function name is required")
		}
	}
	return nil
}
