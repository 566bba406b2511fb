package bundler

import (
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// Minify compresses code into a semantically equivalent, smaller
// source text with comments removed. sourceName labels the original
// source inside the map. When withMap is true the external source map
// content is returned alongside the code; requesting a map does not
// change the minified output itself (the map stays external, no
// sourceMappingURL comment is appended).
func (b *Bundler) Minify(code, sourceName string, withMap bool) (string, string, error) {
	opts := api.TransformOptions{
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Format:            b.format,
		Target:            b.target,
		Loader:            api.LoaderJS,
		Sourcefile:        sourceName,
		LogLevel:          api.LogLevelSilent,
	}
	if withMap {
		opts.Sourcemap = api.SourceMapExternal
		opts.SourcesContent = api.SourcesContentInclude
	}

	result := api.Transform(code, opts)

	if len(result.Errors) > 0 {
		return "", "", &MinifyError{Detail: formatMessages(result.Errors)}
	}

	log.Debug().
		Int("original_size", len(code)).
		Int("minified_size", len(result.Code)).
		Bool("sourcemap", withMap).
		Msg("Minified bundle")

	return string(result.Code), string(result.Map), nil
}
