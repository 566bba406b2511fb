// Package bundler resolves a handler entry point and its dependency
// closure into a single self-contained source blob, and optionally
// minifies it.
package bundler

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// maxBundleSize caps the bundled output at 50MB.
const maxBundleSize = 50 * 1024 * 1024

// Bundler produces self-contained handler bundles via esbuild.
type Bundler struct {
	platform api.Platform
	format   api.Format
	target   api.Target
}

// Option configures a Bundler.
type Option func(*Bundler)

// New creates a bundler targeting CommonJS output for a Node-style
// function runtime.
func New(opts ...Option) *Bundler {
	b := &Bundler{
		platform: api.PlatformNode,
		format:   api.FormatCommonJS,
		target:   api.ES2020,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithFormat overrides the output module format.
func WithFormat(format api.Format) Option {
	return func(b *Bundler) {
		b.format = format
	}
}

// needsBundleRegex matches code that pulls in other modules:
// - import { foo } from "package"
// - import foo from "package"
// - import * as foo from "package"
// - import "package"
// - import type { foo } from "package" (TypeScript)
// - const foo = require("package")
var needsBundleRegex = regexp.MustCompile(`(?m)^\s*import\s+(?:type\s+)?(?:[\w\s{},*]+\s+from\s+)?['"]|\brequire\s*\(\s*['"]`)

// NeedsBundle reports whether code references other modules and
// therefore requires dependency resolution.
func (b *Bundler) NeedsBundle(code string) bool {
	return needsBundleRegex.MatchString(code)
}

// Bundle resolves entry and its transitive local dependencies into one
// loadable source text exposing export.
//
// An entry with no import or require statements is already its own
// closure and is returned byte-for-byte, so single-file handlers keep
// their comments and formatting.
func (b *Bundler) Bundle(ctx context.Context, entry, export string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	source, err := os.ReadFile(entry)
	if err != nil {
		return "", &ResolutionError{Path: entry, Detail: "entry file cannot be read", Err: err}
	}

	code := string(source)

	if !b.NeedsBundle(code) {
		log.Debug().Str("entry", entry).Msg("Entry has no imports, skipping dependency resolution")
		if !containsIdentifier(code, export) {
			return "", &ResolutionError{Path: entry, Detail: fmt.Sprintf("export %q not found in entry", export)}
		}
		return code, nil
	}

	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entry},
		Bundle:      true,
		Write:       false,
		Platform:    b.platform,
		Format:      b.format,
		Target:      b.target,
		LogLevel:    api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return "", classifyBuildErrors(entry, result.Errors)
	}

	if len(result.OutputFiles) == 0 {
		return "", &ResolutionError{Path: entry, Detail: "bundler produced no output"}
	}

	bundled := string(result.OutputFiles[0].Contents)

	if len(bundled) > maxBundleSize {
		return "", &ResolutionError{Path: entry, Detail: fmt.Sprintf("bundled code exceeds 50MB limit (got %d bytes)", len(bundled))}
	}

	if !containsIdentifier(bundled, export) {
		return "", &ResolutionError{Path: entry, Detail: fmt.Sprintf("export %q not found in bundle", export)}
	}

	log.Debug().
		Str("entry", entry).
		Int("size", len(bundled)).
		Msg("Bundled entry with dependencies")

	return bundled, nil
}

// containsIdentifier reports whether code mentions name as a whole
// identifier (not as a substring of a longer one).
func containsIdentifier(code, name string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(code)
}

// classifyBuildErrors converts esbuild messages into the bundler error
// taxonomy: unresolvable modules become ResolutionError, everything
// else is a parse failure.
func classifyBuildErrors(entry string, messages []api.Message) error {
	for _, msg := range messages {
		if strings.Contains(msg.Text, "Could not resolve") {
			return &ResolutionError{Path: entry, Detail: formatMessage(msg)}
		}
	}
	return &SyntaxError{Path: entry, Detail: formatMessages(messages)}
}

// formatMessage renders one esbuild message as file:line: text.
func formatMessage(msg api.Message) string {
	if msg.Location != nil {
		return fmt.Sprintf("%s:%d: %s", msg.Location.File, msg.Location.Line, msg.Text)
	}
	return msg.Text
}

// formatMessages joins messages, skipping noise the way bundler output
// is normally cleaned for users.
func formatMessages(messages []api.Message) string {
	var lines []string
	for _, msg := range messages {
		lines = append(lines, formatMessage(msg))
	}
	return strings.Join(lines, "\n")
}
