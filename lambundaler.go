// Package lambundaler packages a single-entry-point function handler
// into a deployable zip archive and optionally publishes it to AWS
// Lambda.
//
// The pipeline runs bundling, optional minification, archive assembly,
// optional persistence, and optional deployment in that order, and
// stops at the first failing stage. Side effects that completed before
// a later stage failed (an archive already written to disk before a
// deploy error, for example) are not rolled back.
package lambundaler

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/aztecrex/lambundaler/archive"
	"github.com/aztecrex/lambundaler/bundler"
	"github.com/aztecrex/lambundaler/deploy"
)

// Build runs the whole pipeline for one request and returns either a
// result or the first stage error. Concurrent calls share no state.
func Build(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	b := bundler.New()

	// Additional files have no data dependency on the bundle until
	// archive assembly, so they are read while the bundler runs.
	var code string
	var extras []archive.Member

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bundled, err := b.Bundle(gctx, req.Entry, req.Export)
		if err != nil {
			return err
		}
		code = bundled
		return nil
	})
	g.Go(func() error {
		members, err := archive.ReadFiles(gctx, req.Files)
		if err != nil {
			return err
		}
		extras = members
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	artifacts := make(map[string]any)
	entryName := filepath.Base(req.Entry)

	if req.Minify {
		minified, sourcemap, err := b.Minify(code, entryName, req.SourcemapName != "")
		if err != nil {
			return nil, err
		}
		code = minified
		if req.SourcemapName != "" {
			artifacts[ArtifactSourcemap] = sourcemap
		}
	}

	members := make([]archive.Member, 0, 1+len(extras))
	members = append(members, archive.Member{Name: entryName, Data: []byte(code)})
	members = append(members, extras...)

	archiveBytes, err := archive.Build(members)
	if err != nil {
		return nil, err
	}

	if req.Output != "" {
		if err := writeArchive(req.Output, archiveBytes); err != nil {
			return nil, err
		}
		log.Debug().Str("path", req.Output).Int("size", len(archiveBytes)).Msg("Wrote archive")
	}

	if req.Deploy != nil {
		fn, err := deploy.NewDeployer(req.Deploy.Client).Deploy(ctx, archiveBytes, deploy.Options{
			FunctionName: req.Deploy.FunctionName,
			Role:         req.Deploy.Role,
			Overwrite:    req.Deploy.Overwrite,
		})
		if err != nil {
			return nil, err
		}
		artifacts[ArtifactLambda] = fn
	}

	return &Result{Archive: archiveBytes, Artifacts: artifacts}, nil
}
