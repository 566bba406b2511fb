// Package archive assembles deployable zip archives from in-memory
// members and on-disk files.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// readConcurrency bounds the fan-out when reading additional files.
const readConcurrency = 8

// Member is one named archive entry.
type Member struct {
	Name string
	Data []byte
}

// Error reports a failure while assembling or reading archive members.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archive: %s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Build writes members into a zip archive in the order given. Member
// names must be unique; a duplicate name is rejected rather than
// written twice, since extraction of such an archive silently drops
// bytes.
func Build(members []Member) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if seen[m.Name] {
			return nil, &Error{Name: m.Name, Err: fmt.Errorf("duplicate member name")}
		}
		seen[m.Name] = true

		w, err := zw.Create(m.Name)
		if err != nil {
			return nil, &Error{Name: m.Name, Err: err}
		}
		if _, err := w.Write(m.Data); err != nil {
			return nil, &Error{Name: m.Name, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &Error{Name: "archive", Err: err}
	}

	log.Debug().
		Int("members", len(members)).
		Int("size", buf.Len()).
		Msg("Assembled archive")

	return buf.Bytes(), nil
}

// ReadFiles loads each path into a member named after its base name.
// Files are read with bounded concurrency; the returned order matches
// paths. Any read failure aborts the whole batch.
func ReadFiles(ctx context.Context, paths []string) ([]Member, error) {
	members := make([]Member, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return &Error{Name: path, Err: err}
			}
			members[i] = Member{Name: filepath.Base(path), Data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}

// Extract reads all members back out of archive bytes, in the order
// they were written.
func Extract(data []byte) ([]Member, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &Error{Name: "archive", Err: err}
	}

	members := make([]Member, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, &Error{Name: f.Name, Err: err}
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, &Error{Name: f.Name, Err: err}
		}
		members = append(members, Member{Name: f.Name, Data: content})
	}
	return members, nil
}
