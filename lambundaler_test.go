package lambundaler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aztecrex/lambundaler/archive"
	"github.com/aztecrex/lambundaler/deploy"
)

const handlerSource = "// Single file handler\nexports.handler = async (event) => {\n  return { statusCode: 200 };\n};\n"

func writeEntry(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.js")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

// fakePlatform implements deploy.Platform for pipeline tests.
type fakePlatform struct {
	calls     []string
	deleteErr error
	createErr error
	archive   []byte
}

func (f *fakePlatform) DeleteFunction(ctx context.Context, name string) error {
	f.calls = append(f.calls, "delete")
	return f.deleteErr
}

func (f *fakePlatform) CreateFunction(ctx context.Context, archiveBytes []byte, name, role string) (*deploy.Function, error) {
	f.calls = append(f.calls, "create")
	f.archive = archiveBytes
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &deploy.Function{Name: name, Role: role, ARN: "arn:aws:lambda:::function:" + name}, nil
}

func TestBuildSingleFileHandler(t *testing.T) {
	entry := writeEntry(t, handlerSource)

	result, err := Build(context.Background(), Request{Entry: entry, Export: "handler"})
	require.NoError(t, err)

	members, err := archive.Extract(result.Archive)
	require.NoError(t, err)
	require.Len(t, members, 1)

	assert.Equal(t, "index.js", members[0].Name)
	assert.Contains(t, string(members[0].Data), "// Single file handler")
	assert.Empty(t, result.Artifacts)
}

func TestBuildMinifyRemovesComments(t *testing.T) {
	entry := writeEntry(t, handlerSource)

	result, err := Build(context.Background(), Request{Entry: entry, Export: "handler", Minify: true})
	require.NoError(t, err)

	members, err := archive.Extract(result.Archive)
	require.NoError(t, err)
	require.Len(t, members, 1)

	code := string(members[0].Data)
	assert.NotContains(t, code, "// Single file handler")
	assert.Contains(t, code, "handler")
	assert.LessOrEqual(t, len(code), len(handlerSource))
	assert.Empty(t, result.Artifacts, "minify alone produces no artifact")
}

func TestBuildSourcemapArtifact(t *testing.T) {
	entry := writeEntry(t, handlerSource)

	result, err := Build(context.Background(), Request{
		Entry:         entry,
		Export:        "handler",
		Minify:        true,
		SourcemapName: "index.js.map",
	})
	require.NoError(t, err)

	sourcemap, ok := result.Artifacts[ArtifactSourcemap].(string)
	require.True(t, ok, "sourcemap artifact missing")
	assert.NotEmpty(t, sourcemap)
	assert.Contains(t, sourcemap, "Single file handler", "map must reference original source content")

	members, err := archive.Extract(result.Archive)
	require.NoError(t, err)
	assert.NotContains(t, string(members[0].Data), "sourceMappingURL",
		"archived code must not reference the map")
}

func TestBuildAdditionalFiles(t *testing.T) {
	entry := writeEntry(t, handlerSource)
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"region":"us-east-1"}`), 0o644))
	binPath := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0xff, 0x7f}, 0o644))

	result, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Files:  []string{configPath, binPath},
	})
	require.NoError(t, err)

	members, err := archive.Extract(result.Archive)
	require.NoError(t, err)
	require.Len(t, members, 3, "archive holds entry plus each additional file")

	assert.Equal(t, "index.js", members[0].Name)
	assert.Equal(t, "config.json", members[1].Name)
	assert.Equal(t, []byte(`{"region":"us-east-1"}`), members[1].Data)
	assert.Equal(t, "data.bin", members[2].Name)
	assert.Equal(t, []byte{0x00, 0xff, 0x7f}, members[2].Data)
}

func TestBuildAdditionalFileCollidesWithEntry(t *testing.T) {
	entry := writeEntry(t, handlerSource)
	other := filepath.Join(t.TempDir(), "index.js")
	require.NoError(t, os.WriteFile(other, []byte("clone"), 0o644))

	_, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Files:  []string{other},
	})

	var archiveErr *archive.Error
	require.ErrorAs(t, err, &archiveErr, "colliding base names must not silently corrupt the archive")
}

func TestBuildMissingAdditionalFile(t *testing.T) {
	entry := writeEntry(t, handlerSource)

	_, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Files:  []string{filepath.Join(t.TempDir(), "missing.txt")},
	})

	var archiveErr *archive.Error
	require.ErrorAs(t, err, &archiveErr)
}

func TestBuildWritesOutput(t *testing.T) {
	entry := writeEntry(t, handlerSource)
	outPath := filepath.Join(t.TempDir(), "dist", "nested", "function.zip")

	result, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Output: outPath,
	})
	require.NoError(t, err)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, result.Archive, written, "bytes on disk must equal the archive exactly")
}

func TestBuildOutputWriteFailure(t *testing.T) {
	entry := writeEntry(t, handlerSource)

	// A path under an existing file cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Output: filepath.Join(blocker, "function.zip"),
	})

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
}

func TestBuildDeploy(t *testing.T) {
	entry := writeEntry(t, handlerSource)
	platform := &fakePlatform{}

	result, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Deploy: &DeployOptions{
			Client:       platform,
			FunctionName: "my-fn",
			Role:         "role-arn",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"create"}, platform.calls)
	assert.Equal(t, result.Archive, platform.archive, "platform receives the archive bytes")

	fn, ok := result.Artifacts[ArtifactLambda].(*deploy.Function)
	require.True(t, ok, "lambda artifact missing")
	assert.Equal(t, "my-fn", fn.Name)
}

func TestBuildDeployOverwrite(t *testing.T) {
	entry := writeEntry(t, handlerSource)
	platform := &fakePlatform{}

	result, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Deploy: &DeployOptions{
			Client:       platform,
			FunctionName: "my-fn",
			Role:         "role-arn",
			Overwrite:    true,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"delete", "create"}, platform.calls, "delete must run before create")
	assert.Contains(t, result.Artifacts, ArtifactLambda)
}

func TestBuildDeployNotFoundDeleteInvisible(t *testing.T) {
	entry := writeEntry(t, handlerSource)
	platform := &fakePlatform{deleteErr: deploy.ErrFunctionNotFound}

	result, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Deploy: &DeployOptions{
			Client:       platform,
			FunctionName: "my-fn",
			Role:         "role-arn",
			Overwrite:    true,
		},
	})

	require.NoError(t, err, "a not-found delete must not surface")
	assert.Equal(t, []string{"delete", "create"}, platform.calls)
	assert.Contains(t, result.Artifacts, ArtifactLambda)
}

func TestBuildDeployFailureAfterOutputWritten(t *testing.T) {
	entry := writeEntry(t, handlerSource)
	outPath := filepath.Join(t.TempDir(), "function.zip")
	platform := &fakePlatform{createErr: errors.New("quota exceeded")}

	_, err := Build(context.Background(), Request{
		Entry:  entry,
		Export: "handler",
		Output: outPath,
		Deploy: &DeployOptions{
			Client:       platform,
			FunctionName: "my-fn",
			Role:         "role-arn",
		},
	})

	var createErr *deploy.CreateError
	require.ErrorAs(t, err, &createErr)

	// The archive written before the deploy failure stays on disk.
	_, statErr := os.Stat(outPath)
	assert.NoError(t, statErr)
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"missing entry", Request{Export: "handler"}, "entry"},
		{"missing export", Request{Entry: "index.js"}, "export"},
		{"deploy without client", Request{Entry: "index.js", Export: "handler",
			Deploy: &DeployOptions{FunctionName: "fn"}}, "client"},
		{"deploy without name", Request{Entry: "index.js", Export: "handler",
			Deploy: &DeployOptions{Client: &fakePlatform{}}}, "function name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want),
				"error %q should mention %q", err.Error(), tt.want)
		})
	}
}

func TestBuildRequestsAreIndependent(t *testing.T) {
	entry := writeEntry(t, handlerSource)

	first, err := Build(context.Background(), Request{Entry: entry, Export: "handler"})
	require.NoError(t, err)
	second, err := Build(context.Background(), Request{Entry: entry, Export: "handler"})
	require.NoError(t, err)

	first.Artifacts["scratch"] = "x"
	assert.Empty(t, second.Artifacts, "runs must not share artifact state")
}
