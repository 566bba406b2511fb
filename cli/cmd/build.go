package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aztecrex/lambundaler"
	"github.com/aztecrex/lambundaler/cli/output"
	"github.com/aztecrex/lambundaler/deploy"
)

var (
	buildEntry      string
	buildExport     string
	buildMinify     bool
	buildSourcemap  string
	buildFiles      []string
	buildOut        string
	buildDeployName string
	buildRole       string
	buildOverwrite  bool
	buildRuntime    string
	buildRegion     string
	buildAWSProfile string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Bundle a handler into a deployable archive",
	Long: `Bundle a handler and its dependencies into a zip archive,
optionally minify it, write it to disk, and deploy it to AWS Lambda.

Examples:
  lambundaler build --entry index.js --export handler --out function.zip
  lambundaler build --entry index.js --export handler --minify --sourcemap index.js.map
  lambundaler build --entry index.js --export handler --files config.json \
      --deploy-name my-function --role arn:aws:iam::123456789012:role/lambda --overwrite`,
	PreRunE: initFormatter,
	RunE:    runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildEntry, "entry", "", "Path to handler source file (required)")
	buildCmd.Flags().StringVar(&buildExport, "export", "handler", "Exported handler identifier")
	buildCmd.Flags().BoolVar(&buildMinify, "minify", false, "Minify the bundle")
	buildCmd.Flags().StringVar(&buildSourcemap, "sourcemap", "", "Emit a source map artifact under this name (implies --minify)")
	buildCmd.Flags().StringSliceVar(&buildFiles, "files", nil, "Extra files to include in the archive")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "Write the archive to this path")
	buildCmd.Flags().StringVar(&buildDeployName, "deploy-name", "", "Deploy the archive as this Lambda function")
	buildCmd.Flags().StringVar(&buildRole, "role", "", "Execution role ARN for the deployed function")
	buildCmd.Flags().BoolVar(&buildOverwrite, "overwrite", false, "Delete an existing function before creating")
	buildCmd.Flags().StringVar(&buildRuntime, "runtime", string(deploy.DefaultRuntime), "Lambda runtime for the deployed function")
	buildCmd.Flags().StringVar(&buildRegion, "region", "", "AWS region")
	buildCmd.Flags().StringVar(&buildAWSProfile, "aws-profile", "", "AWS shared config profile")
	_ = buildCmd.MarkFlagRequired("entry")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	req := lambundaler.Request{
		Entry:         buildEntry,
		Export:        buildExport,
		Minify:        buildMinify || buildSourcemap != "",
		SourcemapName: buildSourcemap,
		Files:         buildFiles,
		Output:        buildOut,
	}

	if buildDeployName != "" {
		role := buildRole
		if role == "" {
			role = viper.GetString("role")
		}
		if role == "" {
			return fmt.Errorf("--role is required when deploying")
		}

		region := buildRegion
		if region == "" {
			region = viper.GetString("region")
		}
		profile := buildAWSProfile
		if profile == "" {
			profile = viper.GetString("profile")
		}

		cfg, err := deploy.LoadConfig(ctx, deploy.Credentials{
			Region:  region,
			Profile: profile,
		})
		if err != nil {
			return err
		}

		req.Deploy = &lambundaler.DeployOptions{
			Client: deploy.NewLambdaClient(cfg,
				deploy.WithRuntime(lambdatypes.Runtime(buildRuntime)),
				deploy.WithHandler(handlerString(buildEntry, buildExport)),
			),
			FunctionName: buildDeployName,
			Role:         role,
			Overwrite:    buildOverwrite,
		}
	}

	result, err := lambundaler.Build(ctx, req)
	if err != nil {
		return err
	}

	summary := output.KeyValues{}
	summary.Add("ARCHIVE", fmt.Sprintf("%d bytes", len(result.Archive)))
	summary.Add("MEMBERS", fmt.Sprintf("%d", 1+len(buildFiles)))
	if buildOut != "" {
		summary.Add("WRITTEN", buildOut)
	}
	if buildSourcemap != "" {
		summary.Add("SOURCEMAP", buildSourcemap)
	}
	if fn, ok := result.Artifacts[lambundaler.ArtifactLambda].(*deploy.Function); ok {
		summary.Add("FUNCTION", fn.Name)
		summary.Add("ARN", fn.ARN)
		summary.Add("VERSION", fn.Version)
	}
	return formatter.PrintSummary(summary)
}

// handlerString derives the "module.export" handler the Lambda runtime
// invokes, e.g. index.handler for entry index.js.
func handlerString(entry, export string) string {
	base := filepath.Base(entry)
	module := strings.TrimSuffix(base, filepath.Ext(base))
	return module + "." + export
}
