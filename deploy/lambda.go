package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

// DefaultRuntime is the Lambda runtime used when none is configured.
const DefaultRuntime = lambdatypes.RuntimeNodejs20x

// Credentials is the connection configuration for the Lambda client.
// Zero-value fields fall back to the standard AWS resolution chain
// (environment, shared config, instance metadata).
type Credentials struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// LoadConfig resolves an aws.Config from creds. SDK-level retries are
// disabled: the pipeline issues each remote call exactly once.
func LoadConfig(ctx context.Context, creds Credentials) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if creds.Region != "" {
		opts = append(opts, awsconfig.WithRegion(creds.Region))
	}
	if creds.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(creds.Profile))
	}
	if creds.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// lambdaAPI is the subset of the Lambda SDK client the deployer uses.
type lambdaAPI interface {
	DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)
	CreateFunction(ctx context.Context, params *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
}

// LambdaClient implements Platform against AWS Lambda.
type LambdaClient struct {
	api     lambdaAPI
	runtime lambdatypes.Runtime
	handler string
}

// LambdaOption configures the Lambda client.
type LambdaOption func(*LambdaClient)

// WithRuntime overrides the function runtime.
func WithRuntime(runtime lambdatypes.Runtime) LambdaOption {
	return func(c *LambdaClient) {
		c.runtime = runtime
	}
}

// WithHandler sets the "module.export" handler string the runtime
// invokes, e.g. "index.handler".
func WithHandler(handler string) LambdaOption {
	return func(c *LambdaClient) {
		c.handler = handler
	}
}

// NewLambdaClient creates a Platform backed by AWS Lambda.
func NewLambdaClient(cfg aws.Config, opts ...LambdaOption) *LambdaClient {
	c := &LambdaClient{
		api:     lambda.NewFromConfig(cfg),
		runtime: DefaultRuntime,
		handler: "index.handler",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeleteFunction removes a function, mapping the service's not-found
// failure to ErrFunctionNotFound.
func (c *LambdaClient) DeleteFunction(ctx context.Context, name string) error {
	_, err := c.api.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		var notFound *lambdatypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("%s: %w", name, ErrFunctionNotFound)
		}
		return err
	}
	return nil
}

// CreateFunction uploads archive as a new function and returns its
// descriptor. Failures, including "already exists", surface unchanged.
func (c *LambdaClient) CreateFunction(ctx context.Context, archive []byte, name, role string) (*Function, error) {
	out, err := c.api.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName: aws.String(name),
		Role:         aws.String(role),
		Runtime:      c.runtime,
		Handler:      aws.String(c.handler),
		Code: &lambdatypes.FunctionCode{
			ZipFile: archive,
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			log.Debug().
				Str("function", name).
				Str("code", apiErr.ErrorCode()).
				Msg("Lambda create failed")
		}
		return nil, err
	}

	return &Function{
		Name:     aws.ToString(out.FunctionName),
		ARN:      aws.ToString(out.FunctionArn),
		Version:  aws.ToString(out.Version),
		Runtime:  string(out.Runtime),
		Handler:  aws.ToString(out.Handler),
		Role:     aws.ToString(out.Role),
		CodeSize: out.CodeSize,
	}, nil
}
