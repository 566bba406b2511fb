// Package deploy publishes built archives to a remote
// function-execution platform.
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrFunctionNotFound is reported by Platform implementations when a
// delete targets a function that does not exist.
var ErrFunctionNotFound = errors.New("function not found")

// Function is the descriptor the platform returns for a created
// function.
type Function struct {
	Name     string
	ARN      string
	Version  string
	Runtime  string
	Handler  string
	Role     string
	CodeSize int64
}

// Platform is the remote platform port: the two calls the pipeline
// issues. Implementations map their own "no such function" failure to
// ErrFunctionNotFound.
type Platform interface {
	DeleteFunction(ctx context.Context, name string) error
	CreateFunction(ctx context.Context, archive []byte, name, role string) (*Function, error)
}

// Options selects the target function and the overwrite behavior.
type Options struct {
	FunctionName string
	Role         string
	Overwrite    bool
}

// DeleteError reports a failed delete of an existing function. A
// not-found outcome under overwrite never surfaces as a DeleteError.
type DeleteError struct {
	Name string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("deploy: delete %s: %v", e.Name, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// CreateError reports a failed function creation, including "already
// exists" when overwrite was not requested.
type CreateError struct {
	Name string
	Err  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("deploy: create %s: %v", e.Name, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// Deployer drives the delete-then-create sequence against a Platform.
type Deployer struct {
	client Platform
}

// NewDeployer creates a Deployer over the given platform client.
func NewDeployer(client Platform) *Deployer {
	return &Deployer{client: client}
}

// Deploy publishes archive as opts.FunctionName. With Overwrite set,
// any existing function is deleted first; a missing function is
// treated as already deleted. At most two remote calls are made and
// nothing is retried.
func (d *Deployer) Deploy(ctx context.Context, archive []byte, opts Options) (*Function, error) {
	if opts.Overwrite {
		err := d.client.DeleteFunction(ctx, opts.FunctionName)
		switch {
		case err == nil:
			log.Debug().Str("function", opts.FunctionName).Msg("Deleted existing function")
		case errors.Is(err, ErrFunctionNotFound):
			log.Debug().Str("function", opts.FunctionName).Msg("No existing function to delete")
		default:
			return nil, &DeleteError{Name: opts.FunctionName, Err: err}
		}
	}

	fn, err := d.client.CreateFunction(ctx, archive, opts.FunctionName, opts.Role)
	if err != nil {
		return nil, &CreateError{Name: opts.FunctionName, Err: err}
	}

	log.Info().
		Str("function", fn.Name).
		Str("arn", fn.ARN).
		Int("size", len(archive)).
		Msg("Deployed function")

	return fn, nil
}
