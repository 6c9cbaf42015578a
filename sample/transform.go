package sample

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// A Transform is one pipeline stage: it maps a sample record to an updated record. Transforms may
// hold worker-scoped resources that are released by Close.
type Transform interface {
	Apply(ctx context.Context, results *Results) (*Results, error)
	Close(ctx context.Context) error
}

// Compose runs transforms in order.
type Compose []Transform

// Apply feeds results through every transform, stopping at the first error.
func (c Compose) Apply(ctx context.Context, results *Results) (*Results, error) {
	var err error
	for i, tr := range c {
		if results, err = tr.Apply(ctx, results); err != nil {
			return nil, errors.Wrapf(err, "pipeline stage %d (%T)", i, tr)
		}
	}
	return results, nil
}

// Close closes every transform and combines their errors.
func (c Compose) Close(ctx context.Context) error {
	var errs error
	for _, tr := range c {
		errs = multierr.Combine(errs, tr.Close(ctx))
	}
	return errs
}

func (c Compose) String() string {
	names := make([]string, 0, len(c))
	for _, tr := range c {
		if s, ok := tr.(fmt.Stringer); ok {
			names = append(names, s.String())
		} else {
			names = append(names, fmt.Sprintf("%T", tr))
		}
	}
	return "Compose(" + strings.Join(names, ", ") + ")"
}
