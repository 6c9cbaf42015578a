package sample

import "context"

// Color is an RGB triple of a palette entry.
type Color [3]uint8

// A Dataset exposes indexed samples to a host training loop.
type Dataset interface {
	// Len returns the number of indexable samples.
	Len() int
	// Sample builds a fresh record for idx and runs it through the dataset's pipeline.
	Sample(ctx context.Context, idx int) (*Results, error)
	// Classes returns the semantic label names, indexed by label value.
	Classes() []string
	// Palette returns the display color of every class.
	Palette() []Color
	Close(ctx context.Context) error
}
