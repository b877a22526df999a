package capture

import (
	"errors"

	"github.com/asticode/go-astikit"
)

// releaseStages holds what a session acquired, grouped by release stage.
// Stages close in a fixed order; inside a stage, handles close in reverse
// acquisition order. Empty stages close as no-ops, so a session that failed
// half way releases exactly what it got.
type releaseStages struct {
	graphs   *astikit.Closer
	codecs   *astikit.Closer
	input    *astikit.Closer
	outputIO *astikit.Closer
	output   *astikit.Closer
}

func newReleaseStages() *releaseStages {
	return &releaseStages{
		graphs:   astikit.NewCloser(),
		codecs:   astikit.NewCloser(),
		input:    astikit.NewCloser(),
		outputIO: astikit.NewCloser(),
		output:   astikit.NewCloser(),
	}
}

// close releases graphs, then decoders and encoders, then the input, then
// the output file handle and finally the output container
func (r *releaseStages) close() error {
	var errs []error
	for _, c := range []*astikit.Closer{r.graphs, r.codecs, r.input, r.outputIO, r.output} {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
