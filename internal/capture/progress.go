package capture

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ProgressWriter returns f when it is a terminal, nil otherwise. Sessions
// print one dot per captured second to it.
func ProgressWriter(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return f
	}
	return nil
}
