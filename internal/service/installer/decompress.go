package installer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/oshokin/ollama-updater/internal/service/common"
)

// Decompressor turns a compressed stream into a plain one.
type Decompressor interface {
	// CheckRequirements fails when the decompressor cannot run on this host.
	CheckRequirements() error
	// Decompress starts decoding r. Closing the result releases resources and
	// reports decoder failures that surfaced after the last read.
	Decompress(ctx context.Context, r io.Reader) (io.ReadCloser, error)
}

// BuiltinZstd decodes zstd in-process.
type BuiltinZstd struct{}

// CheckRequirements implements Decompressor.
func (BuiltinZstd) CheckRequirements() error {
	return nil
}

// Decompress implements Decompressor.
func (BuiltinZstd) Decompress(_ context.Context, r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return decoder.IOReadCloser(), nil
}

// ExternalZstd pipes the stream through the zstd command line tool.
type ExternalZstd struct {
	runner common.Runner
	path   string
}

// NewExternalZstd creates a decompressor running the zstd tool at path.
func NewExternalZstd(runner common.Runner, path string) *ExternalZstd {
	return &ExternalZstd{
		runner: runner,
		path:   path,
	}
}

// CheckRequirements implements Decompressor.
func (z *ExternalZstd) CheckRequirements() error {
	if _, err := z.runner.LookPath(z.path); err != nil {
		return fmt.Errorf(
			"%s is needed to extract the release archive; install it (apt install zstd, dnf install zstd) "+
				"or set decompressor: builtin in the settings: %w", z.path, ErrToolMissing)
	}

	return nil
}

// Decompress implements Decompressor.
func (z *ExternalZstd) Decompress(ctx context.Context, r io.Reader) (io.ReadCloser, error) {
	reader, writer := io.Pipe()
	done := make(chan error, 1)

	go func() {
		var stderr bytes.Buffer

		err := z.runner.Run(ctx, common.Command{
			Name:   z.path,
			Args:   []string{"-d", "-c", "-q"},
			Stdin:  r,
			Stdout: writer,
			Stderr: &stderr,
		})
		if err != nil && stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}

		_ = writer.CloseWithError(err)
		done <- err
	}()

	return &processReader{PipeReader: reader, done: done}, nil
}

// processReader waits for the decompressing process on Close.
type processReader struct {
	*io.PipeReader

	done chan error
}

// Close drains what the consumer left unread (tar stops at its end marker,
// zstd may still be writing padding) and returns the process result.
func (p *processReader) Close() error {
	_, _ = io.Copy(io.Discard, p.PipeReader)
	_ = p.PipeReader.Close()

	return <-p.done
}
