package handlers

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/internal/telemetry"
	"github.com/marmos91/p2pci/pkg/bufpool"
)

// FileStager resolves document files under a root directory and copies them
// between peer directories.
//
// A document with path hint H and number N lives at <Root>/H/rfcN.txt.
// Hints are validated at registration, so they never escape Root.
type FileStager struct {
	Root string
}

// NewFileStager creates a stager rooted at root. An empty root means the
// working directory.
func NewFileStager(root string) *FileStager {
	if root == "" {
		root = "."
	}
	return &FileStager{Root: root}
}

// Path returns the on-disk path of RFC n under hint.
func (f *FileStager) Path(hint string, n int) string {
	return filepath.Join(f.Root, filepath.FromSlash(hint), p2pci.DocumentFileName(n))
}

// Stat returns the file info of RFC n under hint. Directories are rejected.
func (f *FileStager) Stat(hint string, n int) (fs.FileInfo, error) {
	info, err := os.Stat(f.Path(hint, n))
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", f.Path(hint, n))
	}
	return info, nil
}

// Stage copies RFC n from srcHint to dstHint unless both resolve to the same
// path. The copy is written to a temporary file and renamed into place, so
// concurrent readers never see a partial document.
func (f *FileStager) Stage(ctx context.Context, srcHint, dstHint string, n int) (copied bool, err error) {
	src, dst := f.Path(srcHint, n), f.Path(dstHint, n)
	if filepath.Clean(src) == filepath.Clean(dst) {
		return false, nil
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFileStage)
	defer span.End()
	defer func() { telemetry.RecordError(ctx, err) }()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer func() { _ = in.Close() }()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(dir, ".rfc-*.tmp")
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	buf := bufpool.GetCopyBuffer()
	// Hide ReadFrom so the copy goes through buf.
	_, err = io.CopyBuffer(struct{ io.Writer }{tmp}, in, buf)
	bufpool.Put(buf)
	if err != nil {
		return false, err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return false, err
	}
	if err = tmp.Close(); err != nil {
		return false, err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return false, err
	}
	return true, nil
}
