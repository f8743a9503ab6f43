package chunk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoPath is returned by WriteWorld for an empty destination.
var ErrNoPath = errors.New("chunk: no output path")

// WriteWorld writes header and segments to path. The file is written to a
// temporary sibling, synced and renamed over path, so readers see either the
// old file or the complete new one.
func WriteWorld(path string, tree, world, table, data []byte) (Header, error) {
	if path == "" {
		return Header{}, ErrNoPath
	}
	h := BuildHeader(int64(len(tree)), int64(len(world)), int64(len(table)), int64(len(data)))
	hb, err := h.MarshalBinary()
	if err != nil {
		return Header{}, err
	}

	dir := filepath.Dir(path)
	// 0755/0644 as for any other cache artifact; world files are not secrets.
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Header{}, fmt.Errorf("creating output directory: %w", err)
	}
	out, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return Header{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmp := out.Name()

	success := false
	defer func() {
		if !success {
			out.Close()
			os.Remove(tmp) // best-effort cleanup of partial file
		}
	}()

	for _, seg := range [][]byte{hb, tree, world, table, data} {
		if _, err := out.Write(seg); err != nil {
			return Header{}, fmt.Errorf("writing %s: %w", tmp, err)
		}
	}
	if err := out.Sync(); err != nil {
		return Header{}, fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := out.Chmod(0644); err != nil {
		return Header{}, fmt.Errorf("chmod %s: %w", tmp, err)
	}
	// Explicitly close to catch flush errors (e.g., on NFS)
	if err := out.Close(); err != nil {
		return Header{}, fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Header{}, fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	success = true
	return h, nil
}
