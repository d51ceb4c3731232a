package jsonldb

import (
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// base32Enc uses base32 "Extended Hex" alphabet (0-9A-V) which is ASCII-sorted
// and case-insensitive safe for filesystems.
var base32Enc = base32.HexEncoding.WithPadding(base32.NoPadding)

// ErrTooLarge is returned by Put when the content exceeds the limit.
var ErrTooLarge = errors.New("blob too large")

const (
	tmpDirName = "tmp"

	// emptyBlobRef is the ref for empty content (SHA-256 of nothing with size 0).
	emptyBlobRef = BlobRef("sha256:SEOC8GKOVGE196NRUJ49IRTP4GJQSGF4CIDP6J54IMCHMU2IN1AG-0")
)

// BlobStore manages content-addressed files in a directory.
//
// Files are organized with 256-way fan-out: <dir>/<hash[:2]>/<hash[2:]>.
// Temporary files during write are stored in <dir>/tmp/<random>.tmp.
type BlobStore struct {
	dir string
}

// NewBlobStore opens the store rooted at dir and removes leftover temp files
// from interrupted writes.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, tmpDirName), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	bs := &BlobStore{dir: dir}
	if err := bs.cleanupTmpDir(); err != nil {
		return nil, err
	}
	return bs, nil
}

// BlobWriter streams data to a blob, computing the SHA-256 hash as data is written.
//
// Write data using [BlobWriter.Write], then call [BlobWriter.Close] to
// finalize and get the [BlobRef]. If an error occurs during writing, call
// [BlobWriter.Abort] to clean up the temporary file.
type BlobWriter struct {
	store   *BlobStore
	tmpPath string
	file    io.WriteCloser // nil after Close or Abort
	hasher  hash.Hash
	size    int64
}

// Write implements io.Writer, writing to temp file and updating the hash.
func (w *BlobWriter) Write(p []byte) (n int, err error) {
	if w.file == nil {
		return 0, fs.ErrClosed
	}
	n, err = w.file.Write(p)
	if n > 0 {
		w.size += int64(n)
		w.hasher.Write(p[:n])
	}
	return n, err
}

// Close finalizes the blob: closes the temp file, computes the final ref,
// and renames to the content-addressed location.
//
// If no data was written, returns the empty content ref and creates no file.
func (w *BlobWriter) Close() (BlobRef, error) {
	if w.file == nil {
		return "", fs.ErrClosed
	}
	if err := w.file.Close(); err != nil {
		w.file = nil
		return "", errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(w.tmpPath))
	}
	w.file = nil

	if w.size == 0 {
		if err := os.Remove(w.tmpPath); err != nil {
			return "", fmt.Errorf("failed to remove temp file: %w", err)
		}
		return emptyBlobRef, nil
	}

	ref := BlobRef(fmt.Sprintf("%s%s-%d", blobRefPrefix, base32Enc.EncodeToString(w.hasher.Sum(nil)), w.size))
	if err := os.MkdirAll(filepath.Join(w.store.dir, string(ref)[7:9]), 0o750); err != nil {
		return "", errors.Join(fmt.Errorf("failed to create blob subdirectory: %w", err), os.Remove(w.tmpPath))
	}

	// Same content already stored.
	targetPath := w.store.pathForRef(ref)
	if _, err := os.Stat(targetPath); err == nil {
		if err := os.Remove(w.tmpPath); err != nil {
			return "", fmt.Errorf("failed to remove temp file: %w", err)
		}
		return ref, nil
	}
	if err := os.Rename(w.tmpPath, targetPath); err != nil {
		return "", errors.Join(fmt.Errorf("failed to rename blob to final location: %w", err), os.Remove(w.tmpPath))
	}
	return ref, nil
}

// Abort cancels the write and cleans up the temp file.
func (w *BlobWriter) Abort() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return errors.Join(err, os.Remove(w.tmpPath))
}

// Create returns a BlobWriter for streaming blob creation.
func (bs *BlobStore) Create() (*BlobWriter, error) {
	f, err := os.CreateTemp(filepath.Join(bs.dir, tmpDirName), "*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &BlobWriter{
		store:   bs,
		file:    f,
		tmpPath: f.Name(),
		hasher:  sha256.New(),
	}, nil
}

// Put stores everything read from r, up to limit bytes when limit > 0.
func (bs *BlobStore) Put(r io.Reader, limit int64) (BlobRef, error) {
	w, err := bs.Create()
	if err != nil {
		return "", err
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(w, src)
	if err == nil && limit > 0 && n > limit {
		err = fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, limit)
	}
	if err != nil {
		return "", errors.Join(err, w.Abort())
	}
	return w.Close()
}

// Open returns a ReadCloser for the blob with the given ref.
func (bs *BlobStore) Open(ref BlobRef) (io.ReadCloser, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if ref.IsZero() {
		return nil, errInvalidBlobRef
	}
	if ref == emptyBlobRef {
		return io.NopCloser(strings.NewReader("")), nil
	}
	f, err := os.Open(bs.pathForRef(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: blob %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Remove removes a blob by ref. Returns nil if the blob doesn't exist.
func (bs *BlobStore) Remove(ref BlobRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if ref.IsZero() || ref == emptyBlobRef {
		return nil
	}
	if err := os.Remove(bs.pathForRef(ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// GC removes every stored blob not in used.
//
// This is a stop-the-world GC: caller should ensure no writes are in progress.
func (bs *BlobStore) GC(used map[BlobRef]struct{}) error {
	entries, err := os.ReadDir(bs.dir)
	if err != nil {
		return fmt.Errorf("failed to read blob directory: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if name == tmpDirName || !entry.IsDir() || len(name) != 2 || !isBase32HexChar(name[0]) || !isBase32HexChar(name[1]) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(bs.dir, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read subdir %s: %w", name, err))
			continue
		}
		for _, file := range files {
			ref := BlobRef(blobRefPrefix + name + file.Name())
			if file.IsDir() || ref.Validate() != nil {
				continue
			}
			if _, ok := used[ref]; !ok {
				if err := os.Remove(filepath.Join(bs.dir, name, file.Name())); err != nil {
					errs = append(errs, fmt.Errorf("failed to remove orphan blob %s: %w", ref, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// cleanupTmpDir removes all .tmp files from the temp directory.
func (bs *BlobStore) cleanupTmpDir() error {
	dir := filepath.Join(bs.dir, tmpDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read tmp directory: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".tmp") {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				errs = append(errs, fmt.Errorf("failed to remove temp file %s: %w", entry.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// pathForRef returns the file path for a blob ref.
func (bs *BlobStore) pathForRef(ref BlobRef) string {
	hashPart := string(ref)[7:] // Skip "sha256:" prefix
	return filepath.Join(bs.dir, hashPart[:2], hashPart[2:])
}
