// Package atomicfile publishes file contents all-or-nothing: write to a
// temp file, fsync, rename, fsync the parent directory (spec §4.2). It is
// the only package permitted to write artifact or receipt bytes to disk.
package atomicfile

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/zeebo/blake3"
)

// maxRetries bounds the number of times steps 2-3 (write+fsync, rename)
// are retried on transient errors before falling back to a direct write.
const maxRetries = 3

// Result reports how a Write call actually happened, so callers can
// attach a "rename_retry_count: N" warning to the receipt when a direct
// fallback write was needed.
type Result struct {
	Path         string
	Retries      int
	FallbackUsed bool

	// HashPreWrite is the hex-lowercase BLAKE3 of dest's contents as they
	// stood immediately before this write, or "" if dest did not exist.
	// It lets a receipt record what was overwritten without a separate
	// read-before-write race in the caller.
	HashPreWrite string
}

// Write publishes data to dest atomically. dest's parent directory must
// already exist. On transient errors during the write+fsync+rename
// sequence, the attempt is retried up to maxRetries times; if every retry
// fails, Write falls back to a direct (non-atomic) write and reports
// FallbackUsed so the caller can record the degradation.
func Write(dest string, data []byte, perm os.FileMode) (Result, error) {
	dir := filepath.Dir(dest)
	preHash := hashPreWrite(dest)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			lastErr = nil
		}
		tmp, err := writeTemp(dir, data, perm)
		if err != nil {
			lastErr = err
			if isTransient(err) {
				continue
			}
			return Result{}, fmt.Errorf("atomicfile: staging %q: %w", dest, err)
		}
		if err := os.Rename(tmp, dest); err != nil {
			os.Remove(tmp)
			lastErr = err
			if isTransient(err) {
				continue
			}
			return Result{}, fmt.Errorf("atomicfile: renaming into %q: %w", dest, err)
		}
		syncDir(dir)
		return Result{Path: dest, Retries: attempt, HashPreWrite: preHash}, nil
	}

	// All retries exhausted: fall back to a direct, non-atomic write.
	if err := os.WriteFile(dest, data, perm); err != nil {
		return Result{}, fmt.Errorf("atomicfile: fallback write to %q: %w (after retries: %v)", dest, err, lastErr)
	}
	syncDir(dir)
	return Result{Path: dest, Retries: maxRetries, FallbackUsed: true, HashPreWrite: preHash}, nil
}

// hashPreWrite returns the hex BLAKE3 of dest's current contents, or "" if
// dest does not exist or can't be read.
func hashPreWrite(dest string) string {
	existing, err := os.ReadFile(dest)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(existing)
	return hex.EncodeToString(sum[:])
}

// writeTemp writes data to a new temp file in dir, fsyncs it, and closes
// it. The temp file is the caller's to rename or remove.
func writeTemp(dir string, data []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, ".atomicfile-*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// syncDir fsyncs dir so the rename itself is durable. Not all platforms
// support opening a directory for fsync (notably Windows); failures here
// are best-effort and never fail the write.
func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}

// isTransient reports whether err is one of the retry-eligible errors
// named in §4.2: EINTR, EBUSY, or a Windows rename-replace race.
func isTransient(err error) bool {
	if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EBUSY) {
		return true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		if errors.Is(pathErr.Err, syscall.EINTR) || errors.Is(pathErr.Err, syscall.EBUSY) {
			return true
		}
	}
	if runtime.GOOS == "windows" && errors.Is(err, fs.ErrExist) {
		return true
	}
	return false
}
