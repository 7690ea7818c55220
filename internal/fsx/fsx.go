// Package fsx provides the filesystem helpers the build engine uses to
// stage artifacts between the source, cache, and target trees: recursive
// copy/remove (optionally filtered by extension) and recursive mtime
// comparison for staleness checks.
package fsx

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SplitFileName splits a file name into stem and extension (without the
// dot). A name with no dot, or one that begins with a dot and has no other
// dot, has an empty extension.
func SplitFileName(name string) (stem, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// CopyDirAll recursively copies every file and subdirectory of src into dst,
// creating dst if necessary.
func CopyDirAll(src, dst string) error {
	return CopyDirAllFilterExt(src, dst, nil)
}

// CopyDirAllFilterExt recursively copies src into dst. If keep is non-nil,
// only files whose extension satisfies keep are copied; directories are
// always traversed and created regardless of the filter.
func CopyDirAllFilterExt(src, dst string, keep func(ext string) bool) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyDirAllFilterExt(srcPath, dstPath, keep); err != nil {
				return err
			}
			continue
		}
		if keep != nil {
			_, ext := SplitFileName(entry.Name())
			if !keep(ext) {
				continue
			}
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// RemoveDirAll recursively removes every entry under dir, leaving dir itself
// in place.
func RemoveDirAll(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDirAllFilterExt recursively removes entries under dir. If match is
// non-nil, only files whose extension satisfies match are deleted;
// directories are always recursed into regardless of the filter, and are
// never removed themselves.
func RemoveDirAllFilterExt(dir string, match func(ext string) bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := RemoveDirAllFilterExt(path, match); err != nil {
				return err
			}
			continue
		}
		if match != nil {
			_, ext := SplitFileName(entry.Name())
			if !match(ext) {
				continue
			}
		}
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// LastModifiedRecursive returns the most recent modification time among
// path itself and, if path is a directory, every file and subdirectory
// transitively under it.
func LastModifiedRecursive(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if !info.IsDir() {
		return info.ModTime(), nil
	}

	latest := info.ModTime()
	entries, err := os.ReadDir(path)
	if err != nil {
		return time.Time{}, err
	}
	for _, entry := range entries {
		childLatest, err := LastModifiedRecursive(filepath.Join(path, entry.Name()))
		if err != nil {
			return time.Time{}, err
		}
		if childLatest.After(latest) {
			latest = childLatest
		}
	}
	return latest, nil
}
