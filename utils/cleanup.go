package utils

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ReferencedUploads returns the set of upload URLs still attached to something.
type ReferencedUploads func(ctx context.Context) (map[string]bool, error)

// CleanUploads removes files under dir older than maxAge whose public URL
// (urlPrefix + relative path) is not referenced. It returns how many were removed.
func CleanUploads(ctx context.Context, dir, urlPrefix string, maxAge time.Duration, referenced ReferencedUploads) (int, error) {
	inUse, err := referenced(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		if inUse[urlPrefix+"/"+filepath.ToSlash(rel)] {
			return nil
		}
		if err := os.Remove(path); err != nil {
			Sugar.Warnf("upload cleaner: remove %s: %v", path, err)
			return nil
		}
		removed++
		return nil
	})
	return removed, err
}

// StartUploadCleaner runs CleanUploads every interval until ctx is done.
func StartUploadCleaner(ctx context.Context, interval time.Duration, dir, urlPrefix string, maxAge time.Duration, referenced ReferencedUploads) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			n, err := CleanUploads(ctx, dir, urlPrefix, maxAge, referenced)
			if err != nil {
				Sugar.Warnf("upload cleaner failed: %v", err)
				continue
			}
			if n > 0 {
				Sugar.Infof("upload cleaner removed %d orphaned photos", n)
			}
		}
	}()
}
