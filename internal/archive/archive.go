// Package archive packs project trees into tar.xz snapshot archives
// and restores them.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/JuniperScribe/internal/logging"
)

// Extension is the suffix of snapshot archives.
const Extension = ".tar.xz"

// Pack writes the tree rooted at root into a tar.xz archive at dstPath.
func Pack(root, dstPath string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", root)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	xzWriter, err := xz.NewWriter(out)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	tarWriter := tar.NewWriter(xzWriter)

	err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if fi.IsDir() {
			header := &tar.Header{
				Name:     rel + "/",
				Mode:     0o755,
				Typeflag: tar.TypeDir,
			}
			return tarWriter.WriteHeader(header)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		header := &tar.Header{
			Name: rel,
			Mode: 0o644,
			Size: int64(len(data)),
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		_, err = tarWriter.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", root, err)
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize tar stream: %w", err)
	}
	if err := xzWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize xz stream: %w", err)
	}

	logging.Info("snapshot packed", "root", root, "archive", dstPath)
	return nil
}

// Unpack extracts a tar.xz archive into destDir.
func Unpack(archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create xz reader: %w", err)
	}
	tarReader := tar.NewReader(xzReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		// Reject absolute and parent-escaping entry names.
		name := filepath.FromSlash(header.Name)
		if filepath.IsAbs(name) || strings.Contains(name, ".."+string(filepath.Separator)) || name == ".." {
			return fmt.Errorf("archive entry %q escapes destination", header.Name)
		}
		target := filepath.Join(destDir, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", target, err)
			}
			data, err := io.ReadAll(tarReader)
			if err != nil {
				return fmt.Errorf("failed to read entry %s: %w", header.Name, err)
			}
			if err := os.WriteFile(target, data, os.FileMode(header.Mode).Perm()); err != nil {
				return fmt.Errorf("failed to write %s: %w", target, err)
			}
		default:
			logging.Warn("skipping unsupported archive entry", "name", header.Name, "type", header.Typeflag)
		}
	}

	logging.Info("snapshot unpacked", "archive", archivePath, "dest", destDir)
	return nil
}
