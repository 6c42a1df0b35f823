package seagoat

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// buildContext produces the Docker build context for the repository: a
// tar stream holding the Dockerfile, the run script, and the repository
// tree under "repo/".
//
// The tar is normalized (zeroed timestamps and ownership, lexical walk
// order) so that identical repository content always produces identical
// bytes, which keeps the image tag content-addressed.
func buildContext(repoPath string) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)

	if err := addTemplate(tw, "Dockerfile", dockerfileTemplate); err != nil {
		return nil, err
	}
	if err := addTemplate(tw, "run.sh", runScriptTemplate); err != nil {
		return nil, err
	}

	if err := addRepoTree(tw, repoPath); err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing build context: %w", err)
	}
	return buf, nil
}

// imageTag derives the content-addressed image tag for a build context.
func imageTag(prefix string, context []byte) string {
	sum := sha256.Sum256(context)
	return fmt.Sprintf("%s:%x", prefix, sum[:8])
}

func addTemplate(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing %s header: %w", name, err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func addRepoTree(tw *tar.Writer, repoPath string) error {
	return filepath.Walk(repoPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(repoPath, path)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(filepath.Join("repo", rel))

		switch {
		case info.IsDir():
			hdr := &tar.Header{
				Name:     name + "/",
				Mode:     0755,
				Typeflag: tar.TypeDir,
			}
			return tw.WriteHeader(hdr)

		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("reading symlink %s: %w", path, err)
			}
			hdr := &tar.Header{
				Name:     name,
				Mode:     0777,
				Typeflag: tar.TypeSymlink,
				Linkname: target,
			}
			return tw.WriteHeader(hdr)

		case info.Mode().IsRegular():
			mode := int64(0644)
			if info.Mode()&0111 != 0 {
				mode = 0755
			}
			hdr := &tar.Header{
				Name: name,
				Mode: mode,
				Size: info.Size(),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("writing header for %s: %w", path, err)
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return fmt.Errorf("copying %s: %w", path, err)
			}
			return nil

		default:
			// Sockets, devices and other irregular files cannot go in a
			// build context.
			return nil
		}
	})
}
