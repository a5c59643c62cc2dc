// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
)

// Unpack extracts a zipped bundle into dir and validates that the required
// members are present. dir must exist and be private to the current request.
func Unpack(data []byte, dir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrap(errors.ExtractionFailed, "uploaded file is not a valid zip archive", err)
	}
	for _, f := range zr.File {
		if err := extractEntry(f, dir); err != nil {
			return err
		}
	}
	return Validate(dir)
}

// Validate checks that dir contains the trained model and the generated
// variables header the rest of the pipeline depends on.
func Validate(dir string) error {
	for _, member := range []string{config.ModelFileName, config.VariablesHeaderPath} {
		p := filepath.Join(dir, filepath.FromSlash(member))
		info, err := os.Stat(p)
		if err != nil {
			return errors.Wrap(errors.ExtractionFailed,
				fmt.Sprintf("bundle is missing %s", member), err)
		}
		if info.IsDir() {
			return errors.New(errors.ExtractionFailed,
				fmt.Sprintf("bundle member %s is a directory, expected a file", member))
		}
	}
	return nil
}

// extractEntry writes a single archive entry under dir, rejecting entries
// whose cleaned path would escape it.
func extractEntry(f *zip.File, dir string) error {
	target, err := securePath(dir, f.Name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return errors.Wrap(errors.ExtractionFailed, "create directory from archive", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(errors.ExtractionFailed, "create parent directory", err)
	}
	rc, err := f.Open()
	if err != nil {
		return errors.Wrap(errors.ExtractionFailed,
			fmt.Sprintf("read archive entry %s", f.Name), err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(errors.ExtractionFailed,
			fmt.Sprintf("create file for archive entry %s", f.Name), err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return errors.Wrap(errors.ExtractionFailed,
			fmt.Sprintf("write archive entry %s", f.Name), err)
	}
	return nil
}

// securePath joins name under dir and errors when the entry would land outside.
func securePath(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	if target != dir && !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
		return "", errors.New(errors.ExtractionFailed,
			fmt.Sprintf("archive entry %s escapes the extraction directory", name))
	}
	return target, nil
}
