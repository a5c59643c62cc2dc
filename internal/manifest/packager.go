// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

// Package manifest assembles the output archive handed to the caller:
// the compiled model under its container-derived name, plus labels.txt.
package manifest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
)

// LabelsText serializes labels one per line, newline-terminated.
func LabelsText(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return strings.Join(labels, "\n") + "\n"
}

// Build creates the manifest archive in memory and returns its bytes.
// modelPath is the compiled artifact on disk; modelName is the filename it
// carries inside the archive. The archive is fully constructed before the
// bytes are returned, so callers never observe a partial manifest.
func Build(modelPath, modelName string, labels []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, modelPath, modelName, labels); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func write(w io.Writer, modelPath, modelName string, labels []string) error {
	zw := zip.NewWriter(w)

	lw, err := zw.Create(config.LabelsFileName)
	if err != nil {
		return errors.Wrap(errors.PackagingFailed, "create labels.txt in manifest", err)
	}
	if _, err := io.WriteString(lw, LabelsText(labels)); err != nil {
		return errors.Wrap(errors.PackagingFailed, "write labels.txt", err)
	}

	model, err := os.Open(modelPath)
	if err != nil {
		return errors.Wrap(errors.PackagingFailed,
			fmt.Sprintf("open compiled model %s", modelPath), err)
	}
	defer model.Close()

	mw, err := zw.Create(modelName)
	if err != nil {
		return errors.Wrap(errors.PackagingFailed,
			fmt.Sprintf("create %s in manifest", modelName), err)
	}
	if _, err := io.Copy(mw, model); err != nil {
		return errors.Wrap(errors.PackagingFailed, "write compiled model into manifest", err)
	}

	if err := zw.Close(); err != nil {
		return errors.Wrap(errors.PackagingFailed, "finalize manifest archive", err)
	}
	return nil
}
