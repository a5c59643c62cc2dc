// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

// Package bundle handles the uploaded Edge Impulse export: parsing its
// filename convention and unpacking its contents into a request workspace.
package bundle

import (
	"path"
	"strings"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
)

const nameSeparator = "-custom-"

// Name identifies an uploaded bundle, parsed from its filename.
// Bundles are named <modelname>-custom-<version>.zip (e.g. mymodel-custom-v10.zip).
type Name struct {
	Model   string
	Version string
}

// Container returns the <modelname>-custom-<version> identifier used to name
// the compiled model inside the output manifest.
func (n Name) Container() string {
	return n.Model + nameSeparator + n.Version
}

// CompiledModelName returns the filename the compiled model carries in the
// output manifest.
func (n Name) CompiledModelName() string {
	return n.Container() + "_vela.tflite"
}

// ParseName parses an uploaded bundle filename into its model name and version.
// Any path prefix is ignored; only the base name matters.
func ParseName(filename string) (Name, error) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if !strings.HasSuffix(base, ".zip") {
		return Name{}, errors.New(errors.ExtractionFailed, "bundle file must end with .zip")
	}
	stem := strings.TrimSuffix(base, ".zip")
	model, version, found := strings.Cut(stem, nameSeparator)
	if !found {
		return Name{}, errors.New(errors.ExtractionFailed,
			"bundle filename must contain '-custom-' (e.g. mymodel-custom-v10.zip)")
	}
	if model == "" || version == "" {
		return Name{}, errors.New(errors.ExtractionFailed,
			"bundle filename has empty segments around '-custom-'")
	}
	return Name{Model: model, Version: version}, nil
}
