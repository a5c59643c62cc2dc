// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

// Package labels recovers the ordered class label list from the generated
// model_variables.h header.
//
// This is deliberately not a C parser. The Edge Impulse generator emits one
// fixed declaration shape and the matcher is pinned to it; if a future export
// format changes the shape, parsing fails loudly rather than guessing.
package labels

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/errors"
)

// categoriesVar is the generated variable holding the class labels, in
// class-index order.
const categoriesVar = "ei_classifier_inferencing_categories"

var (
	// Matches the whole declaration, tolerant of incidental whitespace and
	// newlines inside the initializer.
	declRe = regexp.MustCompile(`(?s)const\s+char\s*\*\s*` + categoriesVar + `\s*\[[^\]]*\]\s*=\s*\{(.*?)\}\s*;`)
	// Matches one quoted string literal, including escaped characters.
	literalRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// ParseFile reads the header at path and returns the ordered label list.
func ParseFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.LabelParseFailed, "read variables header", err)
	}
	return Parse(string(data))
}

// Parse extracts the ordered label list from header source text.
func Parse(source string) ([]string, error) {
	m := declRe.FindStringSubmatch(source)
	if m == nil {
		return nil, errors.New(errors.LabelParseFailed,
			fmt.Sprintf("no %s declaration found in variables header", categoriesVar))
	}
	var out []string
	for _, lit := range literalRe.FindAllStringSubmatch(m[1], -1) {
		label, err := strconv.Unquote(`"` + lit[1] + `"`)
		if err != nil {
			return nil, errors.Wrap(errors.LabelParseFailed,
				fmt.Sprintf("malformed label literal %q", lit[0]), err)
		}
		if label == "" {
			continue
		}
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil, errors.New(errors.LabelParseFailed,
			fmt.Sprintf("%s declaration contains no labels", categoriesVar))
	}
	return out, nil
}
