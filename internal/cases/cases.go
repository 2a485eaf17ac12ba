// Copyright 2024 The snudown-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cases provides the embedded end-to-end fixture corpus for
// the renderer tests.
package cases

import (
	_ "embed"
	"encoding/json"
)

// Case is one rendering fixture: a Markdown input, the mode to render
// it in, and the expected HTML fragment.
type Case struct {
	Name   string
	Mode   string
	Input  string
	Output string
}

//go:embed cases.json
var caseData []byte

// Load returns the fixture corpus.
func Load() ([]Case, error) {
	var testsuite []Case
	if err := json.Unmarshal(caseData, &testsuite); err != nil {
		return nil, err
	}
	return testsuite, nil
}
