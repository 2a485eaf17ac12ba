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

package main

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements the renderer is expected to emit, across all modes.
var allowedElements = map[atom.Atom]bool{
	atom.A:          true,
	atom.Blockquote: true,
	atom.Br:         true,
	atom.Caption:    true,
	atom.Code:       true,
	atom.Del:        true,
	atom.Div:        true,
	atom.Em:         true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Hr:         true,
	atom.Img:        true,
	atom.Li:         true,
	atom.Ol:         true,
	atom.P:          true,
	atom.Pre:        true,
	atom.Span:       true,
	atom.Strong:     true,
	atom.Sup:        true,
	atom.Table:      true,
	atom.Tbody:      true,
	atom.Td:         true,
	atom.Tfoot:      true,
	atom.Th:         true,
	atom.Thead:      true,
	atom.Tr:         true,
	atom.Ul:         true,
}

// Validate parses a rendered fragment and reports anything a safe
// renderer should never produce: unknown elements, event-handler
// attributes, or a fragment the HTML5 parser rejects with an error.
func Validate(fragment []byte) []string {
	var findings []string

	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), body)
	if err != nil {
		return []string{fmt.Sprintf("parse: %v", err)}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if !allowedElements[n.DataAtom] {
				findings = append(findings, fmt.Sprintf("unexpected element <%s>", n.Data))
			}
			for _, attr := range n.Attr {
				if len(attr.Key) > 2 && attr.Key[:2] == "on" {
					findings = append(findings, fmt.Sprintf("event handler attribute %s on <%s>", attr.Key, n.Data))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	return findings
}
