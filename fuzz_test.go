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

package snudown

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var fuzzModes = []Mode{ModeUsertext, ModeWiki, ModeUsertextWithoutLinks}

// Seeds beyond the fixture corpus: attack payloads and pathological
// shapes.
var fuzzSeeds = []string{
	"<script>alert(1)</script>",
	"<SCRIPT>alert(1)</SCRIPT>",
	"<img src=x onerror=alert(1)>",
	"<a href=\"javascript:alert(1)\">click</a>",
	"[click](javascript:alert(1))",
	"[click](jAvAsCrIpT:alert(1))",
	"<table><tr><td onclick=\"x\">a</td></tr></table>",
	"<td colspan=\"2\" onmouseover=\"x\">a</td>",
	"&#60;script&#62;",
	"&lt;script&gt;",
	"/r/all-a-b+c /u/x r/y u/z",
	"\\/r/foo \\\\/r/bar",
	"a ^(b ^(c ^(d)))",
	">!a >!b!< c!<",
	strings.Repeat("> ", 64) + "deep",
	strings.Repeat("* ", 64) + "deep",
	strings.Repeat("[", 128) + strings.Repeat("]", 128),
	strings.Repeat("*", 128),
	strings.Repeat("`", 65) + "x",
	strings.Repeat("^", 100),
	strings.Repeat("|", 100) + "\n" + strings.Repeat("-|", 100),
	"[x](" + strings.Repeat("(", 64) + ")",
	"x  \n  \n  \ny",
	"a\x00b",
	"\xff\xfe invalid utf8 \x80",
	"",
}

func addSeeds(f *testing.F) {
	for _, test := range loadTestSuite(f) {
		f.Add(test.Input)
	}
	for _, seed := range fuzzSeeds {
		f.Add(seed)
	}
}

// FuzzRenderCrash finds panics in any of the three modes, with and
// without the TOC pass.
func FuzzRenderCrash(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, input string) {
		for _, mode := range fuzzModes {
			if _, err := Render([]byte(input), mode, Options{}); err != nil {
				t.Fatalf("mode %v: %v", mode, err)
			}
			if _, err := Render([]byte(input), mode, Options{
				EnableTOC:   true,
				TOCIDPrefix: "f_",
				Nofollow:    true,
				Target:      "_top",
			}); err != nil {
				t.Fatalf("mode %v with options: %v", mode, err)
			}
		}
	})
}

// Byte patterns that must never reach the output in any mode.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[\s>]`),
	regexp.MustCompile(`(?i)</script>`),
	regexp.MustCompile(`(?i)<iframe[\s>]`),
	regexp.MustCompile(`(?i)<object[\s>]`),
	regexp.MustCompile(`(?i)<embed[\s>]`),
	regexp.MustCompile(`(?i)<style[\s>]`),
	regexp.MustCompile(`(?i)href\s*=\s*"\s*javascript:`),
}

// FuzzRenderXSS checks that dangerous content never survives
// rendering.
func FuzzRenderXSS(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, input string) {
		for _, mode := range fuzzModes {
			rendered, err := Render([]byte(input), mode, Options{})
			if err != nil {
				t.Fatal(err)
			}
			for _, pattern := range dangerousPatterns {
				if pattern.Match(rendered) {
					t.Fatalf("mode %v: %q survived rendering\ninput: %q\nrendered: %q",
						mode, pattern.String(), input, rendered)
				}
			}
		}
	})
}

// Elements the renderer may legitimately emit.
var fuzzAllowedElements = map[atom.Atom]bool{
	atom.A: true, atom.Blockquote: true, atom.Br: true, atom.Caption: true,
	atom.Code: true, atom.Del: true, atom.Div: true, atom.Em: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Hr: true, atom.Img: true,
	atom.Li: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Span: true, atom.Strong: true, atom.Sup: true, atom.Table: true,
	atom.Tbody: true, atom.Td: true, atom.Tfoot: true, atom.Th: true,
	atom.Thead: true, atom.Tr: true, atom.Ul: true,
}

// FuzzWellFormed is the HTML5-parser cross-check: rendered fragments
// must parse into a tree containing only expected elements and no
// event-handler attributes.
func FuzzWellFormed(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, input string) {
		for _, mode := range fuzzModes {
			rendered, err := Render([]byte(input), mode, Options{})
			if err != nil {
				t.Fatal(err)
			}

			body := &html.Node{
				Type:     html.ElementNode,
				Data:     "body",
				DataAtom: atom.Body,
			}
			nodes, err := html.ParseFragment(bytes.NewReader(rendered), body)
			if err != nil {
				t.Fatalf("mode %v: output does not parse: %v\ninput: %q\nrendered: %q", mode, err, input, rendered)
			}

			var walk func(n *html.Node)
			walk = func(n *html.Node) {
				if n.Type == html.ElementNode {
					if !fuzzAllowedElements[n.DataAtom] {
						t.Errorf("mode %v: unexpected element <%s>\ninput: %q\nrendered: %q", mode, n.Data, input, rendered)
					}
					for _, attr := range n.Attr {
						if strings.HasPrefix(attr.Key, "on") {
							t.Errorf("mode %v: event handler %s on <%s>\ninput: %q\nrendered: %q", mode, attr.Key, n.Data, input, rendered)
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
		}
	})
}
