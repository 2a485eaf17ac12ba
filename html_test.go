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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/microcosm-cc/bluemonday"

	"github.com/reddit/snudown/internal/normhtml"
)

func TestHTMLIsTag(t *testing.T) {
	tests := []struct {
		tag  string
		name string
		want int
	}{
		{"<table>", "table", htmlTagOpen},
		{"</table>", "table", htmlTagClose},
		{"<td colspan=\"2\">", "td", htmlTagOpen},
		{"<tdx>", "td", htmlTagNone},
		{"<t>", "table", htmlTagNone},
		{"<table", "table", htmlTagNone},
		{"x", "table", htmlTagNone},
		{"<TABLE>", "table", htmlTagNone},
	}
	for _, test := range tests {
		if got := htmlIsTag([]byte(test.tag), test.name); got != test.want {
			t.Errorf("htmlIsTag(%q, %q) = %d; want %d", test.tag, test.name, got, test.want)
		}
	}
}

func TestWhitelistedTag(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		elem string
		kind int
		want string
	}{
		{"closing tag drops everything", "</table junk>", "table", htmlTagClose, "</table>"},
		{"known attribute kept", `<td colspan="2">`, "td", htmlTagOpen, `<td colspan="2">`},
		{"single quoted value", `<th scope='row'>`, "th", htmlTagOpen, `<th scope="row">`},
		{"unknown attribute dropped", `<td onclick="x">`, "td", htmlTagOpen, "<td>"},
		{"mixed attributes", `<td onclick="x" rowspan="3">`, "td", htmlTagOpen, `<td rowspan="3">`},
		{"valueless attribute dropped", "<td colspan>", "td", htmlTagOpen, "<td>"},
		{"unquoted value dropped", "<td colspan=2>", "td", htmlTagOpen, "<td>"},
		{"case-insensitive attribute name", `<td COLSPAN="2">`, "td", htmlTagOpen, `<td COLSPAN="2">`},
		{"value escapes", `<td scope="a<b">`, "td", htmlTagOpen, `<td scope="a&lt;b">`},
		{"double equals resets", `<td colspan=="2">`, "td", htmlTagOpen, "<td>"},
	}
	r := &htmlRenderer{opts: HTMLOptions{AttrWhitelist: HTMLAttrWhitelist}}
	for _, test := range tests {
		var out bytes.Buffer
		r.whitelistedTag(&out, []byte(test.tag), test.elem, test.kind)
		if out.String() != test.want {
			t.Errorf("%s: whitelistedTag(%q) = %q; want %q", test.name, test.tag, out.String(), test.want)
		}
	}
}

func TestHeaderAnchors(t *testing.T) {
	r := &htmlRenderer{opts: HTMLOptions{Flags: HTMLTOC, TOCIDPrefix: "p_"}}
	var out bytes.Buffer
	r.header(&out, []byte("One"), 1)
	r.header(&out, []byte("Two"), 2)
	got := out.String()
	want := "<h1 id=\"p_toc_0\">One</h1>\n\n<h2 id=\"p_toc_1\">Two</h2>\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("headers (-want +got):\n%s", diff)
	}
}

func TestTableCellOutput(t *testing.T) {
	r := &htmlRenderer{}
	tests := []struct {
		flags   int
		colspan int
		want    string
	}{
		{TableHeader, 1, "<th>x</th>\n"},
		{0, 1, "<td>x</td>\n"},
		{TableAlignCenter, 1, `<td align="center">x</td>` + "\n"},
		{TableAlignLeft, 2, `<td colspan="2"  align="left">x</td>` + "\n"},
	}
	for _, test := range tests {
		var out bytes.Buffer
		r.tableCell(&out, []byte("x"), test.flags, test.colspan)
		if out.String() != test.want {
			t.Errorf("tableCell(flags=%d, colspan=%d) = %q; want %q", test.flags, test.colspan, out.String(), test.want)
		}
	}
}

func TestBlockCodeLanguageClasses(t *testing.T) {
	r := &htmlRenderer{}
	var out bytes.Buffer
	r.blockCode(&out, []byte("x\n"), []byte(".go extra"))
	want := "<pre><code class=\"md-code-language-go extra\">x\n</code></pre>\n"
	if out.String() != want {
		t.Errorf("blockCode = %q; want %q", out.String(), want)
	}
}

func TestSafelinkGating(t *testing.T) {
	// No <a> may carry a target outside the safelist, except emails.
	unsafe := []string{
		"[x](javascript:alert(1))",
		"[x](vbscript:x)",
		"[x](data:text/html,x)",
		"<javascript:alert(1)>",
	}
	for _, input := range unsafe {
		got, err := Render([]byte(input), ModeUsertext, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Contains(got, []byte("<a ")) || bytes.Contains(got, []byte("<a>")) {
			t.Errorf("unsafe input %q produced a link: %s", input, got)
		}
	}

	// Email autolinks bypass the scheme check.
	got, err := Render([]byte("a@b.com x"), ModeUsertext, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(got, []byte(`href="mailto:a@b.com"`)) {
		t.Errorf("email autolink missing: %s", got)
	}
}

func TestWikiWhitelistSurvivesSanitizer(t *testing.T) {
	// Sanitizing wiki output with an equivalent bluemonday policy must
	// be a no-op: everything the whitelist filter admits is content the
	// sanitizer would admit too.
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption")
	policy.AllowAttrs("colspan", "rowspan", "cellspacing", "cellpadding", "scope", "align").
		OnElements("table", "tr", "th", "td")

	inputs := []string{
		"<table><tr><td colspan=\"2\">a</td></tr></table>",
		"<table><tr><th scope=\"row\">h</th></tr></table>",
		"a|b\n---|---\nc|d",
	}
	for _, input := range inputs {
		got, err := Render([]byte(input), ModeWiki, Options{})
		if err != nil {
			t.Fatal(err)
		}
		sanitized := policy.SanitizeBytes(got)
		want := string(normhtml.NormalizeHTML(got))
		if diff := cmp.Diff(want, string(normhtml.NormalizeHTML(sanitized))); diff != "" {
			t.Errorf("sanitizer changed wiki output for %q (-rendered +sanitized):\n%s", input, diff)
		}
	}
}

func TestRawHTMLPriority(t *testing.T) {
	// Escape wins over skip; the whitelist wins over both.
	escOnly := &htmlRenderer{opts: HTMLOptions{Flags: HTMLEscape | HTMLSkipHTML}}
	var out bytes.Buffer
	escOnly.rawHTMLTag(&out, []byte("<b>"))
	if out.String() != "&lt;b&gt;" {
		t.Errorf("escape+skip: got %q; want escaped tag", out.String())
	}

	skipOnly := &htmlRenderer{opts: HTMLOptions{Flags: HTMLSkipHTML}}
	out.Reset()
	skipOnly.rawHTMLTag(&out, []byte("<b>"))
	if out.String() != "" {
		t.Errorf("skip: got %q; want empty", out.String())
	}

	wl := &htmlRenderer{opts: HTMLOptions{
		Flags:            HTMLAllowElementWhitelist | HTMLEscape | HTMLSkipHTML,
		ElementWhitelist: HTMLElementWhitelist,
		AttrWhitelist:    HTMLAttrWhitelist,
	}}
	out.Reset()
	wl.rawHTMLTag(&out, []byte("<table>"))
	if out.String() != "<table>" {
		t.Errorf("whitelist: got %q; want <table>", out.String())
	}

	verbatim := &htmlRenderer{}
	out.Reset()
	verbatim.rawHTMLTag(&out, []byte("<b>"))
	if out.String() != "<b>" {
		t.Errorf("no flags: got %q; want verbatim", out.String())
	}
}

func TestTOCRendererEmitsOnlyHeaders(t *testing.T) {
	p := NewParser(usertextMarkdownFlags, defaultNesting, TOCRenderer(HTMLOptions{}))
	got := string(p.Render([]byte("# One\n\nbody text\n\n## Two")))
	if strings.Contains(got, "body text") {
		t.Errorf("TOC output contains body text: %s", got)
	}
	for _, want := range []string{`<div class="toc">`, `href="#toc_0"`, `href="#toc_1"`, "</div>"} {
		if !strings.Contains(got, want) {
			t.Errorf("TOC output missing %q: %s", want, got)
		}
	}
}
