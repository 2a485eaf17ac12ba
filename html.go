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
	"fmt"
	"strings"
)

// HTMLFlags control the HTML callback set.
type HTMLFlags uint32

const (
	// HTMLSkipHTML drops raw HTML silently.
	HTMLSkipHTML HTMLFlags = 1 << iota
	// HTMLSkipStyle drops style tags.
	HTMLSkipStyle
	// HTMLSkipImages suppresses the image callback.
	HTMLSkipImages
	// HTMLSkipLinks suppresses the link and autolink callbacks.
	HTMLSkipLinks
	// HTMLSafelink rejects link targets that fail the safe-scheme
	// test; rejected links fall through to literal text.
	HTMLSafelink
	// HTMLTOC assigns toc_N anchor ids to headers.
	HTMLTOC
	// HTMLHardWrap turns intra-paragraph newlines into break tags.
	HTMLHardWrap
	// HTMLUseXHTML closes void tags XHTML-style.
	HTMLUseXHTML
	// HTMLEscape entity-escapes all raw HTML. Overrides the skip
	// flags.
	HTMLEscape
	// HTMLAllowElementWhitelist passes whitelisted raw tags through
	// the attribute filter. Overrides HTMLEscape for those tags.
	HTMLAllowElementWhitelist
)

// Raw-HTML elements admitted in wiki mode, and the attributes they may
// carry. Both lists are consulted ahead of every other raw-HTML flag.
var (
	HTMLElementWhitelist = []string{"tr", "th", "td", "table", "tbody", "thead", "tfoot", "caption"}
	HTMLAttrWhitelist    = []string{"colspan", "rowspan", "cellspacing", "cellpadding", "scope"}
)

// HTMLOptions configure an HTML callback set. The whitelists and the
// link-attribute hook may be nil.
type HTMLOptions struct {
	Flags            HTMLFlags
	ElementWhitelist []string
	AttrWhitelist    []string
	// LinkAttributes is called between the closing quote of href (or
	// title) and the '>' of each opening <a> tag, and may append
	// attribute clauses.
	LinkAttributes func(out *bytes.Buffer, link []byte)
	// TOCIDPrefix is prepended to every toc_N anchor id.
	TOCIDPrefix string
}

// tocState holds the per-render table-of-contents counters. The
// document-footer callback resets it so a renderer can be reused, but
// one callback set must not render concurrently.
type tocState struct {
	currentLevel int
	levelOffset  int
	headerCount  int
}

type htmlRenderer struct {
	opts HTMLOptions
	toc  tocState
}

// HTMLRenderer builds the standard HTML callback set for the given
// options. Flag-suppressed constructs become nil entries, per the
// callback contract.
func HTMLRenderer(opts HTMLOptions) Callbacks {
	r := &htmlRenderer{opts: opts}
	cb := Callbacks{
		BlockCode:    r.blockCode,
		BlockQuote:   r.blockQuote,
		BlockSpoiler: r.blockSpoiler,
		BlockHTML:    r.blockHTML,
		Header:       r.header,
		HRule:        r.hrule,
		List:         r.list,
		ListItem:     r.listItem,
		Paragraph:    r.paragraph,
		Table:        r.table,
		TableRow:     r.tableRow,
		TableCell:    r.tableCell,

		AutoLink:       r.autoLink,
		CodeSpan:       r.codeSpan,
		SpoilerSpan:    r.spoilerSpan,
		DoubleEmphasis: r.doubleEmphasis,
		Emphasis:       r.emphasis,
		TripleEmphasis: r.tripleEmphasis,
		Strikethrough:  r.strikethrough,
		Superscript:    r.superscript,
		Image:          r.image,
		LineBreak:      r.lineBreak,
		Link:           r.link,
		RawHTMLTag:     r.rawHTMLTag,

		NormalText:     r.normalText,
		DocumentFooter: r.resetTOC,
	}

	flags := opts.Flags
	if flags&HTMLSkipImages != 0 {
		cb.Image = nil
	}
	if flags&HTMLSkipLinks != 0 {
		cb.Link = nil
		cb.AutoLink = nil
	}
	if flags&HTMLSkipHTML != 0 || flags&HTMLEscape != 0 {
		cb.BlockHTML = nil
	}
	return cb
}

// TOCRenderer builds the parallel callback set that emits only a
// nested list of header links sharing anchor ids with the main
// document.
func TOCRenderer(opts HTMLOptions) Callbacks {
	opts.Flags = HTMLTOC | HTMLSkipHTML
	r := &htmlRenderer{opts: opts}
	return Callbacks{
		Header: r.tocHeader,

		CodeSpan:       r.codeSpan,
		SpoilerSpan:    r.spoilerSpan,
		DoubleEmphasis: r.doubleEmphasis,
		Emphasis:       r.emphasis,
		TripleEmphasis: r.tripleEmphasis,
		Strikethrough:  r.strikethrough,
		Superscript:    r.superscript,
		Link:           r.tocLink,

		DocumentFooter: r.tocFinalize,
	}
}

func (r *htmlRenderer) xhtml() bool {
	return r.opts.Flags&HTMLUseXHTML != 0
}

//
// Block callbacks
//

func (r *htmlRenderer) blockCode(out *bytes.Buffer, text, lang []byte) {
	if out.Len() > 0 {
		out.WriteByte('\n')
	}

	if len(lang) > 0 {
		out.WriteString(`<pre><code class="md-code-language-`)
		cls := 0
		for i := 0; i < len(lang); i++ {
			for i < len(lang) && isspace(lang[i]) {
				i++
			}
			if i < len(lang) {
				org := i
				for i < len(lang) && !isspace(lang[i]) {
					i++
				}
				if lang[org] == '.' {
					org++
				}
				if cls > 0 {
					out.WriteByte(' ')
				}
				escapeHTML(out, lang[org:i])
				cls++
			}
		}
		out.WriteString(`">`)
	} else {
		out.WriteString("<pre><code>")
	}

	if len(text) > 0 {
		escapeHTML(out, text)
	}
	out.WriteString("</code></pre>\n")
}

func (r *htmlRenderer) blockQuote(out *bytes.Buffer, text []byte) {
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	out.WriteString("<blockquote>\n")
	out.Write(text)
	out.WriteString("</blockquote>\n")
}

func (r *htmlRenderer) blockSpoiler(out *bytes.Buffer, text []byte) {
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	out.WriteString("<blockquote class=\"md-spoiler-text\">\n")
	out.Write(text)
	out.WriteString("</blockquote>\n")
}

func (r *htmlRenderer) blockHTML(out *bytes.Buffer, text []byte) {
	sz := len(text)
	for sz > 0 && text[sz-1] == '\n' {
		sz--
	}
	org := 0
	for org < sz && text[org] == '\n' {
		org++
	}
	if org >= sz {
		return
	}
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	out.Write(text[org:sz])
	out.WriteByte('\n')
}

func (r *htmlRenderer) header(out *bytes.Buffer, text []byte, level int) {
	if out.Len() > 0 {
		out.WriteByte('\n')
	}

	if r.opts.Flags&HTMLTOC != 0 {
		fmt.Fprintf(out, `<h%d id="`, level)
		if r.opts.TOCIDPrefix != "" {
			out.WriteString(r.opts.TOCIDPrefix)
		}
		fmt.Fprintf(out, `toc_%d">`, r.toc.headerCount)
		r.toc.headerCount++
	} else {
		fmt.Fprintf(out, "<h%d>", level)
	}

	out.Write(text)
	fmt.Fprintf(out, "</h%d>\n", level)
}

func (r *htmlRenderer) hrule(out *bytes.Buffer) {
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	if r.xhtml() {
		out.WriteString("<hr/>\n")
	} else {
		out.WriteString("<hr>\n")
	}
}

func (r *htmlRenderer) list(out *bytes.Buffer, text []byte, flags int) {
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	if flags&ListTypeOrdered != 0 {
		out.WriteString("<ol>\n")
	} else {
		out.WriteString("<ul>\n")
	}
	out.Write(text)
	if flags&ListTypeOrdered != 0 {
		out.WriteString("</ol>\n")
	} else {
		out.WriteString("</ul>\n")
	}
}

func (r *htmlRenderer) listItem(out *bytes.Buffer, text []byte, flags int) {
	out.WriteString("<li>")
	size := len(text)
	for size > 0 && text[size-1] == '\n' {
		size--
	}
	out.Write(text[:size])
	out.WriteString("</li>\n")
}

func (r *htmlRenderer) paragraph(out *bytes.Buffer, text []byte) {
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	i := 0
	for i < len(text) && isspace(text[i]) {
		i++
	}
	if i == len(text) {
		return
	}

	out.WriteString("<p>")
	if r.opts.Flags&HTMLHardWrap != 0 {
		for i < len(text) {
			org := i
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i > org {
				out.Write(text[org:i])
			}
			// No break tag after the paragraph's final newline.
			if i >= len(text)-1 {
				break
			}
			r.lineBreak(out)
			i++
		}
	} else {
		out.Write(text[i:])
	}
	out.WriteString("</p>\n")
}

func (r *htmlRenderer) table(out *bytes.Buffer, header, body []byte) {
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	out.WriteString("<table><thead>\n")
	out.Write(header)
	out.WriteString("</thead><tbody>\n")
	out.Write(body)
	out.WriteString("</tbody></table>\n")
}

func (r *htmlRenderer) tableRow(out *bytes.Buffer, text []byte) {
	out.WriteString("<tr>\n")
	out.Write(text)
	out.WriteString("</tr>\n")
}

func (r *htmlRenderer) tableCell(out *bytes.Buffer, text []byte, flags, colspan int) {
	if flags&TableHeader != 0 {
		out.WriteString("<th")
	} else {
		out.WriteString("<td")
	}

	if colspan > 1 {
		fmt.Fprintf(out, " colspan=\"%d\" ", colspan)
	}

	switch flags & tableAlignMask {
	case TableAlignCenter:
		out.WriteString(` align="center">`)
	case TableAlignLeft:
		out.WriteString(` align="left">`)
	case TableAlignRight:
		out.WriteString(` align="right">`)
	default:
		out.WriteString(">")
	}

	out.Write(text)

	if flags&TableHeader != 0 {
		out.WriteString("</th>\n")
	} else {
		out.WriteString("</td>\n")
	}
}

//
// Inline callbacks
//

func (r *htmlRenderer) autoLink(out *bytes.Buffer, link []byte, kind int) int {
	if len(link) == 0 {
		return 0
	}
	if r.opts.Flags&HTMLSafelink != 0 && !IsSafeLink(link) && kind != LinkTypeEmail {
		return 0
	}

	out.WriteString(`<a href="`)
	if kind == LinkTypeEmail {
		out.WriteString("mailto:")
	}
	escapeHref(out, link)

	if r.opts.LinkAttributes != nil {
		out.WriteByte('"')
		r.opts.LinkAttributes(out, link)
		out.WriteByte('>')
	} else {
		out.WriteString(`">`)
	}

	// An address given as an explicit mailto: URI keeps the prefix in
	// the href but not in the visible text.
	if bytes.HasPrefix(link, []byte("mailto:")) {
		escapeHTML(out, link[len("mailto:"):])
	} else {
		escapeHTML(out, link)
	}

	out.WriteString("</a>")
	return 1
}

func (r *htmlRenderer) codeSpan(out *bytes.Buffer, text []byte) int {
	out.WriteString("<code>")
	escapeHTML(out, text)
	out.WriteString("</code>")
	return 1
}

func (r *htmlRenderer) spoilerSpan(out *bytes.Buffer, text []byte) int {
	if len(text) == 0 {
		return 0
	}
	out.WriteString(`<span class="md-spoiler-text">`)
	out.Write(text)
	out.WriteString("</span>")
	return 1
}

func (r *htmlRenderer) doubleEmphasis(out *bytes.Buffer, text []byte) int {
	if len(text) == 0 {
		return 0
	}
	out.WriteString("<strong>")
	out.Write(text)
	out.WriteString("</strong>")
	return 1
}

func (r *htmlRenderer) emphasis(out *bytes.Buffer, text []byte) int {
	if len(text) == 0 {
		return 0
	}
	out.WriteString("<em>")
	out.Write(text)
	out.WriteString("</em>")
	return 1
}

func (r *htmlRenderer) tripleEmphasis(out *bytes.Buffer, text []byte) int {
	if len(text) == 0 {
		return 0
	}
	out.WriteString("<strong><em>")
	out.Write(text)
	out.WriteString("</em></strong>")
	return 1
}

func (r *htmlRenderer) strikethrough(out *bytes.Buffer, text []byte) int {
	if len(text) == 0 {
		return 0
	}
	out.WriteString("<del>")
	out.Write(text)
	out.WriteString("</del>")
	return 1
}

func (r *htmlRenderer) superscript(out *bytes.Buffer, text []byte) int {
	if len(text) == 0 {
		return 0
	}
	out.WriteString("<sup>")
	out.Write(text)
	out.WriteString("</sup>")
	return 1
}

func (r *htmlRenderer) image(out *bytes.Buffer, link, title, alt []byte) int {
	if len(link) == 0 {
		return 0
	}
	out.WriteString(`<img src="`)
	escapeHref(out, link)
	out.WriteString(`" alt="`)
	if len(alt) > 0 {
		escapeHTML(out, alt)
	}
	if len(title) > 0 {
		out.WriteString(`" title="`)
		escapeHTML(out, title)
	}
	if r.xhtml() {
		out.WriteString(`"/>`)
	} else {
		out.WriteString(`">`)
	}
	return 1
}

func (r *htmlRenderer) lineBreak(out *bytes.Buffer) int {
	if r.xhtml() {
		out.WriteString("<br/>\n")
	} else {
		out.WriteString("<br>\n")
	}
	return 1
}

func (r *htmlRenderer) link(out *bytes.Buffer, link, title, content []byte) int {
	if r.opts.Flags&HTMLSafelink != 0 && !IsSafeLink(link) {
		return 0
	}

	out.WriteString(`<a href="`)
	if len(link) > 0 {
		escapeHref(out, link)
	}
	if len(title) > 0 {
		out.WriteString(`" title="`)
		escapeHTML(out, title)
	}

	if r.opts.LinkAttributes != nil {
		out.WriteByte('"')
		r.opts.LinkAttributes(out, link)
		out.WriteByte('>')
	} else {
		out.WriteString(`">`)
	}

	out.Write(content)
	out.WriteString("</a>")
	return 1
}

func (r *htmlRenderer) rawHTMLTag(out *bytes.Buffer, text []byte) int {
	// Whitelisted elements ignore every other flag.
	if r.opts.Flags&HTMLAllowElementWhitelist != 0 {
		for _, name := range r.opts.ElementWhitelist {
			if kind := htmlIsTag(text, name); kind != htmlTagNone {
				r.whitelistedTag(out, text, name, kind)
				return 1
			}
		}
	}

	// Escape overrides the skip flags: everything is shown, inert.
	if r.opts.Flags&HTMLEscape != 0 {
		escapeHTML(out, text)
		return 1
	}

	if r.opts.Flags&HTMLSkipHTML != 0 {
		return 1
	}
	if r.opts.Flags&HTMLSkipStyle != 0 && htmlIsTag(text, "style") != htmlTagNone {
		return 1
	}
	if r.opts.Flags&HTMLSkipLinks != 0 && htmlIsTag(text, "a") != htmlTagNone {
		return 1
	}
	if r.opts.Flags&HTMLSkipImages != 0 && htmlIsTag(text, "img") != htmlTagNone {
		return 1
	}

	out.Write(text)
	return 1
}

func (r *htmlRenderer) normalText(out *bytes.Buffer, text []byte) {
	escapeHTML(out, text)
}

//
// Whitelist tag filter
//

const (
	htmlTagNone = iota
	htmlTagOpen
	htmlTagClose
)

// htmlIsTag reports whether tag opens or closes the named element.
// The name match is exact; whitelist names are lower-case ASCII.
func htmlIsTag(tag []byte, name string) int {
	if len(tag) < 3 || tag[0] != '<' {
		return htmlTagNone
	}
	i := 1
	closed := false
	if tag[i] == '/' {
		closed = true
		i++
	}
	j := 0
	for ; i < len(tag) && j < len(name); i, j = i+1, j+1 {
		if tag[i] != name[j] {
			return htmlTagNone
		}
	}
	if i == len(tag) {
		return htmlTagNone
	}
	if isspace(tag[i]) || tag[i] == '>' {
		if closed {
			return htmlTagClose
		}
		return htmlTagOpen
	}
	return htmlTagNone
}

// whitelistedTag re-emits a single tag keeping only whitelisted
// name="value" attributes. Attribute values stay string-delimited;
// malformed attributes reset the accumulation rather than aborting
// the tag.
func (r *htmlRenderer) whitelistedTag(out *bytes.Buffer, text []byte, name string, kind int) {
	out.WriteByte('<')
	if kind == htmlTagClose {
		out.WriteByte('/')
		out.WriteString(name)
		out.WriteByte('>')
		return
	}
	out.WriteString(name)

	var attr, value bytes.Buffer
	var inStr byte
	seenEquals := false

	reset := func() {
		seenEquals = false
		inStr = 0
		attr.Reset()
		value.Reset()
	}

	emit := func() {
		valid := false
		for _, allowed := range r.opts.AttrWhitelist {
			if len(allowed) == attr.Len() && strings.EqualFold(allowed, attr.String()) {
				valid = true
				break
			}
		}
		if valid && value.Len() > 0 && attr.Len() > 0 {
			out.WriteByte(' ')
			escapeHTML(out, attr.Bytes())
			out.WriteString(`="`)
			escapeHTML(out, value.Bytes())
			out.WriteByte('"')
		}
		reset()
	}

loop:
	for i := 1 + len(name); i < len(text); i++ {
		c := text[i]
		switch c {
		case '>':
			break loop
		case '\'', '"':
			switch {
			case !seenEquals:
				reset()
			case inStr == 0:
				inStr = c
			case inStr == c:
				inStr = 0
				emit()
			default:
				value.WriteByte(c)
			}
		case ' ':
			if inStr != 0 {
				value.WriteByte(' ')
			} else {
				reset()
			}
		case '=':
			if seenEquals {
				reset()
				break
			}
			seenEquals = true
		default:
			// Accumulate the name before '=', the value only while
			// inside a string after it.
			if seenEquals && inStr != 0 {
				value.WriteByte(c)
			} else if !seenEquals {
				attr.WriteByte(c)
			}
		}
	}

	out.WriteByte('>')
}

//
// Table of contents
//

func (r *htmlRenderer) tocHeader(out *bytes.Buffer, text []byte, level int) {
	// The first header decides the offset, so a document starting at
	// any level still nests from the top.
	if r.toc.currentLevel == 0 {
		out.WriteString("<div class=\"toc\">\n")
		r.toc.levelOffset = level - 1
	}
	level -= r.toc.levelOffset

	if level > r.toc.currentLevel {
		for level > r.toc.currentLevel {
			out.WriteString("<ul>\n<li>\n")
			r.toc.currentLevel++
		}
	} else if level < r.toc.currentLevel {
		out.WriteString("</li>\n")
		for level < r.toc.currentLevel {
			out.WriteString("</ul>\n</li>\n")
			r.toc.currentLevel--
		}
		out.WriteString("<li>\n")
	} else {
		out.WriteString("</li>\n<li>\n")
	}

	out.WriteString(`<a href="#`)
	if r.opts.TOCIDPrefix != "" {
		out.WriteString(r.opts.TOCIDPrefix)
	}
	fmt.Fprintf(out, `toc_%d">`, r.toc.headerCount)
	r.toc.headerCount++
	escapeHTML(out, text)
	out.WriteString("</a>\n")
}

func (r *htmlRenderer) tocLink(out *bytes.Buffer, link, title, content []byte) int {
	out.Write(content)
	return 1
}

func (r *htmlRenderer) resetTOC(out *bytes.Buffer) {
	r.toc = tocState{}
}

func (r *htmlRenderer) tocFinalize(out *bytes.Buffer) {
	hasTOC := false
	for r.toc.currentLevel > 0 {
		out.WriteString("</li>\n</ul>\n")
		r.toc.currentLevel--
		hasTOC = true
	}
	if hasTOC {
		out.WriteString("</div>\n")
	}
	r.toc = tocState{}
}
