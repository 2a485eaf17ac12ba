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

// Phase-B block decomposition. The document view (tab-expanded, with
// reference definitions already removed) is split into blocks in a
// fixed precedence order; block contents recurse back into block or
// inline parsing as appropriate.

package snudown

import (
	"bytes"
)

// Tags that open an HTML block.
var blockTags = map[string]bool{
	"p":          true,
	"dl":         true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"ol":         true,
	"ul":         true,
	"del":        true,
	"div":        true,
	"ins":        true,
	"pre":        true,
	"form":       true,
	"math":       true,
	"table":      true,
	"iframe":     true,
	"script":     true,
	"fieldset":   true,
	"noscript":   true,
	"blockquote": true,
}

// block decomposes data into top-level blocks. Recognizers run in
// fixed precedence; whatever matches consumes whole lines. Past the
// nesting cap the remaining content is flushed as plain text.
func (p *Parser) block(out *bytes.Buffer, data []byte) {
	if p.nesting >= p.maxNesting {
		if p.cb.NormalText != nil {
			p.cb.NormalText(out, data)
		} else {
			out.Write(data)
		}
		return
	}
	p.nesting++

	for len(data) > 0 {
		switch {
		case p.isAtxHeader(data):
			data = data[p.atxHeader(out, data):]
		case data[0] == '<' && p.cb.BlockHTML != nil:
			if n := p.htmlBlock(out, data, true); n > 0 {
				data = data[n:]
				continue
			}
			data = data[p.blockDispatchRest(out, data):]
		case isEmpty(data) > 0:
			data = data[isEmpty(data):]
		case isHRule(data):
			if p.cb.HRule != nil {
				p.cb.HRule(out)
			}
			i := 0
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				i++
			}
			data = data[i:]
		case p.ext&FencedCode != 0:
			if n := p.fencedCode(out, data); n > 0 {
				data = data[n:]
				continue
			}
			data = data[p.blockDispatchRest(out, data):]
		default:
			data = data[p.blockDispatchRest(out, data):]
		}
	}

	p.nesting--
}

// blockDispatchRest covers the recognizers below fenced code in the
// precedence order.
func (p *Parser) blockDispatchRest(out *bytes.Buffer, data []byte) int {
	switch {
	case p.ext&Tables != 0:
		if n := p.table(out, data); n > 0 {
			return n
		}
	}
	switch {
	case prefixSpoilerQuote(data) > 0:
		return p.blockQuote(out, data, true)
	case prefixQuote(data) > 0:
		return p.blockQuote(out, data, false)
	case prefixCode(data) > 0:
		return p.blockCode(out, data)
	case prefixUli(data) > 0:
		return p.list(out, data, 0)
	case prefixOli(data) > 0:
		return p.list(out, data, ListTypeOrdered)
	}
	return p.paragraph(out, data)
}

// isEmpty returns the length of a leading blank line, or 0.
func isEmpty(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	var i int
	for i = 0; i < len(data) && data[i] != '\n'; i++ {
		if data[i] != ' ' && data[i] != '\t' {
			return 0
		}
	}
	return i + 1
}

// isHRule matches a horizontal rule: three or more -, * or _ on a
// line of their own, spaces permitted.
func isHRule(data []byte) bool {
	i := 0
	if len(data) < 3 {
		return false
	}
	for i < 3 && i < len(data) && data[i] == ' ' {
		i++
	}
	if i >= len(data) || (data[i] != '*' && data[i] != '-' && data[i] != '_') {
		return false
	}
	c := data[i]
	n := 0
	for i < len(data) && data[i] != '\n' {
		switch {
		case data[i] == c:
			n++
		case data[i] != ' ':
			return false
		}
		i++
	}
	return n >= 3
}

// isHeaderline matches a setext underline: returns the header level
// (1 for =, 2 for -) or 0.
func isHeaderline(data []byte) int {
	i := 0
	if len(data) == 0 {
		return 0
	}
	if data[i] == '=' {
		for i < len(data) && data[i] == '=' {
			i++
		}
		for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
			i++
		}
		if i >= len(data) || data[i] == '\n' {
			return 1
		}
		return 0
	}
	if data[i] == '-' {
		for i < len(data) && data[i] == '-' {
			i++
		}
		for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
			i++
		}
		if i >= len(data) || data[i] == '\n' {
			return 2
		}
		return 0
	}
	return 0
}

func (p *Parser) isAtxHeader(data []byte) bool {
	return len(data) > 0 && data[0] == '#'
}

// atxHeader renders a #-style header and returns the bytes consumed.
func (p *Parser) atxHeader(out *bytes.Buffer, data []byte) int {
	level := 0
	for level < len(data) && level < 6 && data[level] == '#' {
		level++
	}
	i := level
	for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
		i++
	}
	end := i
	for end < len(data) && data[end] != '\n' {
		end++
	}
	skip := end
	if skip < len(data) {
		skip++
	}
	// Strip trailing hashes and spaces.
	for end > i && data[end-1] == '#' {
		end--
	}
	for end > i && (data[end-1] == ' ' || data[end-1] == '\t') {
		end--
	}

	if end > i && p.cb.Header != nil {
		work := p.pool.acquire()
		p.parseInline(work, data[i:end])
		p.cb.Header(out, work.Bytes(), level)
		p.pool.release(work)
	}
	return skip
}

// prefixQuote returns the length of a blockquote line prefix, or 0.
func prefixQuote(data []byte) int {
	i := 0
	for i < 3 && i < len(data) && data[i] == ' ' {
		i++
	}
	if i < len(data) && data[i] == '>' {
		if i+1 < len(data) && data[i+1] == ' ' {
			return i + 2
		}
		return i + 1
	}
	return 0
}

// prefixSpoilerQuote returns the length of a spoiler-block line
// prefix (">!"), or 0.
func prefixSpoilerQuote(data []byte) int {
	i := 0
	for i < 3 && i < len(data) && data[i] == ' ' {
		i++
	}
	if i+1 < len(data) && data[i] == '>' && data[i+1] == '!' {
		if i+2 < len(data) && data[i+2] == ' ' {
			return i + 3
		}
		return i + 2
	}
	return 0
}

// blockQuote parses a quote or spoiler block: prefixed lines are
// gathered, lazily-continued lines included, and the body recurses
// through block parsing.
func (p *Parser) blockQuote(out *bytes.Buffer, data []byte, spoiler bool) int {
	prefix := prefixQuote
	if spoiler {
		prefix = prefixSpoilerQuote
	}

	work := p.pool.acquire()
	defer p.pool.release(work)

	beg := 0
	for beg < len(data) {
		end := beg
		for end < len(data) && data[end] != '\n' {
			end++
		}
		if end < len(data) {
			end++
		}

		if pre := prefix(data[beg:end]); pre > 0 {
			beg += pre
		} else if isEmpty(data[beg:end]) > 0 &&
			(end >= len(data) || (prefix(data[end:]) == 0 && isEmpty(data[end:]) == 0)) {
			// Empty line followed by a non-quote line closes the block.
			break
		}
		work.Write(data[beg:end])
		beg = end
	}

	body := p.pool.acquire()
	p.block(body, work.Bytes())
	if spoiler {
		if p.cb.BlockSpoiler != nil {
			p.cb.BlockSpoiler(out, body.Bytes())
		}
	} else if p.cb.BlockQuote != nil {
		p.cb.BlockQuote(out, body.Bytes())
	}
	p.pool.release(body)
	return beg
}

// prefixCode returns the length of an indented-code line prefix, or 0.
func prefixCode(data []byte) int {
	if len(data) > 3 && data[0] == ' ' && data[1] == ' ' && data[2] == ' ' && data[3] == ' ' {
		return 4
	}
	return 0
}

// blockCode parses a run of 4-space-indented lines into a code block.
func (p *Parser) blockCode(out *bytes.Buffer, data []byte) int {
	work := p.pool.acquire()
	defer p.pool.release(work)

	beg := 0
	for beg < len(data) {
		end := beg
		for end < len(data) && data[end] != '\n' {
			end++
		}
		if end < len(data) {
			end++
		}

		if pre := prefixCode(data[beg:end]); pre > 0 {
			beg += pre
		} else if isEmpty(data[beg:end]) == 0 {
			break
		}

		if isEmpty(data[beg:end]) > 0 {
			work.WriteByte('\n')
		} else {
			work.Write(data[beg:end])
		}
		beg = end
	}

	// Trim trailing blank lines, keep one final newline.
	b := work.Bytes()
	n := len(b)
	for n > 0 && b[n-1] == '\n' {
		n--
	}
	work.Truncate(n)
	work.WriteByte('\n')

	if p.cb.BlockCode != nil {
		p.cb.BlockCode(out, work.Bytes(), nil)
	}
	return beg
}

// isFenceLine matches a code fence of three or more backticks or
// tildes, returning the bytes consumed and the fence character and
// any info string span.
func isFenceLine(data []byte) (skip int, fenceChar byte, infoStart, infoEnd int) {
	i := 0
	for i < 3 && i < len(data) && data[i] == ' ' {
		i++
	}
	if i >= len(data) || (data[i] != '`' && data[i] != '~') {
		return 0, 0, 0, 0
	}
	fenceChar = data[i]
	n := 0
	for i < len(data) && data[i] == fenceChar {
		i++
		n++
	}
	if n < 3 {
		return 0, 0, 0, 0
	}
	for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
		i++
	}
	infoStart = i
	for i < len(data) && data[i] != '\n' {
		if data[i] == fenceChar {
			return 0, 0, 0, 0
		}
		i++
	}
	infoEnd = i
	for infoEnd > infoStart && (data[infoEnd-1] == ' ' || data[infoEnd-1] == '\t') {
		infoEnd--
	}
	if i < len(data) {
		i++
	}
	return i, fenceChar, infoStart, infoEnd
}

// fencedCode parses a ``` or ~~~ fenced block, returning bytes
// consumed or 0 when the opening line is not a fence.
func (p *Parser) fencedCode(out *bytes.Buffer, data []byte) int {
	skip, fenceChar, infoStart, infoEnd := isFenceLine(data)
	if skip == 0 {
		return 0
	}
	lang := data[infoStart:infoEnd]
	beg := skip

	work := p.pool.acquire()
	defer p.pool.release(work)

	for beg < len(data) {
		closeSkip, closeChar, cs, ce := isFenceLine(data[beg:])
		if closeSkip > 0 && closeChar == fenceChar && cs == ce {
			beg += closeSkip
			break
		}
		end := beg
		for end < len(data) && data[end] != '\n' {
			end++
		}
		if end < len(data) {
			end++
		}
		work.Write(data[beg:end])
		beg = end
	}

	if p.cb.BlockCode != nil {
		if len(lang) > 0 {
			p.cb.BlockCode(out, work.Bytes(), lang)
		} else {
			p.cb.BlockCode(out, work.Bytes(), nil)
		}
	}
	return beg
}

// prefixUli returns the length of an unordered list item prefix, or 0.
func prefixUli(data []byte) int {
	i := 0
	for i < 3 && i < len(data) && data[i] == ' ' {
		i++
	}
	if i+1 >= len(data) ||
		(data[i] != '*' && data[i] != '+' && data[i] != '-') ||
		(data[i+1] != ' ' && data[i+1] != '\t') {
		return 0
	}
	return i + 2
}

// prefixOli returns the length of an ordered list item prefix, or 0.
func prefixOli(data []byte) int {
	i := 0
	for i < 3 && i < len(data) && data[i] == ' ' {
		i++
	}
	start := i
	for i < len(data) && isdigit(data[i]) {
		i++
	}
	if i == start || i+1 >= len(data) || data[i] != '.' ||
		(data[i+1] != ' ' && data[i+1] != '\t') {
		return 0
	}
	return i + 2
}

// list parses a run of list items of one kind into a list block.
func (p *Parser) list(out *bytes.Buffer, data []byte, flags int) int {
	work := p.pool.acquire()
	defer p.pool.release(work)

	i := 0
	for i < len(data) {
		j := p.listItem(work, data[i:], &flags)
		i += j
		if j == 0 || flags&ListItemEndOfList != 0 {
			break
		}
	}

	if p.cb.List != nil {
		p.cb.List(out, work.Bytes(), flags)
	}
	return i
}

// listItem parses one item, handling indented continuation lines,
// nested blocks, and sublists. flags is updated in place with
// end-of-list and contains-block information.
func (p *Parser) listItem(out *bytes.Buffer, data []byte, flags *int) int {
	// Indentation of the item line itself.
	orgpre := 0
	for orgpre < 3 && orgpre < len(data) && data[orgpre] == ' ' {
		orgpre++
	}

	beg := prefixUli(data)
	if beg == 0 {
		beg = prefixOli(data)
	}
	if beg == 0 {
		return 0
	}

	// Skip to the beginning of the following line.
	end := beg
	for end < len(data) && data[end] != '\n' {
		end++
	}
	if end < len(data) {
		end++
	}

	work := p.pool.acquire()
	defer p.pool.release(work)

	// The item line itself, without its prefix.
	for beg < end && (data[beg] == ' ' || data[beg] == '\t') {
		beg++
	}
	work.Write(data[beg:end])
	beg = end

	sublist := 0
	inEmpty := false
	hasInsideEmpty := false
	hasBlock := false

	for beg < len(data) {
		end = beg
		for end < len(data) && data[end] != '\n' {
			end++
		}
		if end < len(data) {
			end++
		}

		if isEmpty(data[beg:end]) > 0 {
			inEmpty = true
			beg = end
			continue
		}

		pre := 0
		for pre < 4 && beg+pre < end && data[beg+pre] == ' ' {
			pre++
		}

		chunk := data[beg+pre : end]
		switch {
		case (prefixUli(chunk) > 0 && !isHRule(data[beg:end])) || prefixOli(chunk) > 0:
			if inEmpty {
				hasInsideEmpty = true
			}
			if pre == orgpre {
				// The next item at this level ends the current one.
				goto parsed
			}
			if sublist == 0 {
				sublist = work.Len()
			}
		case inEmpty && pre < 4:
			// A non-indented line after a blank line ends the list.
			*flags |= ListItemEndOfList
			goto parsed
		case inEmpty:
			work.WriteByte('\n')
			hasBlock = true
		}
		inEmpty = false

		work.Write(data[beg+pre : end])
		beg = end
	}

parsed:
	if hasInsideEmpty {
		*flags |= ListItemContainsBlock
	}
	if hasBlock {
		*flags |= ListItemContainsBlock
	}

	itemOut := p.pool.acquire()
	raw := work.Bytes()
	if *flags&ListItemContainsBlock != 0 {
		// Intermediate render of the block item.
		if sublist > 0 && sublist < len(raw) {
			p.block(itemOut, raw[:sublist])
			p.block(itemOut, raw[sublist:])
		} else {
			p.block(itemOut, raw)
		}
	} else {
		// Intermediate render of the inline item.
		if sublist > 0 && sublist < len(raw) {
			p.parseInline(itemOut, trimNewlines(raw[:sublist]))
			p.block(itemOut, raw[sublist:])
		} else {
			p.parseInline(itemOut, trimNewlines(raw))
		}
	}

	if p.cb.ListItem != nil {
		p.cb.ListItem(out, itemOut.Bytes(), *flags)
	}
	p.pool.release(itemOut)
	return beg
}

func trimNewlines(data []byte) []byte {
	end := len(data)
	for end > 0 && data[end-1] == '\n' {
		end--
	}
	return data[:end]
}

// paragraph gathers lines until a blank line or a construct that may
// interrupt a paragraph, handling setext headers on the way out.
func (p *Parser) paragraph(out *bytes.Buffer, data []byte) int {
	i, end := 0, 0
	level := 0

	for i < len(data) {
		end = i
		for end < len(data) && data[end] != '\n' {
			end++
		}
		if end < len(data) {
			end++
		}

		if isEmpty(data[i:]) > 0 {
			break
		}
		if level = isHeaderline(data[i:]); level != 0 {
			break
		}
		if p.isAtxHeader(data[i:]) || isHRule(data[i:]) {
			end = i
			break
		}
		i = end
	}

	work := data[:i]
	if level == 0 {
		// Plain paragraph.
		start := 0
		for start < len(work) && isspace(work[start]) {
			start++
		}
		body := trimNewlines(work[start:])
		if p.cb.Paragraph != nil {
			rendered := p.pool.acquire()
			p.parseInline(rendered, body)
			p.cb.Paragraph(out, rendered.Bytes())
			p.pool.release(rendered)
		}
		return end
	}

	// Setext header: everything up to the last line is a paragraph of
	// its own, the last line becomes the header text.
	if i > 0 {
		prev := trimNewlines(work)
		j := len(prev)
		for j > 0 && prev[j-1] != '\n' {
			j--
		}
		if j > 0 {
			pdata := trimNewlines(prev[:j])
			start := 0
			for start < len(pdata) && isspace(pdata[start]) {
				start++
			}
			if start < len(pdata) && p.cb.Paragraph != nil {
				rendered := p.pool.acquire()
				p.parseInline(rendered, pdata[start:])
				p.cb.Paragraph(out, rendered.Bytes())
				p.pool.release(rendered)
			}
			work = prev[j:]
		} else {
			work = prev
		}

		if p.cb.Header != nil && len(work) > 0 {
			rendered := p.pool.acquire()
			p.parseInline(rendered, work)
			p.cb.Header(out, rendered.Bytes(), level)
			p.pool.release(rendered)
		}
	}

	// end already sits past the underline.
	return end
}

// htmlBlock tries to consume a raw HTML block starting at data[0] and
// returns the bytes consumed, or 0. doRender controls whether the
// BlockHTML callback fires.
func (p *Parser) htmlBlock(out *bytes.Buffer, data []byte, doRender bool) int {
	if len(data) < 2 || data[0] != '<' {
		return 0
	}

	// HTML comment, laxist form.
	if len(data) > 5 && data[1] == '!' && data[2] == '-' && data[3] == '-' {
		i := 5
		for i < len(data) && !(data[i-2] == '-' && data[i-1] == '-' && data[i] == '>') {
			i++
		}
		i++
		if i < len(data) {
			if j := isEmpty(data[i:]); j > 0 {
				size := i + j
				if doRender && p.cb.BlockHTML != nil {
					p.cb.BlockHTML(out, data[:size])
				}
				return size
			}
		}
	}

	// Self-contained hr tag, another laxist form.
	if len(data) > 4 && (data[1] == 'h' || data[1] == 'H') && (data[2] == 'r' || data[2] == 'R') {
		i := 3
		for i < len(data) && data[i] != '>' && data[i] != '\n' {
			i++
		}
		if i < len(data) && data[i] == '>' {
			i++
			if j := isEmpty(data[i:]); j > 0 {
				size := i + j
				if doRender && p.cb.BlockHTML != nil {
					p.cb.BlockHTML(out, data[:size])
				}
				return size
			}
		}
	}

	// A known block-level tag name.
	tag := htmlBlockTag(data)
	if tag == "" {
		return 0
	}

	// Look for the closing tag followed by a blank line.
	size := p.htmlBlockEnd(tag, data)
	if size == 0 && p.ext&LaxHTMLBlocks != 0 {
		// Lax mode: any blank line ends the block.
		i := 0
		for i < len(data) {
			if j := isEmpty(data[i:]); j > 0 {
				size = i + j
				break
			}
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				i++
			}
		}
	}
	if size == 0 {
		return 0
	}
	if doRender && p.cb.BlockHTML != nil {
		p.cb.BlockHTML(out, data[:size])
	}
	return size
}

// htmlBlockTag extracts a lowercased known block tag name opening at
// data[0], or "".
func htmlBlockTag(data []byte) string {
	i := 1
	if i < len(data) && data[i] == '/' {
		i++
	}
	start := i
	for i < len(data) && i-start < 10 && isalnum(data[i]) {
		i++
	}
	if i >= len(data) || (!isspace(data[i]) && data[i] != '>' && data[i] != '/') {
		return ""
	}
	name := string(bytes.ToLower(data[start:i]))
	if blockTags[name] {
		return name
	}
	return ""
}

// htmlBlockEnd finds </tag> followed by a blank line and returns the
// total size, or 0.
func (p *Parser) htmlBlockEnd(tag string, data []byte) int {
	closer := []byte("</" + tag + ">")
	i := 0
	for {
		j := bytes.Index(bytes.ToLower(data[i:]), closer)
		if j < 0 {
			return 0
		}
		i += j + len(closer)
		// Closing tag must be followed by optional whitespace and a
		// blank line.
		k := i
		for k < len(data) && data[k] != '\n' {
			if data[k] != ' ' && data[k] != '\t' {
				break
			}
			k++
		}
		if k >= len(data) {
			return len(data)
		}
		if data[k] == '\n' {
			k++
			if j := isEmpty(data[k:]); j > 0 || k >= len(data) {
				return k + j
			}
		}
	}
}

//
// Tables
//

// tableRowSpec holds per-column alignment parsed from the underline
// row.
type tableRowSpec struct {
	align []int
}

// table parses a pipe table (header row, dash underline, body rows)
// and returns the bytes consumed, or 0.
func (p *Parser) table(out *bytes.Buffer, data []byte) int {
	headerEnd, spec := p.tableHeader(data)
	if headerEnd == 0 {
		return 0
	}

	headerWork := p.pool.acquire()
	defer p.pool.release(headerWork)

	// Render the header row (first line).
	lineEnd := 0
	for lineEnd < len(data) && data[lineEnd] != '\n' {
		lineEnd++
	}
	p.tableRow(headerWork, data[:lineEnd], spec, true)

	// Body rows run until a line without a pipe.
	bodyWork := p.pool.acquire()
	defer p.pool.release(bodyWork)

	i := headerEnd
	for i < len(data) {
		rowStart := i
		pipes := 0
		for i < len(data) && data[i] != '\n' {
			if data[i] == '|' {
				pipes++
			}
			i++
		}
		if pipes == 0 || i == rowStart {
			i = rowStart
			break
		}
		p.tableRow(bodyWork, data[rowStart:i], spec, false)
		if i < len(data) {
			i++
		}
	}

	if p.cb.Table != nil {
		p.cb.Table(out, headerWork.Bytes(), bodyWork.Bytes())
	}
	return i
}

// tableHeader validates the header and underline rows, returning the
// offset past the underline and the column alignments.
func (p *Parser) tableHeader(data []byte) (int, *tableRowSpec) {
	// Header line must contain a pipe that is not escaped.
	i := 0
	pipes := 0
	for i < len(data) && data[i] != '\n' {
		if data[i] == '|' && (i == 0 || data[i-1] != '\\') {
			pipes++
		}
		i++
	}
	if i >= len(data) || pipes == 0 {
		return 0, nil
	}
	headerEnd := i + 1

	// Underline row: -, :, |, space only, with at least one dash run.
	i = headerEnd
	spec := &tableRowSpec{}
	underStart := i
	col := 0
	if i < len(data) && data[i] == '|' {
		i++
	}
	for i < len(data) && data[i] != '\n' {
		dashes := 0
		align := 0
		for i < len(data) && data[i] == ' ' {
			i++
		}
		if i < len(data) && data[i] == ':' {
			i++
			align |= TableAlignLeft
			dashes++
		}
		for i < len(data) && data[i] == '-' {
			i++
			dashes++
		}
		if i < len(data) && data[i] == ':' {
			i++
			align |= TableAlignRight
			dashes++
		}
		for i < len(data) && data[i] == ' ' {
			i++
		}
		if i < len(data) && data[i] != '|' && data[i] != '\n' {
			return 0, nil
		}
		if dashes < 3 {
			return 0, nil
		}
		if i < len(data) && data[i] == '|' {
			i++
		}
		spec.align = append(spec.align, align)
		col++
	}
	if col == 0 || i == underStart {
		return 0, nil
	}
	if i < len(data) {
		i++
	}
	return i, spec
}

// tableRow splits one row into cells on unescaped pipes, renders each
// cell's inlines, and merges empty cells produced by consecutive
// pipes into a colspan on the preceding cell.
func (p *Parser) tableRow(out *bytes.Buffer, row []byte, spec *tableRowSpec, header bool) {
	rowWork := p.pool.acquire()
	defer p.pool.release(rowWork)

	i := 0
	if i < len(row) && row[i] == '|' {
		i++
	}
	end := len(row)
	if end > i && row[end-1] == '|' && (end < 2 || row[end-2] != '\\') {
		end--
	}

	type cell struct {
		text []byte
		span int
	}
	var cells []cell
	start := i
	flush := func(stop int) {
		text := bytes.TrimSpace(row[start:stop])
		if len(text) == 0 && len(cells) > 0 {
			// A run of pipes widens the previous cell.
			cells[len(cells)-1].span++
		} else {
			cells = append(cells, cell{text: text, span: 1})
		}
	}
	for j := i; j < end; j++ {
		if row[j] == '|' && row[j-1] != '\\' {
			flush(j)
			start = j + 1
		}
	}
	flush(end)

	for idx, c := range cells {
		flags := 0
		if header {
			flags |= TableHeader
		}
		if spec != nil && idx < len(spec.align) {
			flags |= spec.align[idx]
		}
		cellWork := p.pool.acquire()
		p.parseInline(cellWork, c.text)
		if p.cb.TableCell != nil {
			p.cb.TableCell(rowWork, cellWork.Bytes(), flags, c.span)
		}
		p.pool.release(cellWork)
	}

	if p.cb.TableRow != nil {
		p.cb.TableRow(out, rowWork.Bytes())
	}
}
