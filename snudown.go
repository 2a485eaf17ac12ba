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

// Package snudown renders the restricted Markdown dialect used for
// untrusted user text on reddit-style forums into HTML fragments that
// are safe to embed in web pages.
//
// The dialect is selected through one of three preset modes: plain
// user text, wiki text (which additionally admits a whitelist of raw
// table elements), and user text without autolinks. All three escape
// or drop every other piece of raw HTML and gate link targets through
// a fixed scheme safelist; the first two also recognize bare URLs and
// forum references like /r/pics and /u/name as links.
//
//	html, err := snudown.Render([]byte("hello **reddit**"), snudown.ModeUsertext, snudown.Options{})
//
// A Renderer constructed by NewRenderer may be reused for any number
// of documents, but not concurrently: it owns per-render state. Use
// one Renderer per goroutine or serialize calls.
package snudown

import (
	"bytes"

	"github.com/pkg/errors"
)

// Version of the dialect implementation.
const Version = "1.3.2"

// Mode selects one of the preset renderer configurations.
type Mode int

const (
	// ModeUsertext renders comment and post bodies. Raw HTML is
	// escaped and images are dropped.
	ModeUsertext Mode = iota
	// ModeWiki additionally passes whitelisted raw table tags.
	ModeWiki
	// ModeUsertextWithoutLinks renders user text without autolinks:
	// bare URLs, addresses, and /r/ and /u/ references stay plain
	// text. Explicit [text](url) and <url> links still render.
	ModeUsertextWithoutLinks

	modeCount
)

func (m Mode) String() string {
	switch m {
	case ModeUsertext:
		return "usertext"
	case ModeWiki:
		return "wiki"
	case ModeUsertextWithoutLinks:
		return "usertext-without-links"
	default:
		return "invalid"
	}
}

// ErrInvalidMode is returned when a renderer is requested for a mode
// outside the preset range.
var ErrInvalidMode = errors.New("snudown: invalid renderer mode")

// Options tune a renderer within its mode.
type Options struct {
	// Nofollow appends rel="nofollow" to every link.
	Nofollow bool
	// Target, when non-empty, appends target="..." to every link.
	Target string
	// TOCIDPrefix is prepended to the toc_N header anchor ids.
	TOCIDPrefix string
	// EnableTOC renders a table-of-contents block ahead of the
	// document and gives body headers the matching anchor ids.
	EnableTOC bool
}

const (
	usertextMarkdownFlags = NoIntraEmphasis |
		Superscript |
		AutoLink |
		Strikethrough |
		Tables

	withoutLinksMarkdownFlags = NoIntraEmphasis |
		Superscript |
		Strikethrough |
		Tables

	usertextHTMLFlags = HTMLSkipHTML |
		HTMLSkipImages |
		HTMLSafelink |
		HTMLEscape |
		HTMLUseXHTML

	wikiHTMLFlags = HTMLSkipHTML |
		HTMLSafelink |
		HTMLAllowElementWhitelist |
		HTMLEscape |
		HTMLUseXHTML
)

// A Renderer is a mode preset bound to its own parser pair and
// options. The TOC parser shares anchor numbering with the main
// parser by construction, not by shared state.
type Renderer struct {
	mode Mode
	opts Options
	main *Parser
	toc  *Parser
}

// NewRenderer builds the preset renderer for mode, tuned by opts.
// It fails only on an out-of-range mode.
func NewRenderer(mode Mode, opts Options) (*Renderer, error) {
	var mdFlags Extensions
	var htmlFlags HTMLFlags

	switch mode {
	case ModeUsertext:
		mdFlags, htmlFlags = usertextMarkdownFlags, usertextHTMLFlags
	case ModeWiki:
		mdFlags, htmlFlags = usertextMarkdownFlags, wikiHTMLFlags
	case ModeUsertextWithoutLinks:
		mdFlags, htmlFlags = withoutLinksMarkdownFlags, usertextHTMLFlags
	default:
		return nil, errors.Wrapf(ErrInvalidMode, "mode %d", mode)
	}

	if opts.EnableTOC {
		htmlFlags |= HTMLTOC
	}

	htmlOpts := HTMLOptions{
		Flags:            htmlFlags,
		ElementWhitelist: HTMLElementWhitelist,
		AttrWhitelist:    HTMLAttrWhitelist,
		LinkAttributes:   linkAttributes(opts),
		TOCIDPrefix:      opts.TOCIDPrefix,
	}

	return &Renderer{
		mode: mode,
		opts: opts,
		main: NewParser(mdFlags, defaultNesting, HTMLRenderer(htmlOpts)),
		toc:  NewParser(mdFlags, defaultNesting, TOCRenderer(htmlOpts)),
	}, nil
}

// Render transforms one Markdown document into an HTML fragment. It
// never fails and never emits partial tags; pathological input
// degrades to escaped literal text.
func (r *Renderer) Render(src []byte) []byte {
	if !r.opts.EnableTOC {
		return r.main.Render(src)
	}

	// The TOC pass runs first so its entries precede the document;
	// the main pass then numbers its header anchors identically.
	var out bytes.Buffer
	out.Write(r.toc.Render(src))
	out.Write(r.main.Render(src))
	return out.Bytes()
}

// Render is the single-call entry point: render src in the given mode.
func Render(src []byte, mode Mode, opts Options) ([]byte, error) {
	r, err := NewRenderer(mode, opts)
	if err != nil {
		return nil, err
	}
	return r.Render(src), nil
}

// linkAttributes builds the hook appending rel and target clauses
// inside every <a> tag.
func linkAttributes(opts Options) func(out *bytes.Buffer, link []byte) {
	return func(out *bytes.Buffer, link []byte) {
		if opts.Nofollow {
			out.WriteString(` rel="nofollow"`)
		}
		if opts.Target != "" {
			out.WriteString(` target="`)
			out.WriteString(opts.Target)
			out.WriteString(`"`)
		}
	}
}
