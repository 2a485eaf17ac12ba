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

	"go4.org/bytereplacer"
)

var htmlEscaper = bytereplacer.New(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// escapeHTML appends src to out with the five HTML-significant bytes
// replaced by named or numeric entities. Non-ASCII bytes pass through,
// so valid UTF-8 input yields valid UTF-8 output.
func escapeHTML(out *bytes.Buffer, src []byte) {
	if bytes.IndexAny(src, "&<>\"'") < 0 {
		out.Write(src)
		return
	}
	out.Write(htmlEscaper.Replace(bytes.Clone(src)))
}

const hexDigits = "0123456789ABCDEF"

// hrefSafe reports whether c may appear verbatim in an href value.
// URL delimiters and sub-delimiters stay, so parenthesized paths like
// /Pikachu_(Electric) survive intact.
func hrefSafe(c byte) bool {
	if isalnum(c) {
		return true
	}
	return bytes.IndexByte([]byte("-_.+!*'(),%#@?=;:/&$~"), c) >= 0
}

// escapeHref appends src to out percent-encoding bytes unsafe in URL
// contexts. The ampersand and single quote stay URL-meaningful but are
// entity-escaped for the surrounding attribute; non-ASCII bytes pass
// through untouched.
func escapeHref(out *bytes.Buffer, src []byte) {
	org := 0
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c >= 0x80 || hrefSafe(c) {
			if c != '&' && c != '\'' {
				continue
			}
		}
		if i > org {
			out.Write(src[org:i])
		}
		org = i + 1
		switch c {
		case '&':
			out.WriteString("&amp;")
		case '\'':
			out.WriteString("&#x27;")
		default:
			out.WriteByte('%')
			out.WriteByte(hexDigits[c>>4])
			out.WriteByte(hexDigits[c&0xf])
		}
	}
	if org < len(src) {
		out.Write(src[org:])
	}
}
