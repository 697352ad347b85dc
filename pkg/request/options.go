package request

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// optionPieceRE matches one parameter of a structured header value. A
// parameter is a key (token or quoted string), an optional continuation
// index (*0, *1, ...), and an optional value introduced by "=" or, in
// extended notation, by "*=" with a charset'language' prefix.
var optionPieceRE = regexp.MustCompile(`\s*,?\s*` +
	`("[^"\\]*(?:\\.[^"\\]*)*"|[^\s;,=*]+)` +
	`(?:\*(\d+))?` +
	`\s*` +
	`(?:(?:\*\s*=\s*(?:([^\s]+?)'([^\s]*?)')?|=\s*)` +
	`("[^"\\]*(?:\\.[^"\\]*)*"|[^;,]+)?)?` +
	`\s*;?`)

var optionValueCleaner = strings.NewReplacer(`\\`, `\`, `\"`, `"`)

// ParseOptionsHeader splits a structured header value such as
//
//	form-data; name="field"; filename*=utf-8''na%C3%AFve.txt
//
// into its primary token and an options map. Continuation fragments
// (key*0, key*1, ...) are concatenated onto their key in the order they
// appear, extended-notation values are percent-decoded and then decoded
// with their declared charset, and quoted-string values are unescaped.
// Parsing is best-effort: a fragment the grammar cannot match truncates
// the remainder silently instead of failing, and a parameter without a
// value maps to the empty string.
func ParseOptionsHeader(value string) (string, map[string]string) {
	options := map[string]string{}
	if value == "" {
		return "", options
	}
	primary, rest, found := strings.Cut(value, ";")
	primary = strings.TrimSpace(primary)
	if !found {
		return primary, options
	}
	for rest != "" {
		loc := optionPieceRE.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			break
		}
		group := func(i int) string {
			if loc[2*i] < 0 {
				return ""
			}
			return rest[loc[2*i]:loc[2*i+1]]
		}
		key, count, encoding, val := group(1), group(2), group(3), group(5)
		if val != "" {
			if encoding != "" {
				val = decodeExtendedValue(val, encoding)
			}
			if count != "" {
				val = options[key] + val
			}
		}
		options[key] = optionValueCleaner.Replace(strings.Trim(val, `" `))
		rest = rest[loc[1]:]
	}
	return primary, options
}

// decodeExtendedValue handles the charset'language'percent-encoded form of
// RFC 2231. An unknown charset leaves the percent-decoded bytes as-is
// rather than rejecting the parameter.
func decodeExtendedValue(value, label string) string {
	raw := percentDecode(value)
	enc, err := htmlindex.Get(label)
	if err != nil {
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// percentDecode resolves %XX escapes, leaving malformed sequences and all
// other bytes untouched. Unlike query unescaping it does not treat "+" as
// a space.
func percentDecode(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			out = append(out, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		out = append(out, s[i])
	}
	return out
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case 'a' <= c && c <= 'f':
		return true
	case 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
