package request

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// defaultCharset applies when the content-type header declares none.
const defaultCharset = "utf-8"

// latin1 decodes raw transport bytes into a string, one rune per byte
// following ISO 8859-1. Header names, header values, and the query string
// all arrive this way.
func latin1(b []byte) string {
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = charmap.ISO8859_1.DecodeByte(c)
	}
	return string(rs)
}

// decodeCharset decodes body bytes with the named charset. The label is
// resolved through the WHATWG encoding index, so common aliases such as
// "latin1" or "UTF8" work. UTF-8 input is validated strictly instead of
// being passed through with replacement runes.
func decodeCharset(body []byte, label string) (string, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", fmt.Errorf("unknown charset %q", label)
	}
	if enc == unicode.UTF8 {
		if !utf8.Valid(body) {
			return "", errors.New("body is not valid utf-8")
		}
		return string(body), nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
