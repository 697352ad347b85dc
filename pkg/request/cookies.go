package request

import "strings"

// parseCookies splits a cookie header into name/value pairs. Fragments are
// separated by ";", each split once at the first "=", names and values
// trimmed of surrounding space. Quoted values are unescaped; a later
// duplicate name overwrites an earlier one; empty fragments are skipped.
func parseCookies(header string) map[string]string {
	cookies := map[string]string{}
	for _, chunk := range strings.Split(header, ";") {
		name, value, _ := strings.Cut(chunk, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies[name] = unquoteCookie(strings.TrimSpace(value))
	}
	return cookies
}

// unquoteCookie removes surrounding double quotes from a cookie value and
// resolves the escape sequences allowed inside: \ooo three-digit octal
// escapes and \c single-character escapes. Values without surrounding
// quotes are returned unchanged.
func unquoteCookie(v string) string {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	v = v[1 : len(v)-1]
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+3 < len(v) && isOctal(v[i+1], v[i+2], v[i+3]) {
			b.WriteByte((v[i+1]-'0')<<6 | (v[i+2]-'0')<<3 | (v[i+3] - '0'))
			i += 3
			continue
		}
		if i+1 < len(v) {
			b.WriteByte(v[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isOctal(hi, mid, lo byte) bool {
	return '0' <= hi && hi <= '3' && '0' <= mid && mid <= '7' && '0' <= lo && lo <= '7'
}
