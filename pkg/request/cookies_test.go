package request

import (
	"reflect"
	"testing"
)

func TestParseCookies(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   map[string]string
	}{
		{
			name:   "empty_header",
			header: "",
			want:   map[string]string{},
		},
		{
			name:   "two_cookies",
			header: "a=1; b=2",
			want:   map[string]string{"a": "1", "b": "2"},
		},
		{
			name:   "duplicate_name_last_wins",
			header: "a=1; a=2",
			want:   map[string]string{"a": "2"},
		},
		{
			name:   "surrounding_spaces_trimmed",
			header: " a = 1 ;b=2",
			want:   map[string]string{"a": "1", "b": "2"},
		},
		{
			name:   "value_with_equals",
			header: "token=abc=def",
			want:   map[string]string{"token": "abc=def"},
		},
		{
			name:   "valueless_cookie",
			header: "flag",
			want:   map[string]string{"flag": ""},
		},
		{
			name:   "quoted_value",
			header: `session="hello world"`,
			want:   map[string]string{"session": "hello world"},
		},
		{
			name:   "quoted_octal_escape",
			header: `v="a\040b"`,
			want:   map[string]string{"v": "a b"},
		},
		{
			name:   "quoted_backslash_escape",
			header: `v="say \"hi\""`,
			want:   map[string]string{"v": `say "hi"`},
		},
		{
			name:   "empty_fragment_skipped",
			header: "a=1;; b=2;",
			want:   map[string]string{"a": "1", "b": "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCookies(tt.header)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseCookies(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestUnquoteCookie(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`"quoted"`, "quoted"},
		{`""`, ""},
		{`"`, `"`},
		{`"a\012b"`, "a\nb"},
		{`"trailing\"`, `trailing\`},
		{`no"quotes`, `no"quotes`},
	}

	for _, tt := range tests {
		if got := unquoteCookie(tt.in); got != tt.want {
			t.Errorf("unquoteCookie(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
