package common

import "testing"

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"HTTPS://Example.COM/News/Article/", "https://example.com/News/Article"},
		{"https://example.com:443/a", "https://example.com/a"},
		{"http://example.com:80/a", "http://example.com/a"},
		{"https://example.com:8080/a", "https://example.com:8080/a"},
		{"https://example.com/a#section-2", "https://example.com/a"},
		{"https://example.com/a?id=42", "https://example.com/a?id=42"},
		{"https://example.com/", "https://example.com/"},
		{"  https://example.com/a  ", "https://example.com/a"},
	}
	for _, tc := range cases {
		got, err := CanonicalURL(tc.in)
		if err != nil {
			t.Errorf("CanonicalURL(%q) errored: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("CanonicalURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalURLRejectsNonHTTP(t *testing.T) {
	for _, in := range []string{"ftp://example.com/file", "javascript:alert(1)", "not a url", "/relative/path"} {
		if _, err := CanonicalURL(in); err == nil {
			t.Errorf("CanonicalURL(%q) should fail", in)
		}
	}
}

func TestSourceDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.Example.com/article", "example.com"},
		{"https://news.example.com/a", "news.example.com"},
		{"https://example.com:8080/a", "example.com"},
		{"garbage", ""},
	}
	for _, tc := range cases {
		if got := SourceDomain(tc.in); got != tc.want {
			t.Errorf("SourceDomain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsHTTPURL(t *testing.T) {
	if !IsHTTPURL("https://example.com/a") || !IsHTTPURL("http://example.com") {
		t.Error("http(s) URLs should be accepted")
	}
	if IsHTTPURL("ftp://example.com") || IsHTTPURL("example.com/a") || IsHTTPURL("") {
		t.Error("non-http inputs should be rejected")
	}
}
