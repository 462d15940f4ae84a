package rsync

import "testing"

func TestSplitURI(t *testing.T) {
	cases := []struct {
		uri     string
		address string
		module  string
		path    string
		wantErr bool
	}{
		{"rsync://example.com/debian", "example.com:873", "debian", "", false},
		{"rsync://example.com:874/debian/pool", "example.com:874", "debian", "/pool", false},
		{"rsync://example.com/debian/pool/main/", "example.com:873", "debian", "/pool/main/", false},
		{"rsync://example.com", "", "", "", true},
		{"rsync://example.com/", "", "", "", true},
		{"example.com::debian", "", "", "", true},
	}
	for _, c := range cases {
		address, module, path, err := SplitURI(c.uri)
		if (err != nil) != c.wantErr {
			t.Errorf("%q: err = %v, wantErr %v", c.uri, err, c.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if address != c.address || module != c.module || path != c.path {
			t.Errorf("%q: got (%q, %q, %q), want (%q, %q, %q)",
				c.uri, address, module, path, c.address, c.module, c.path)
		}
	}
}

func TestTrimPrepath(t *testing.T) {
	cases := map[string]string{
		"xx":   "xx/",
		"xx/":  "xx/",
		"/xx":  "xx/",
		"/xx/": "xx/",
		"":     "",
		"/":    "",
	}
	for in, want := range cases {
		if got := TrimPrepath(in); got != want {
			t.Errorf("TrimPrepath(%q) = %q, want %q", in, got, want)
		}
	}
}
