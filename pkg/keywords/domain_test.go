package keywords

import "testing"

func TestRootDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/chicago-lawyer": "example.com",
		"http://sub.foo.example.co.uk/path":      "example.co.uk",
		"example.com":                            "example.com",
		"WWW.Example.COM.":                       "example.com",
	}
	for in, want := range cases {
		got, ok := RootDomain(in)
		if !ok || got != want {
			t.Fatalf("%q: expected %q, got %q (ok=%v)", in, want, got, ok)
		}
	}
	for _, in := range []string{"", "localhost", "http://"} {
		if got, ok := RootDomain(in); ok {
			t.Fatalf("%q: expected failure, got %q", in, got)
		}
	}
}

func TestRowOnTarget(t *testing.T) {
	row := Row{ID: "k", URL: "https://blog.example.com/post"}
	if !row.OnTarget("example.com") {
		t.Fatalf("expected row to be on target")
	}
	if row.OnTarget("other.com") {
		t.Fatalf("expected row to be off target")
	}
	if (Row{ID: "k"}).OnTarget("example.com") {
		t.Fatalf("a row without url is never on target")
	}
}
