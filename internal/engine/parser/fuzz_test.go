package parser

import (
	"testing"
)

func FuzzRustExtractor(f *testing.F) {
	f.Add([]byte("mod a;\nuse crate::a::{f, g as h};\nfn main() { f(); h(); }\n"))
	f.Add([]byte("pub use self::inner::*;\nmod inner { pub fn x() { super::y(); } }\nfn y() {}\n"))
	f.Add([]byte("impl S { fn m(&self) { Self::n(); } }\ntrait T { fn d() {} }\n"))
	f.Add([]byte("fn broken( {"))

	loader, err := NewCrateLoader(LoaderOptions{})
	if err != nil {
		f.Fatal(err)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		res, err := loader.ParseSource(data, "src/main.rs", SegCrate)
		if err != nil {
			return
		}
		for _, m := range res.Modules {
			if len(SplitPath(m.Path)) == 0 || SplitPath(m.Path)[0] != SegCrate {
				t.Fatalf("module path %q is not rooted at crate", m.Path)
			}
		}
	})
}
