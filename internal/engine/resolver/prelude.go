package resolver

// preludeNames are the items every Rust module sees without a `use`: the std
// prelude types, their constructors and free functions. Sites whose first
// segment is one of these, and which the crate does not itself declare or
// import, leave the crate.
var preludeNames = map[string]bool{
	"Option": true, "Some": true, "None": true,
	"Result": true, "Ok": true, "Err": true,
	"Vec": true, "String": true, "Box": true,
	"ToString": true, "ToOwned": true, "Default": true,
	"Clone": true, "Iterator": true, "IntoIterator": true,
	"FromIterator": true, "Extend": true, "From": true, "Into": true,
	"TryFrom": true, "TryInto": true, "AsRef": true, "AsMut": true,
	"PartialEq": true, "PartialOrd": true, "Eq": true, "Ord": true,
	"Drop": true, "Fn": true, "FnMut": true, "FnOnce": true,
	"drop": true,
	// primitive types with associated functions
	"bool": true, "char": true, "str": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true,
}

// DefaultPrelude lists the prelude names in no particular order.
func DefaultPrelude() []string {
	out := make([]string, 0, len(preludeNames))
	for name := range preludeNames {
		out = append(out, name)
	}
	return out
}
