package decl

import "bytes"

// Mode is the dialect selected by a file's leading pragma, e.g. `<?hh // strict`.
type Mode int

const (
	ModeDefault Mode = iota
	ModeStrict
	ModePartial
	ModeDecl
	ModeExperimental
)

var modeNames = map[Mode]string{
	ModeDefault:      "default",
	ModeStrict:       "strict",
	ModePartial:      "partial",
	ModeDecl:         "decl",
	ModeExperimental: "experimental",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "default"
}

// DetectMode scans the prefix of text for the `<?hh // <mode>` pragma.
// An optional `#!` line may precede the open tag. Anything it does not
// recognize yields ModeDefault.
func DetectMode(text []byte) Mode {
	rest := text

	if bytes.HasPrefix(rest, []byte("#!")) {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			return ModeDefault
		}
		rest = rest[nl+1:]
	}

	if !bytes.HasPrefix(rest, []byte("<?hh")) {
		return ModeDefault
	}
	rest = rest[len("<?hh"):]

	// The tag must end at a word boundary: "<?hhvm" is not a header.
	if len(rest) > 0 && isWordByte(rest[0]) {
		return ModeDefault
	}

	rest = trimHorizontalSpace(rest)
	if !bytes.HasPrefix(rest, []byte("//")) {
		return ModeDefault
	}
	rest = trimHorizontalSpace(rest[2:])

	end := 0
	for end < len(rest) && isWordByte(rest[end]) {
		end++
	}

	switch string(rest[:end]) {
	case "strict":
		return ModeStrict
	case "partial":
		return ModePartial
	case "decl":
		return ModeDecl
	case "experimental":
		return ModeExperimental
	}
	return ModeDefault
}

func trimHorizontalSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	return b
}

func isWordByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
