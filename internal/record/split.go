package record

import "strings"

// TextSegment is the segment prefix the disassembler puts in front of code
// addresses, e.g. ".text:main+1A".
const TextSegment = ".text:"

var accessKeywords = [...]string{"public", "private", "protected"}

// OffsetIndex returns the index of the function/offset split point of s: the
// rightmost of the last '+' and the last ':'. It returns -1 when s has no such
// separator. A separator found only at index 0 does not count.
func OffsetIndex(s string) int {
	idx := max(strings.LastIndexByte(s, '+'), strings.LastIndexByte(s, ':'))
	if idx <= 0 {
		return -1
	}
	return idx
}

// SplitAddress decomposes an address cell.
//
//	".text:main+1A"       -> ".text:", "main", "+1A"
//	"kernel32.dll:Sleep+4" -> "", "kernel32.dll:Sleep", "+4"
//	"00401000"            -> "", "", ""
//
// When the split point falls inside the ".text:" prefix itself the function is
// everything after the prefix.
func SplitAddress(addr string) (segment, function, offset string) {
	idx := OffsetIndex(addr)
	if idx < 0 {
		return "", "", ""
	}
	if len(addr) > len(TextSegment) && strings.HasPrefix(addr, TextSegment) {
		segment = TextSegment
		if idx >= len(TextSegment) {
			function = addr[len(TextSegment):idx]
		} else {
			function = addr[len(TextSegment):]
		}
	} else {
		function = addr[:idx]
	}
	return segment, function, addr[idx:]
}

// SplitInstruction separates the mnemonic (text up to the first space) from
// its operands (everything after that space).
func SplitInstruction(instr string) (mnemonic, operands string) {
	mnemonic, operands, _ = strings.Cut(instr, " ")
	return mnemonic, operands
}

// ResultFields holds the pieces recovered from a result cell.
type ResultFields struct {
	Label   string // first token, the raw (possibly mangled) label
	Comment string // tokens before the boundary token, each space-prefixed
	Target  string // demangled signature starting at the boundary token
	Clean   string // Comment + " " + Target, before return truncation
	Module  string // module prefix stripped from Target
}

// SplitResult recovers the call target from a result cell.
//
// The cell is tokenised on single spaces. The first token is the raw label L.
// The first later token that is longer than L and starts with L is the
// boundary: its remainder after L starts Target and every following token is
// appended to Target. Tokens before the boundary form Comment. For return
// mnemonics Target is cut at its offset split point. Finally a "module:"
// prefix without spaces, other than an access keyword, moves into Module.
func SplitResult(result, mnemonic string) ResultFields {
	var f ResultFields
	tokens := tokenize(result)
	if len(tokens) > 0 {
		f.Label = tokens[0]
		tokens = tokens[1:]
	}

	var comment, target strings.Builder
	found := false
	for _, tok := range tokens {
		switch {
		case found:
			target.WriteByte(' ')
			target.WriteString(tok)
		case len(tok) > len(f.Label) && strings.HasPrefix(tok, f.Label):
			found = true
			target.WriteString(tok[len(f.Label):])
		default:
			comment.WriteByte(' ')
			comment.WriteString(tok)
		}
	}
	f.Comment = comment.String()
	f.Target = target.String()
	f.Clean = f.Comment + " " + f.Target

	if IsReturn(mnemonic) {
		if idx := OffsetIndex(f.Target); idx >= 0 {
			f.Target = f.Target[:idx]
		}
	}
	f.Module, f.Target = splitModule(f.Target)
	return f
}

// tokenize splits s on single spaces the way a delimiter-driven line reader
// does: consecutive spaces produce empty tokens, a trailing space does not.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	tokens := strings.Split(s, " ")
	if strings.HasSuffix(s, " ") {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func splitModule(target string) (module, rest string) {
	before, after, ok := strings.Cut(target, ":")
	if !ok || strings.Contains(before, " ") || isAccessKeyword(before) {
		return "", target
	}
	return before, after
}

func isAccessKeyword(s string) bool {
	for _, kw := range accessKeywords {
		if s == kw {
			return true
		}
	}
	return false
}

// FunctionNameOnly extracts the bare function name from a signature: the
// rightmost word before the first '('. Strings without '(' are returned as is.
//
//	"void __cdecl ns::Foo(int)" -> "ns::Foo"
func FunctionNameOnly(sig string) string {
	before, _, ok := strings.Cut(sig, "(")
	if !ok {
		return sig
	}
	if i := strings.LastIndexByte(before, ' '); i >= 0 {
		return before[i+1:]
	}
	return before
}

// WithoutAccessKeyword strips a leading "public: ", "protected: " or
// "private: " from s. Nothing is stripped when s is just the keyword.
func WithoutAccessKeyword(s string) string {
	for _, kw := range accessKeywords {
		prefix := kw + ": "
		if len(s) > len(prefix) && strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

const (
	callPrefix       = "call    "
	callImportPrefix = "call    cs:__declspec(dllimport) "
)

// CalleeFromInstruction returns the callee text of a "call" instruction as
// printed by the disassembler, dropping the import thunk decoration. Any
// other instruction is returned unchanged.
func CalleeFromInstruction(instr string, stripAccess bool) string {
	if len(instr) <= len(callPrefix) || !strings.HasPrefix(instr, callPrefix) {
		return instr
	}
	var out string
	if len(instr) > len(callImportPrefix) && strings.HasPrefix(instr, callImportPrefix) {
		out = instr[len(callImportPrefix):]
	} else {
		out = instr[len(callPrefix):]
	}
	if stripAccess {
		return WithoutAccessKeyword(out)
	}
	return out
}
