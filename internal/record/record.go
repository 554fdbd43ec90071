// Package record parses the rows of an instruction trace export.
//
// A row has four tab-separated cells: thread, address, instruction and
// result. The result cell is free-form disassembler annotation; the helpers
// in split.go recover the callee label, module and clean signature from it.
// All splitting rules are pure functions so they can be tested with literal
// disassembler strings.
package record

import "strings"

// Mnemonics the call tree reconstruction cares about.
const (
	MnemonicCall   = "call"
	MnemonicReturn = "retn"
	MnemonicBnd    = "bnd" // "bnd retn" under MPX
)

// ErrorText fills every raw field of the synthetic marker record.
const ErrorText = "error"

// Record is one executed instruction.
type Record struct {
	Thread string

	Address  string
	Segment  string
	Function string // frame matching key
	Offset   string

	Instruction string
	Mnemonic    string
	Operands    string

	Result  string
	Clean   string
	Label   string
	Module  string
	Comment string
	Target  string // canonical callee/target label
}

// New builds a record from its four raw cells and splits every field.
func New(thread, address, instruction, result string) Record {
	r := Record{
		Thread:      thread,
		Address:     address,
		Instruction: instruction,
		Result:      result,
	}
	r.Segment, r.Function, r.Offset = SplitAddress(address)
	r.Mnemonic, r.Operands = SplitInstruction(instruction)
	r.applyResult(SplitResult(result, r.Mnemonic))
	return r
}

func (r *Record) applyResult(f ResultFields) {
	r.Label = f.Label
	r.Comment = f.Comment
	r.Target = f.Target
	r.Clean = f.Clean
	r.Module = f.Module
}

// ErrorMarker returns the synthetic record appended under a return that has
// no open frame to close.
func ErrorMarker() Record {
	return New(ErrorText, ErrorText, ErrorText, ErrorText)
}

// ParseLine splits a raw row into a record. It reports false when the row has
// fewer than four cells; readers treat that as the end of the input.
//
// Cells one to three must each be terminated by a tab. The fourth cell runs
// to the next tab (further cells are ignored) or to the end of the line, in
// which case it must not be empty.
func ParseLine(line string) (Record, bool) {
	cells, ok := splitCells(line)
	if !ok {
		return Record{}, false
	}
	return New(cells[0], cells[1], cells[2], cells[3]), true
}

func splitCells(line string) ([4]string, bool) {
	line = strings.TrimSuffix(line, "\r")
	var cells [4]string
	rest := line
	for i := range 3 {
		cell, after, ok := strings.Cut(rest, "\t")
		if !ok {
			return cells, false
		}
		cells[i] = cell
		rest = after
	}
	last, _, terminated := strings.Cut(rest, "\t")
	if !terminated && last == "" {
		return cells, false
	}
	cells[3] = last
	return cells, true
}

// IsCall reports whether mnemonic opens a call frame.
func IsCall(mnemonic string) bool {
	return mnemonic == MnemonicCall
}

// IsReturn reports whether mnemonic belongs to the return family.
func IsReturn(mnemonic string) bool {
	return mnemonic == MnemonicReturn || mnemonic == MnemonicBnd
}

// IsCall reports whether the record is a call instruction.
func (r *Record) IsCall() bool { return IsCall(r.Mnemonic) }

// IsReturn reports whether the record is a return instruction.
func (r *Record) IsReturn() bool { return IsReturn(r.Mnemonic) }

// Callee returns the callee label printed by the disassembler for call
// instructions, or the raw instruction text otherwise.
func (r *Record) Callee() string {
	return CalleeFromInstruction(r.Instruction, true)
}

// Cells returns the four raw cells in file order.
func (r *Record) Cells() [4]string {
	return [4]string{r.Thread, r.Address, r.Instruction, r.Result}
}
