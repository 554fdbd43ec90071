package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Stack reconstruction
	StackInfo      Code = 1000
	StackRepair    Code = 1001
	UnclosedFrames Code = 1002

	// Input
	InputInfo      Code = 2000
	InputTruncated Code = 2001
	InputReadError Code = 2002
)

var codeDescription = map[Code]string{
	UnknownCode:    "Unknown error",
	StackInfo:      "Stack information",
	StackRepair:    "Return closed more than one frame",
	UnclosedFrames: "Frames left open at end of trace",
	InputInfo:      "Input information",
	InputTruncated: "Row with fewer than four cells ended the input",
	InputReadError: "Trace could not be read completely",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("STK%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("INP%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
