package condition

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates every way a compile can fail. The numeric values are
// stable so tools can persist them.
type ErrorCode int

const (
	None ErrorCode = iota
	UnknownIdentifier
	MissingLeftParenthesis
	MissingRightParenthesis
	UnexpectedChar
	OutOfMemory
	MissingBinaryOperand
	NotEnoughParameters
	IncorrectTypeArgs
	NoReturnValue
)

var codeNames = [...]string{
	None:                    "NONE",
	UnknownIdentifier:       "UNKNOWN_IDENTIFIER",
	MissingLeftParenthesis:  "MISSING_LEFT_PARENTHESIS",
	MissingRightParenthesis: "MISSING_RIGHT_PARENTHESIS",
	UnexpectedChar:          "UNEXPECTED_CHAR",
	OutOfMemory:             "OUT_OF_MEMORY",
	MissingBinaryOperand:    "MISSING_BINARY_OPERAND",
	NotEnoughParameters:     "NOT_ENOUGH_PARAMETERS",
	IncorrectTypeArgs:       "INCORRECT_TYPE_ARGS",
	NoReturnValue:           "NO_RETURN_VALUE",
}

var codeMessages = [...]string{
	None:                    "No error",
	UnknownIdentifier:       "Unknown identifier",
	MissingLeftParenthesis:  "Missing left parenthesis",
	MissingRightParenthesis: "Missing right parenthesis",
	UnexpectedChar:          "Unexpected character",
	OutOfMemory:             "Out of memory",
	MissingBinaryOperand:    "Missing binary operand",
	NotEnoughParameters:     "Not enough parameters",
	IncorrectTypeArgs:       "Incorrect type of arguments",
	NoReturnValue:           "No return value",
}

// String returns the enumerator name, e.g. UNKNOWN_IDENTIFIER.
func (c ErrorCode) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
	return codeNames[c]
}

// Message returns the human readable text shown by authoring tools.
func (c ErrorCode) Message() string {
	if c < 0 || int(c) >= len(codeMessages) {
		return "Unknown error"
	}
	return codeMessages[c]
}

// Error is returned by Compile. Pos is the byte offset in the expression
// where the problem was detected.
type Error struct {
	Code  ErrorCode
	Pos   int
	Token string
}

func (e *Error) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("condition: %s at %d near %q", e.Code.Message(), e.Pos, e.Token)
	}
	return fmt.Sprintf("condition: %s at %d", e.Code.Message(), e.Pos)
}

// CodeOf extracts the ErrorCode from an error returned by Compile.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return None
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return OutOfMemory
}

func fail(code ErrorCode, tok token) *Error {
	return &Error{Code: code, Pos: tok.pos, Token: tok.lit}
}
