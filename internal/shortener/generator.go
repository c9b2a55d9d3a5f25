package shortener

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const (
	// CodeAlphabet is the 62-symbol alphabet generated codes are drawn from.
	CodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultCodeLength = 6
)

// CodeGenerator returns a random candidate code. Candidates carry no uniqueness guarantee.
type CodeGenerator func() string

// NewCodeGenerator returns a generator drawing length symbols uniformly from CodeAlphabet.
func NewCodeGenerator(length int) (CodeGenerator, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	gen, err := nanoid.CustomASCII(CodeAlphabet, length)
	if err != nil {
		return nil, fmt.Errorf("create code generator: %w", err)
	}

	return CodeGenerator(gen), nil
}
