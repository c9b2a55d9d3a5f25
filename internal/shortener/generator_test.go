package shortener_test

import (
	"strings"
	"testing"

	"github.com/serroba/shorturl-service/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeGenerator(t *testing.T) {
	t.Run("generates codes of the configured length from the alphabet", func(t *testing.T) {
		gen, err := shortener.NewCodeGenerator(shortener.DefaultCodeLength)
		require.NoError(t, err)

		for range 500 {
			code := gen()

			require.Len(t, code, shortener.DefaultCodeLength)

			for _, r := range code {
				assert.True(t, strings.ContainsRune(shortener.CodeAlphabet, r), "unexpected symbol %q", r)
			}
		}
	})

	t.Run("non-positive length falls back to the default", func(t *testing.T) {
		gen, err := shortener.NewCodeGenerator(0)
		require.NoError(t, err)

		assert.Len(t, gen(), shortener.DefaultCodeLength)
	})

	t.Run("custom length", func(t *testing.T) {
		gen, err := shortener.NewCodeGenerator(10)
		require.NoError(t, err)

		assert.Len(t, gen(), 10)
	})

	t.Run("rarely repeats", func(t *testing.T) {
		gen, err := shortener.NewCodeGenerator(shortener.DefaultCodeLength)
		require.NoError(t, err)

		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			seen[gen()] = struct{}{}
		}

		// 62^6 candidates make even a single collision in 1000 draws unlikely.
		assert.GreaterOrEqual(t, len(seen), 998)
	})
}

func TestCodeAlphabet(t *testing.T) {
	assert.Len(t, shortener.CodeAlphabet, 62)
}
