package util

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessCodeGenerate(t *testing.T) {
	g := NewAccessCodeGenerator(rand.NewSource(42))

	code := g.Generate(8)
	assert.Len(t, code, 8)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(accessCodeAlphabet, c), "unexpected character %q", c)
	}

	// 易混淆字符不出现
	long := g.Generate(2048)
	for _, c := range "0O1I" {
		assert.NotContains(t, long, string(c))
	}
}

func TestAccessCodeGenerateDefaultLength(t *testing.T) {
	g := NewAccessCodeGenerator(rand.NewSource(1))
	assert.Len(t, g.Generate(0), 8)
	assert.Len(t, g.Generate(-3), 8)
}

func TestAccessCodeDeterministicWithSameSeed(t *testing.T) {
	a := NewAccessCodeGenerator(rand.NewSource(7)).Generate(12)
	b := NewAccessCodeGenerator(rand.NewSource(7)).Generate(12)
	assert.Equal(t, a, b)
}
