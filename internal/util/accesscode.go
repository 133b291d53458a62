package util

import (
	"math/rand"
	"strings"
)

// 去掉了易混淆的 0/O/1/I
const accessCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// AccessCodeGenerator 生成考试准入码。随机源通过构造注入，测试时可传入固定种子。
type AccessCodeGenerator struct {
	rng *rand.Rand
}

func NewAccessCodeGenerator(src rand.Source) *AccessCodeGenerator {
	return &AccessCodeGenerator{rng: rand.New(src)}
}

func (g *AccessCodeGenerator) Generate(length int) string {
	if length <= 0 {
		length = 8
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(accessCodeAlphabet[g.rng.Intn(len(accessCodeAlphabet))])
	}
	return b.String()
}
