package game

import (
	"math/rand"
	"sync"
)

// Room codes double as human-facing join codes, so ambiguous glyphs
// (I, O, 0, 1) are excluded from the alphabet.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 4
)

// CodeGen hands out unique room codes and reclaims disposed ones.
type CodeGen struct {
	used   map[string]struct{}
	locker sync.Mutex
}

func NewCodeGen() *CodeGen {
	return &CodeGen{used: map[string]struct{}{}}
}

func (g *CodeGen) Generate() string {
	g.locker.Lock()
	defer g.locker.Unlock()

	for {
		code := randomCode()
		if _, taken := g.used[code]; taken {
			continue
		}
		g.used[code] = struct{}{}
		return code
	}
}

func (g *CodeGen) Dispose(code string) {
	g.locker.Lock()
	defer g.locker.Unlock()
	delete(g.used, code)
}

func randomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
