package fuzz

import (
	"github.com/gaultier/microkt/internal/lexer"
)

// TokenEdgeCoverage computes a simple input-derived coverage: pairs of
// adjacent token types. Each edge is encoded as (prev<<32)|curr. Lexing
// stops at the first error, whose edge is included.
func TokenEdgeCoverage(input string) []uint64 {
	lx := lexer.NewWithFilename(input, "coverage.kts")
	prev := uint64(lx.NextToken().Type)
	edges := make([]uint64, 0, 64)
	for {
		nt := lx.NextToken()
		curr := uint64(nt.Type)
		edges = append(edges, (prev<<32)|curr)
		if nt.Type == lexer.TokenEOF || nt.Type == lexer.TokenError {
			return edges
		}
		prev = curr
	}
}

// Coverage is the set of token edges seen so far
type Coverage map[uint64]struct{}

// Add merges edges and reports how many were new.
func (c Coverage) Add(edges []uint64) int {
	added := 0
	for _, e := range edges {
		if _, ok := c[e]; !ok {
			c[e] = struct{}{}
			added++
		}
	}
	return added
}
