// Package notation parses the textual form of hash trees used by the
// hashalg CLI and the digest store.
//
//	empty            the Empty leaf
//	"text"           a Label
//	-42              a Raw leaf
//	[a b c]          Ordered
//	{a b c}          Unordered
//	Point[1 2]       Named("Point", 1, 2), i.e. ["Point" 1 2]
//
// Elements are separated by whitespace or commas; # starts a comment.
// algebra.Format produces text this package parses back to an Equal tree.
package notation

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/chazu/hashalg/algebra"
)

var (
	exprLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `#[^\n]*`},
		{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
		{Name: "Int", Pattern: `[-+]?\d+`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.:]*`},
		{Name: "Punct", Pattern: `[\[\]{}]`},
		{Name: "Whitespace", Pattern: `[\s,]+`},
	})
	exprParser = participle.MustBuild[expr](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.Unquote("String"),
	)
)

type expr struct {
	Empty     bool       `  @"empty"`
	Label     *string    `| @String`
	Raw       *decimal   `| @Int`
	Named     *named     `| @@`
	Ordered   *ordered   `| @@`
	Unordered *unordered `| @@`
}

// decimal is a Raw value. Integers are always base 10, so 010 is ten.
type decimal int64

func (d *decimal) Capture(values []string) error {
	v, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return err
	}
	*d = decimal(v)
	return nil
}

type named struct {
	Name     string  `@Ident "["`
	Elements []*expr `@@* "]"`
}

type ordered struct {
	Open     bool    `@"["`
	Elements []*expr `@@* "]"`
}

type unordered struct {
	Open     bool    `@"{"`
	Elements []*expr `@@* "}"`
}

// Parse reads a single hash tree from src.
func Parse(src string) (algebra.Hash, error) {
	e, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("notation: %w", err)
	}
	return e.build(), nil
}

// MustParse is Parse for trees known to be well formed, such as test
// fixtures.
func MustParse(src string) algebra.Hash {
	h, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return h
}

func (e *expr) build() algebra.Hash {
	switch {
	case e.Label != nil:
		return algebra.NewLabel(*e.Label)
	case e.Raw != nil:
		return algebra.NewRaw(int64(*e.Raw))
	case e.Named != nil:
		return algebra.Named(e.Named.Name, buildAll(e.Named.Elements)...)
	case e.Ordered != nil:
		return algebra.NewOrdered(buildAll(e.Ordered.Elements)...)
	case e.Unordered != nil:
		return algebra.NewUnordered(buildAll(e.Unordered.Elements)...)
	}
	return algebra.NewEmpty()
}

func buildAll(es []*expr) []algebra.Hash {
	out := make([]algebra.Hash, len(es))
	for i, e := range es {
		out[i] = e.build()
	}
	return out
}
