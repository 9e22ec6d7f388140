package parser

import (
	"fmt"
	"strconv"

	"github.com/nexusdb/nexus/pkg/nexuserr"
)

func parseErrorAt(pos int, format string, args ...interface{}) error {
	return nexuserr.ParseError(pos, fmt.Sprintf(format, args...))
}

// Parser holds a token cursor with one token of lookahead over a flat
// token stream; there is no backtracking beyond that.
type Parser struct {
	toks []Token
	pos  int
}

// Parse tokenizes and parses src into a clause-ordered Query.
func Parse(src string) (*Query, error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, parseErrorAt(p.cur().Pos, "unexpected token %q after query", p.cur().Text)
	}
	return q, nil
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool { return p.cur().Kind == TokEOF }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) isKeyword(kw string) bool {
	return p.cur().Kind == TokKeyword && p.cur().Text == kw
}

func (p *Parser) isPunct(s string) bool {
	return p.cur().Kind == TokPunct && p.cur().Text == s
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return parseErrorAt(p.cur().Pos, "expected %s, got %q", kw, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return parseErrorAt(p.cur().Pos, "expected %q, got %q", s, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) expectIdent() (string, error) {
	if p.cur().Kind != TokIdent {
		return "", parseErrorAt(p.cur().Pos, "expected identifier, got %q", p.cur().Text)
	}
	t := p.advance()
	return t.Text, nil
}

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}
	for !p.atEOF() {
		c, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, c)
		if p.isPunct(";") {
			p.advance()
		}
	}
	return q, nil
}

func (p *Parser) parseClause() (Clause, error) {
	switch {
	case p.isKeyword("OPTIONAL"):
		p.advance()
		if err := p.expectKeyword("MATCH"); err != nil {
			return nil, err
		}
		return p.parseMatch(true)
	case p.isKeyword("MATCH"):
		p.advance()
		return p.parseMatch(false)
	case p.isKeyword("CREATE"):
		p.advance()
		pattern, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		return CreateClause{Pattern: pattern}, nil
	case p.isKeyword("MERGE"):
		p.advance()
		pattern, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		return MergeClause{Pattern: pattern}, nil
	case p.isKeyword("SET"):
		p.advance()
		return p.parseSet()
	case p.isKeyword("DELETE"):
		p.advance()
		return p.parseDelete(false)
	case p.isKeyword("DETACH"):
		p.advance()
		if err := p.expectKeyword("DELETE"); err != nil {
			return nil, err
		}
		return p.parseDelete(true)
	case p.isKeyword("UNWIND"):
		p.advance()
		return p.parseUnwind()
	case p.isKeyword("WITH"):
		p.advance()
		return p.parseWith()
	case p.isKeyword("RETURN"):
		p.advance()
		return p.parseReturn()
	default:
		return nil, parseErrorAt(p.cur().Pos, "expected a clause keyword, got %q", p.cur().Text)
	}
}

func (p *Parser) parseMatch(optional bool) (Clause, error) {
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	var where Expr
	if p.isKeyword("WHERE") {
		p.advance()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return MatchClause{Optional: optional, Pattern: pattern, Where: where}, nil
}

// parsePattern parses one comma-separated list of paths, flattened into a
// single PatternElement slice (node, rel, node, rel, node, ...).
func (p *Parser) parsePattern() ([]PatternElement, error) {
	var out []PatternElement
	for {
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		out = append(out, path...)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parsePath() ([]PatternElement, error) {
	var out []PatternElement
	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	out = append(out, PatternElement{Node: node})
	for p.cur().Kind == TokDash || p.cur().Kind == TokArrowL {
		rel, err := p.parseRelPattern()
		if err != nil {
			return nil, err
		}
		nextNode, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		out = append(out, PatternElement{Rel: rel}, PatternElement{Node: nextNode})
	}
	return out, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	n := &NodePattern{Props: map[string]Expr{}}
	if p.cur().Kind == TokIdent {
		n.Var = p.advance().Text
	}
	for p.isPunct(":") {
		p.advance()
		label, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		n.Labels = append(n.Labels, label)
	}
	if p.isPunct("{") {
		props, err := p.parseMapBody()
		if err != nil {
			return nil, err
		}
		n.Props = props
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseRelPattern() (*RelPattern, error) {
	r := &RelPattern{Props: map[string]Expr{}, Dir: DirRight}
	leftArrow := false
	if p.cur().Kind == TokArrowL {
		leftArrow = true
		p.advance()
	} else {
		if err := p.expectDash(); err != nil {
			return nil, err
		}
	}
	if p.isPunct("[") {
		p.advance()
		if p.cur().Kind == TokIdent {
			r.Var = p.advance().Text
		}
		for p.isPunct(":") {
			p.advance()
			typ, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			r.Types = append(r.Types, typ)
			for p.isPunct("|") {
				p.advance()
				typ, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				r.Types = append(r.Types, typ)
			}
		}
		if p.isPunct("{") {
			props, err := p.parseMapBody()
			if err != nil {
				return nil, err
			}
			r.Props = props
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
	}
	rightArrow := false
	if p.cur().Kind == TokArrowR {
		rightArrow = true
		p.advance()
	} else {
		if err := p.expectDash(); err != nil {
			return nil, err
		}
	}
	switch {
	case leftArrow && !rightArrow:
		r.Dir = DirLeft
	case rightArrow && !leftArrow:
		r.Dir = DirRight
	default:
		r.Dir = DirNone
	}
	return r, nil
}

func (p *Parser) expectDash() error {
	if p.cur().Kind != TokDash {
		return parseErrorAt(p.cur().Pos, "expected '-' in relationship pattern, got %q", p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) parseMapBody() (map[string]Expr, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	m := map[string]Expr{}
	for !p.isPunct("}") {
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m[key] = val
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Parser) parseSet() (Clause, error) {
	var items []SetItem
	for {
		v, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("."); err != nil {
			return nil, err
		}
		prop, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, SetItem{Var: v, Prop: prop, Expr: val})
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return SetClause{Items: items}, nil
}

func (p *Parser) parseDelete(detach bool) (Clause, error) {
	var vars []string
	for {
		v, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return DeleteClause{Vars: vars, Detach: detach}, nil
}

func (p *Parser) parseUnwind() (Clause, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	as, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return UnwindClause{Expr: e, As: as}, nil
}

func (p *Parser) parseWith() (Clause, error) {
	distinct := false
	if p.isKeyword("DISTINCT") {
		distinct = true
		p.advance()
	}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	var where Expr
	if p.isKeyword("WHERE") {
		p.advance()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return WithClause{Items: items, Distinct: distinct, Where: where}, nil
}

func (p *Parser) parseReturn() (Clause, error) {
	rc := ReturnClause{}
	if p.isKeyword("DISTINCT") {
		rc.Distinct = true
		p.advance()
	}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	rc.Items = items

	if p.isKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			desc := false
			if p.isKeyword("DESC") {
				desc = true
				p.advance()
			} else if p.isKeyword("ASC") {
				p.advance()
			}
			rc.OrderBy = append(rc.OrderBy, OrderItem{Expr: e, Desc: desc})
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if p.isKeyword("SKIP") {
		p.advance()
		n, err := p.expectIntLiteral()
		if err != nil {
			return nil, err
		}
		rc.Skip = &n
	}
	if p.isKeyword("LIMIT") {
		p.advance()
		n, err := p.expectIntLiteral()
		if err != nil {
			return nil, err
		}
		rc.Limit = &n
	}
	return rc, nil
}

func (p *Parser) expectIntLiteral() (int64, error) {
	if p.cur().Kind != TokInt {
		return 0, parseErrorAt(p.cur().Pos, "expected integer, got %q", p.cur().Text)
	}
	t := p.advance()
	n, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil {
		return 0, parseErrorAt(t.Pos, "invalid integer %q", t.Text)
	}
	return n, nil
}

func (p *Parser) parseReturnItems() ([]ReturnItem, error) {
	var items []ReturnItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		alias := ""
		if p.isKeyword("AS") {
			p.advance()
			alias, err = p.expectIdent()
			if err != nil {
				return nil, err
			}
		}
		items = append(items, ReturnItem{Expr: e, Alias: alias})
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}
