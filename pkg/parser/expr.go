package parser

import "strconv"

// Expression grammar, lowest to highest precedence:
//
//	or -> xor -> and -> not -> comparison/IN -> additive -> multiplicative -> unary -> primary

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.advance()
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "or", L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseXor() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("XOR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "xor", L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "and", L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.isKeyword("NOT") {
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]string{
	"=": "=", "<>": "<>", "<": "<", "<=": "<=", ">": ">", ">=": ">=",
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("IN") {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: "in", L: left, R: right}, nil
	}
	if p.isKeyword("IS") {
		p.advance()
		neg := false
		if p.isKeyword("NOT") {
			neg = true
			p.advance()
		}
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		if neg {
			return UnaryExpr{Op: "not", X: BinaryExpr{Op: "isnull", L: left}}, nil
		}
		return BinaryExpr{Op: "isnull", L: left}, nil
	}
	if p.cur().Kind == TokPunct {
		if op, ok := comparisonOps[p.cur().Text]; ok {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return BinaryExpr{Op: op, L: left, R: right}, nil
		}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur().Kind == TokDash {
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = BinaryExpr{Op: "-", L: left, R: right}
			continue
		}
		if p.isPunct("+") {
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = BinaryExpr{Op: "+", L: left, R: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") {
		op := p.advance().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.cur().Kind == TokDash {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "neg", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch {
	case tok.Kind == TokInt:
		p.advance()
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, parseErrorAt(tok.Pos, "invalid integer %q", tok.Text)
		}
		return Literal{Value: n}, nil
	case tok.Kind == TokFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, parseErrorAt(tok.Pos, "invalid float %q", tok.Text)
		}
		return Literal{Value: f}, nil
	case tok.Kind == TokString:
		p.advance()
		return Literal{Value: tok.Text}, nil
	case tok.Kind == TokParam:
		p.advance()
		return Param{Name: tok.Text}, nil
	case p.isKeyword("TRUE"):
		p.advance()
		return Literal{Value: true}, nil
	case p.isKeyword("FALSE"):
		p.advance()
		return Literal{Value: false}, nil
	case p.isKeyword("NULL"):
		p.advance()
		return Literal{Value: nil}, nil
	case p.isPunct("("):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.isPunct("["):
		p.advance()
		var items []Expr
		for !p.isPunct("]") {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, e)
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return ListLiteral{Items: items}, nil
	case p.isPunct("{"):
		m, err := p.parseMapBody()
		if err != nil {
			return nil, err
		}
		return MapLiteral{Entries: m}, nil
	case tok.Kind == TokIdent:
		return p.parseIdentExpr()
	default:
		return nil, parseErrorAt(tok.Pos, "unexpected token %q in expression", tok.Text)
	}
}

var aggregateNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true, "collect": true,
}

func (p *Parser) parseIdentExpr() (Expr, error) {
	name := p.advance().Text

	if p.isPunct("(") {
		p.advance()
		lower := toLower(name)
		if aggregateNames[lower] {
			star := false
			distinct := false
			if p.isKeyword("DISTINCT") {
				distinct = true
				p.advance()
			}
			var arg Expr
			if p.isPunct("*") {
				star = true
				p.advance()
			} else {
				var err error
				arg, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return AggregateCall{Func: lower, Arg: arg, Distinct: distinct, Star: star}, nil
		}
		var args []Expr
		for !p.isPunct(")") {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return FunctionCall{Name: lower, Args: args}, nil
	}

	if p.isPunct(".") {
		p.advance()
		prop, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return PropertyAccess{Var: name, Prop: prop}, nil
	}

	return Variable{Name: name}, nil
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
