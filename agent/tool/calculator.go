package tool

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

// Accepts digits, whitespace, decimal points, operators, and parentheses.
var calcExpressionPattern = regexp.MustCompile(`^[\d\s\+\-\*/%\^\(\)\.]+$`)

// CalculatorOutput carries the result as a decimal string: currency sums must
// be exact, so no float64 ever enters or leaves this tool.
type CalculatorOutput struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

func executeCalculator(args map[string]any) (contractx.ToolResult, error) {
	rawExpression, ok := args["expression"]
	if !ok {
		return contractx.ToolResult{
			Tool:  ToolCalculator,
			Error: "expression is required",
		}, nil
	}

	expression, ok := rawExpression.(string)
	if !ok {
		return contractx.ToolResult{
			Tool:  ToolCalculator,
			Error: "expression must be a string",
		}, nil
	}

	if err := validateExpression(expression); err != nil {
		return contractx.ToolResult{
			Tool:  ToolCalculator,
			Error: err.Error(),
		}, nil
	}

	result, err := evaluateExpression(expression)
	if err != nil {
		return contractx.ToolResult{
			Tool:  ToolCalculator,
			Error: err.Error(),
		}, nil
	}

	return contractx.ToolResult{
		Tool: ToolCalculator,
		Result: CalculatorOutput{
			Expression: expression,
			Result:     result.String(),
		},
	}, nil
}

func validateExpression(expression string) error {
	if expression == "" {
		return fmt.Errorf("expression is empty")
	}
	if !calcExpressionPattern.MatchString(expression) {
		return fmt.Errorf("expression contains invalid characters")
	}

	balance := 0
	for _, ch := range expression {
		switch ch {
		case '(':
			balance++
		case ')':
			balance--
			if balance < 0 {
				return fmt.Errorf("expression has unbalanced parentheses")
			}
		}
	}
	if balance != 0 {
		return fmt.Errorf("expression has unbalanced parentheses")
	}
	return nil
}

func evaluateExpression(expression string) (decimal.Decimal, error) {
	p := &calcParser{input: expression}
	value, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpaces()
	if p.hasNext() {
		return decimal.Zero, fmt.Errorf("unexpected token at position %d", p.pos)
	}
	return value, nil
}

type calcParser struct {
	input string
	pos   int
}

func (p *calcParser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('+'):
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Add(right)
		case p.match('-'):
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

func (p *calcParser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parsePower()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('*'):
			right, err := p.parsePower()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Mul(right)
		case p.match('/'):
			right, err := p.parsePower()
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() {
				return decimal.Zero, fmt.Errorf("division by zero")
			}
			left = left.Div(right)
		case p.match('%'):
			right, err := p.parsePower()
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() {
				return decimal.Zero, fmt.Errorf("modulo by zero")
			}
			left = left.Mod(right)
		default:
			return left, nil
		}
	}
}

func (p *calcParser) parsePower() (decimal.Decimal, error) {
	left, err := p.parseUnary()
	if err != nil {
		return decimal.Zero, err
	}

	p.skipSpaces()
	if p.match('^') {
		right, err := p.parsePower()
		if err != nil {
			return decimal.Zero, err
		}
		if !right.IsInteger() {
			return decimal.Zero, fmt.Errorf("exponent must be an integer")
		}
		return left.Pow(right), nil
	}
	return left, nil
}

func (p *calcParser) parseUnary() (decimal.Decimal, error) {
	p.skipSpaces()
	if p.match('+') {
		return p.parseUnary()
	}
	if p.match('-') {
		value, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		return value.Neg(), nil
	}
	return p.parsePrimary()
}

func (p *calcParser) parsePrimary() (decimal.Decimal, error) {
	p.skipSpaces()
	if p.match('(') {
		value, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpaces()
		if !p.match(')') {
			return decimal.Zero, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		return value, nil
	}
	return p.parseNumber()
}

func (p *calcParser) parseNumber() (decimal.Decimal, error) {
	p.skipSpaces()
	start := p.pos
	hasDigit := false
	hasDot := false

	for p.hasNext() {
		ch := p.peek()
		switch {
		case ch >= '0' && ch <= '9':
			hasDigit = true
			p.pos++
		case ch == '.':
			if hasDot {
				return decimal.Zero, fmt.Errorf("invalid number format at position %d", p.pos)
			}
			hasDot = true
			p.pos++
		default:
			goto done
		}
	}

done:
	if !hasDigit {
		return decimal.Zero, fmt.Errorf("expected number at position %d", start)
	}

	raw := p.input[start:p.pos]
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return value, nil
}

func (p *calcParser) skipSpaces() {
	for p.hasNext() && p.peek() == ' ' {
		p.pos++
	}
}

func (p *calcParser) hasNext() bool {
	return p.pos < len(p.input)
}

func (p *calcParser) peek() byte {
	return p.input[p.pos]
}

func (p *calcParser) match(expected byte) bool {
	if p.hasNext() && p.peek() == expected {
		p.pos++
		return true
	}
	return false
}
