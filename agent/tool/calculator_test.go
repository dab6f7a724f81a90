package tool

import (
	"strings"
	"testing"
)

func calc(t *testing.T, expression string) CalculatorOutput {
	t.Helper()
	res, err := executeCalculator(map[string]any{"expression": expression})
	if err != nil {
		t.Fatalf("calculator transport error: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("calculator error: %s", res.Error)
	}
	out, ok := res.Result.(CalculatorOutput)
	if !ok {
		t.Fatalf("unexpected result type %T", res.Result)
	}
	return out
}

func TestCalculatorExactDecimalAddition(t *testing.T) {
	t.Parallel()

	// float64 would produce 300.29999999999995 here
	out := calc(t, "100.10 + 200.20")
	if out.Result != "300.3" {
		t.Fatalf("result = %s, want 300.3", out.Result)
	}
}

func TestCalculatorInvoiceTotals(t *testing.T) {
	t.Parallel()

	out := calc(t, "1234.56 + 2778.90")
	if out.Result != "4013.46" {
		t.Fatalf("result = %s, want 4013.46", out.Result)
	}
}

func TestCalculatorPrecedenceAndParens(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"2 + 3 * 4":               "14",
		"(2 + 3) * 4":             "20",
		"(1234.56 + 2778.90) / 2": "2006.73",
		"10 % 3":                  "1",
		"2 ^ 10":                  "1024",
	}
	for expr, want := range cases {
		if got := calc(t, expr).Result; got != want {
			t.Errorf("%s = %s, want %s", expr, got, want)
		}
	}
}

func TestCalculatorRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []map[string]any{
		{},
		{"expression": 42},
		{"expression": ""},
		{"expression": "rm -rf /"},
		{"expression": "(1 + 2"},
		{"expression": "1 / 0"},
	}
	for _, args := range cases {
		res, err := executeCalculator(args)
		if err != nil {
			t.Fatalf("transport error for %v: %v", args, err)
		}
		if res.Error == "" {
			t.Errorf("expected tool error for %v", args)
		}
	}
}

func TestCalculatorErrorMentionsDivisionByZero(t *testing.T) {
	t.Parallel()

	res, err := executeCalculator(map[string]any{"expression": "5 / (3 - 3)"})
	if err != nil {
		t.Fatalf("transport error: %v", err)
	}
	if !strings.Contains(res.Error, "zero") {
		t.Fatalf("error = %q, want mention of zero", res.Error)
	}
}
