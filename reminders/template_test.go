package reminders

import (
	"errors"
	"testing"
)

func TestRender_Substitution(t *testing.T) {
	fields := map[string]string{
		"customer_name":  "Acme",
		"amount_due":     "500",
		"invoice_number": "INV-1",
	}

	got, err := Render("Dear {{ customer_name }}, {{ amount_due }} is due.", fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Dear Acme, 500 is due."; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRender_WhitespaceInsignificant(t *testing.T) {
	fields := map[string]string{"name": "x"}
	for _, tmpl := range []string{"{{name}}", "{{ name }}", "{{  name  }}", "{{name }}"} {
		got, err := Render(tmpl, fields)
		if err != nil {
			t.Fatalf("template %q: unexpected error: %v", tmpl, err)
		}
		if got != "x" {
			t.Fatalf("template %q: got %q, want %q", tmpl, got, "x")
		}
	}
}

func TestRender_UnknownPlaceholder(t *testing.T) {
	fields := map[string]string{"customer_name": "Acme"}

	got, err := Render("Hi {{ customer_name }}, invoice {{ invoice_number }} is due.", fields)
	if err == nil {
		t.Fatal("expected error for unknown placeholder")
	}
	if got != "" {
		t.Fatalf("expected no partial output, got %q", got)
	}

	var unknown *UnknownPlaceholderError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownPlaceholderError, got %T", err)
	}
	if unknown.Name != "invoice_number" {
		t.Fatalf("got placeholder %q, want %q", unknown.Name, "invoice_number")
	}
}

func TestRender_NonPlaceholderBracesStayLiteral(t *testing.T) {
	fields := map[string]string{"name": "x"}

	cases := map[string]string{
		"literal only":            "literal only",
		"{{ not an identifier }}": "{{ not an identifier }}",
		"unclosed {{ name":        "unclosed {{ name",
		"{{}} and {{ name }}":     "{{}} and x",
	}
	for tmpl, want := range cases {
		got, err := Render(tmpl, fields)
		if err != nil {
			t.Fatalf("template %q: unexpected error: %v", tmpl, err)
		}
		if got != want {
			t.Fatalf("template %q: got %q, want %q", tmpl, got, want)
		}
	}
}

func TestRender_Deterministic(t *testing.T) {
	fields := map[string]string{"invoice_number": "INV-9"}
	first, err := Render("Invoice {{ invoice_number }} overdue", fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Render("Invoice {{ invoice_number }} overdue", fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("rendering is not deterministic: %q vs %q", first, second)
	}
}
