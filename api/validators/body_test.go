package validators

import (
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

type samplePayload struct {
	Message  string `json:"message" validate:"required,max=10"`
	Quantity int64  `json:"quantity" validate:"omitempty,min=1"`
}

func decode(t *testing.T, body string) (*samplePayload, error) {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	return &payload, err
}

func TestDecodeJSONBodyValid(t *testing.T) {
	payload, err := decode(t, `{"message":"hello","quantity":2}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Message != "hello" || payload.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	_, err := decode(t, `{"message":"hi","bogus":true}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyValidationDetailsUseJSONNames(t *testing.T) {
	_, err := decode(t, `{"quantity":0}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %+v", typed.Details())
	}
	if _, ok := details["message"]; !ok {
		t.Fatalf("expected json field name in details, got %v", details)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  padded  ", 0); got != "padded" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("over the limit", 4); got != "over" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	// "héllo": the accented rune spans bytes 1-2, so a cap of 2 bytes must
	// back up rather than emit half of it.
	if got := SanitizeString("héllo", 2); got != "h" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("héllo", 3); got != "hé" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("日本語のクエリ", 7); !utf8.ValidString(got) || got != "日本" {
		t.Fatalf("unexpected %q", got)
	}
}
