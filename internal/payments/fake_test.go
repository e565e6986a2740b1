package payments

import (
	"context"
	"testing"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

func TestFakeProviderAutoSucceeds(t *testing.T) {
	p := NewFakeProvider()

	intent, err := p.CreateIntent(context.Background(), 2675, "USD")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Reference == "" || intent.ClientSecret == "" {
		t.Fatalf("incomplete intent %+v", intent)
	}

	conf, err := p.RetrieveStatus(context.Background(), intent.Reference)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if conf.Status != StatusSucceeded {
		t.Fatalf("expected auto-succeeded intent, got %s", conf.Status)
	}
	if conf.Amount != 2675 || conf.Currency != "usd" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
}

func TestFakeProviderManualConfirm(t *testing.T) {
	p := NewFakeProvider()
	p.AutoSucceed = false

	intent, err := p.CreateIntent(context.Background(), 1000, "usd")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	conf, err := p.RetrieveStatus(context.Background(), intent.Reference)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if conf.Status != StatusRequiresAction {
		t.Fatalf("expected requires_action before confirm, got %s", conf.Status)
	}

	if err := p.Confirm(intent.Reference); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	conf, err = p.RetrieveStatus(context.Background(), intent.Reference)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if conf.Status != StatusSucceeded {
		t.Fatalf("expected succeeded after confirm, got %s", conf.Status)
	}
}

func TestFakeProviderValidatesInput(t *testing.T) {
	p := NewFakeProvider()

	if _, err := p.CreateIntent(context.Background(), 0, "usd"); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := p.CreateIntent(context.Background(), 100, ""); err == nil {
		t.Fatal("expected error for missing currency")
	}

	_, err := p.RetrieveStatus(context.Background(), "pi_missing")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
