package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-channels/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestProvisionChannelMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ProvisionChannelMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input category, got %q", rich.Category)
	}
	if rich.TextCode != core.ChannelErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.ChannelErrorBadInput, rich.TextCode)
	}
}

func TestProvisionChannelCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *ProvisionChannelCommand
	err := cmd.Execute(context.Background(), ProvisionChannelMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
