package components

import (
	"context"
	"testing"

	"github.com/alterra-community/alterra-bot/internal/commands"
)

func clickArgs() *commands.Args {
	return &commands.Args{GuildID: "guild-1", UserID: "user-1", Username: "clicker"}
}

func TestDuplicateRegistrationFails(t *testing.T) {
	r := NewRegistry()
	h := func(ctx context.Context, args *commands.Args) *commands.Result { return commands.OK("hi") }
	if err := r.Register("btn", h); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register("btn", h); err == nil {
		t.Fatal("duplicate Register must fail")
	}
}

func TestDispatchUnknownControl(t *testing.T) {
	r := NewRegistry()
	result := r.Dispatch(context.Background(), "stale_button_from_v1", clickArgs())
	if result == nil {
		t.Fatal("Dispatch must never return nil")
	}
	if result.Kind != commands.FailureUnknownControl {
		t.Errorf("kind = %q, want %q", result.Kind, commands.FailureUnknownControl)
	}
	if result.Text == "" {
		t.Error("caller must get a generic reply for a stale control")
	}
}

func TestDispatchNilHandlerResult(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("silent", func(ctx context.Context, args *commands.Args) *commands.Result { return nil }); err != nil {
		t.Fatal(err)
	}

	result := r.Dispatch(context.Background(), "silent", clickArgs())
	if result == nil || result.Kind != commands.FailureInternal {
		t.Fatalf("a silent handler must surface as an internal failure, got %+v", result)
	}
	if result.Text == expiredControlText {
		t.Error("an internal bug must not be reported as an expired control")
	}
	if result.Text != internalErrorText {
		t.Errorf("text = %q, want the generic internal-failure text", result.Text)
	}
}

func TestVerifyButton(t *testing.T) {
	r := NewRegistry()
	if err := RegisterVerify(r); err != nil {
		t.Fatal(err)
	}

	first := r.Dispatch(context.Background(), VerifyButtonID, clickArgs())
	if first.Failed() {
		t.Fatalf("verify click failed: %+v", first)
	}
	if first.Text != "Well done." {
		t.Errorf("ack = %q, want %q", first.Text, "Well done.")
	}

	// The transport may redeliver the same interaction
	second := r.Dispatch(context.Background(), VerifyButtonID, clickArgs())
	if second.Failed() || second.Text != first.Text {
		t.Errorf("duplicate delivery must be harmless, got %+v", second)
	}
}
