package commands

import (
	"context"
	"testing"
)

func testArgs(admin bool) *Args {
	return &Args{
		GuildID:   "guild-1",
		ChannelID: "42",
		UserID:    "user-1",
		Username:  "tester",
		IsAdmin:   admin,
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	m := NewManager()
	cmd := &Command{Name: "setup-show", Handler: func(ctx context.Context, args *Args) *Result { return OK("ok") }}
	if err := m.Register(cmd); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := m.Register(cmd); err == nil {
		t.Fatal("duplicate Register must fail")
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	m := NewManager()
	result := m.Execute(context.Background(), "does-not-exist", testArgs(true))
	if result == nil {
		t.Fatal("Execute must never return nil")
	}
	if !result.Failed() {
		t.Error("unknown command must be a failure")
	}
}

func TestExecuteDeniesNonAdmin(t *testing.T) {
	m := NewManager()
	called := false
	m.MustRegister(&Command{
		Name:      "setup-channel",
		AdminOnly: true,
		Handler: func(ctx context.Context, args *Args) *Result {
			called = true
			return OK("done")
		},
	})

	result := m.Execute(context.Background(), "setup-channel", testArgs(false))
	if result.Kind != FailurePermissionDenied {
		t.Errorf("kind = %q, want %q", result.Kind, FailurePermissionDenied)
	}
	if result.Text != permissionDeniedText {
		t.Errorf("text = %q, want the permission-denied text", result.Text)
	}
	if called {
		t.Error("handler must not run for a denied caller")
	}
}

func TestExecuteCaseInsensitive(t *testing.T) {
	m := NewManager()
	m.MustRegister(&Command{
		Name:    "setup-show",
		Handler: func(ctx context.Context, args *Args) *Result { return OK("shown") },
	})
	result := m.Execute(context.Background(), "Setup-Show", testArgs(true))
	if result.Failed() {
		t.Errorf("unexpected failure: %+v", result)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	m := NewManager()
	m.MustRegister(&Command{
		Name:    "boom",
		Handler: func(ctx context.Context, args *Args) *Result { panic("kaboom") },
	})

	result := m.Execute(context.Background(), "boom", testArgs(true))
	if result == nil {
		t.Fatal("panic must still yield a result")
	}
	if result.Kind != FailureInternal {
		t.Errorf("kind = %q, want %q", result.Kind, FailureInternal)
	}
	if result.Text != internalErrorText {
		t.Errorf("caller must get the generic failure text, got %q", result.Text)
	}
}

func TestExecuteNilHandlerResult(t *testing.T) {
	m := NewManager()
	m.MustRegister(&Command{
		Name:    "silent",
		Handler: func(ctx context.Context, args *Args) *Result { return nil },
	})

	result := m.Execute(context.Background(), "silent", testArgs(true))
	if result == nil || result.Kind != FailureInternal {
		t.Errorf("a silent handler must be surfaced as an internal failure, got %+v", result)
	}
}
