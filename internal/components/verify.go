package components

import (
	"context"

	"github.com/alterra-community/alterra-bot/internal/commands"
	. "github.com/alterra-community/alterra-bot/internal/logging"
)

// VerifyButtonID is the stable custom id of the Verify button. It must
// never change: every verification message ever published references it.
const VerifyButtonID = "alterra_verify_button"

// RegisterVerify binds the Verify button handler.
func RegisterVerify(r *Registry) error {
	return r.Register(VerifyButtonID, handleVerify)
}

// handleVerify acknowledges a Verify click. It performs no state change
// yet; this is the hook point for the future verification flow and role
// grant, which is why it is trivially safe under duplicate delivery.
func handleVerify(ctx context.Context, args *commands.Args) *commands.Result {
	L_info("verify: button clicked", "guild", args.GuildID, "user", args.UserID)
	return commands.OK("Well done.")
}
