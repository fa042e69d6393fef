package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/alterra-community/alterra-bot/internal/commands"
)

// wrapRESTError maps a discordgo error onto the typed platform failures
// the command layer understands, keeping the original error in the chain.
func wrapRESTError(err error) error {
	if err == nil {
		return nil
	}

	var rateErr discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %v", commands.ErrRateLimited, err)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", commands.ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", commands.ErrForbidden, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", commands.ErrRateLimited, err)
		}
	}

	return err
}
