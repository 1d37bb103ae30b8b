package main

import (
	"context"
	"os"
	"time"
)

// handleTokenCommand obtains an app access token to verify the Twitch
// credentials. The token itself is never printed.
func handleTokenCommand(ctx context.Context) {
	tokens := newTokenProvider(newHTTPClient())
	if tokens == nil {
		PrintError("Error: TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET environment variables required\n")
		os.Exit(1)
	}

	if _, err := tokens.GetAccessToken(ctx); err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	cred, _ := tokens.Credential()
	if outputCfg.JSON {
		PrintJSON(map[string]any{
			"client_id":  tokens.ClientID(),
			"valid":      tokens.IsTokenValid(),
			"expires_at": cred.ExpiresAt.UTC().Format(time.RFC3339),
		})
		return
	}

	PrintInfo("✓ Token obtained for client %s\n", tokens.ClientID())
	PrintInfo("  Refresh due: %s (in %s)\n",
		cred.ExpiresAt.Format(time.RFC3339),
		time.Until(cred.ExpiresAt).Round(time.Minute))
}
