package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// credentialsFile mirrors ~/.claude/.credentials.json.
type credentialsFile struct {
	ClaudeAIOAuth oauthCredentials `json:"claudeAiOauth"`
}

type oauthCredentials struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"` // unix millis
}

// loadOAuthToken reads the OAuth access token written by the Claude
// CLI, preferring the hidden credentials file. An expired token is
// treated the same as a missing one: the caller reports a single
// actionable auth error instead of a confusing 401 later.
func loadOAuthToken(home string, now time.Time) (string, error) {
	path := filepath.Join(home, ".claude", ".credentials.json")
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(home, ".claude", "credentials.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", fmt.Errorf("parse credentials: %w", err)
	}
	if creds.ClaudeAIOAuth.AccessToken == "" {
		return "", fmt.Errorf("credentials file has no access token")
	}
	if now.UnixMilli() > creds.ClaudeAIOAuth.ExpiresAt {
		return "", fmt.Errorf("OAuth token expired; run 'claude login'")
	}
	return creds.ClaudeAIOAuth.AccessToken, nil
}
