package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// TokenClientOption builds the client option for an OAuth installation
// that keeps its credentials and refresh token on disk (credentials.json
// and token.json, as provisioned for the property's Google account).
func TokenClientOption(ctx context.Context, credentialsPath, tokenPath string) (option.ClientOption, error) {
	credData, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(credData, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tokenData, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	return option.WithTokenSource(conf.TokenSource(ctx, &token)), nil
}
