package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoClientSecret is returned when the credential endpoint responds without
// a client secret value. The connection attempt must be aborted; there is no
// automatic retry.
var ErrNoClientSecret = errors.New("realtime: credential endpoint returned no client secret")

// clientSecretResponse is the credential endpoint's response shape:
// {"client_secret": {"value": "..."}}.
type clientSecretResponse struct {
	ClientSecret struct {
		Value string `json:"value"`
	} `json:"client_secret"`
}

// FetchClientSecret obtains a short-lived realtime credential from the
// token-issuing endpoint at url. The endpoint is an external collaborator;
// only the GET → client_secret.value contract is assumed.
func FetchClientSecret(ctx context.Context, httpClient *http.Client, url string) (string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("realtime: build credential request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("realtime: fetch credential: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("realtime: credential endpoint status %d", resp.StatusCode)
	}

	var body clientSecretResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("realtime: decode credential response: %w", err)
	}
	if body.ClientSecret.Value == "" {
		return "", ErrNoClientSecret
	}
	return body.ClientSecret.Value, nil
}
