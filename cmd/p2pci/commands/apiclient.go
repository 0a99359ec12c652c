package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/p2pci/pkg/controlplane/api/handlers"
)

var apiURL string

// addAPIFlag registers --api on commands that query the status API.
func addAPIFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "Base URL of the status API")
}

// apiEnvelope mirrors the status API response envelope.
type apiEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

// getAPI fetches path from the status API and decodes the envelope's data
// into v. Problem responses come back as errors; the envelope is returned
// for every other status so callers can inspect it.
func getAPI(ctx context.Context, base, path string, v any) (*apiEnvelope, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot reach the status API at %s: %w", base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.Header.Get("Content-Type") == handlers.ContentTypeProblemJSON {
		var p handlers.Problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, fmt.Errorf("invalid problem response from %s: %w", path, err)
		}
		return nil, fmt.Errorf("%s: %s", p.Title, p.Detail)
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("invalid response from %s: %w", path, err)
	}
	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return &env, fmt.Errorf("invalid data from %s: %w", path, err)
		}
	}
	return &env, nil
}
