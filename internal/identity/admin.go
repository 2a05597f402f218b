package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"resume-builder/internal/shared/telemetry"
)

const (
	identityToolkitBaseURL = "https://identitytoolkit.googleapis.com"
	cloudPlatformScope     = "https://www.googleapis.com/auth/cloud-platform"
)

// Admin removes principals at the identity provider.
type Admin interface {
	DeleteUser(ctx context.Context, subjectID string) error
}

// IdentityToolkitAdmin deletes Firebase accounts through the Identity Toolkit REST API.
type IdentityToolkitAdmin struct {
	projectID string
	baseURL   string
	client    *http.Client
}

// NewIdentityToolkitAdmin builds an admin client authorized with the service
// account at credentialsPath, or application default credentials when empty.
func NewIdentityToolkitAdmin(ctx context.Context, projectID, credentialsPath string) (*IdentityToolkitAdmin, error) {
	var (
		creds *google.Credentials
		err   error
	)
	if strings.TrimSpace(credentialsPath) != "" {
		data, readErr := os.ReadFile(credentialsPath)
		if readErr != nil {
			return nil, fmt.Errorf("read service account: %w", readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, cloudPlatformScope)
	}
	if err != nil {
		return nil, fmt.Errorf("load google credentials: %w", err)
	}
	return NewIdentityToolkitAdminWithTokenSource(ctx, projectID, identityToolkitBaseURL, creds.TokenSource), nil
}

// NewIdentityToolkitAdminWithTokenSource wires an explicit token source and base URL.
func NewIdentityToolkitAdminWithTokenSource(ctx context.Context, projectID, baseURL string, ts oauth2.TokenSource) *IdentityToolkitAdmin {
	return &IdentityToolkitAdmin{
		projectID: projectID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    oauth2.NewClient(ctx, ts),
	}
}

func (a *IdentityToolkitAdmin) DeleteUser(ctx context.Context, subjectID string) error {
	body, err := json.Marshal(map[string]string{"localId": subjectID})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/v1/projects/%s/accounts:delete", a.baseURL, a.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("identity provider delete: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// NoopAdmin accepts every delete without contacting a provider.
type NoopAdmin struct{}

func (NoopAdmin) DeleteUser(_ context.Context, subjectID string) error {
	telemetry.Info("identity.admin_noop_delete", map[string]any{"user_id": subjectID})
	return nil
}
