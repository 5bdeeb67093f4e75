package auth

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/calbridge/calbridge/internal/apierr"
)

// DefaultTokenURI is Google's OAuth2 token endpoint, used when the key
// file does not carry one.
const DefaultTokenURI = "https://oauth2.googleapis.com/token"

// Credentials holds the fields of a service-account key this client
// needs. Immutable once parsed.
type Credentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	ProjectID   string `json:"project_id"`
	TokenURI    string `json:"token_uri"`
}

// ParseCredentials parses and validates a service-account key JSON
// document. Missing or malformed required fields fail here, at
// construction, rather than on first use.
func ParseCredentials(data []byte) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, &apierr.ConfigurationError{Reason: "service account key is not valid JSON: " + err.Error()}
	}
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if creds.TokenURI == "" {
		creds.TokenURI = DefaultTokenURI
	}
	return &creds, nil
}

// LoadCredentialsFile reads and parses a service-account key file.
func LoadCredentialsFile(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apierr.ConfigurationError{Field: "credentials_file", Reason: err.Error()}
	}
	return ParseCredentials(data)
}

func (c *Credentials) validate() error {
	if c.ClientEmail == "" {
		return &apierr.ConfigurationError{Field: "client_email", Reason: "missing"}
	}
	if !strings.Contains(c.ClientEmail, "@") {
		return &apierr.ConfigurationError{Field: "client_email", Reason: "not an email address"}
	}
	if c.PrivateKey == "" {
		return &apierr.ConfigurationError{Field: "private_key", Reason: "missing"}
	}
	if !strings.Contains(c.PrivateKey, "-----BEGIN") {
		return &apierr.ConfigurationError{Field: "private_key", Reason: "not PEM encoded"}
	}
	return nil
}
