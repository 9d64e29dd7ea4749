package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const credentialsFile = "credentials.json"

// CredentialStore holds the completion-service API key. The key is resolved
// from the AIDE_API_KEY environment variable first, then from the credential
// file in the data directory (plaintext or SSH-key encrypted).
type CredentialStore struct {
	dataDir   string
	encryptor *Encryptor
	apiKey    string
}

func NewCredentialStore(dataDir string, encryptor *Encryptor) *CredentialStore {
	if encryptor == nil {
		encryptor = NewEncryptor(EncryptionNone, "")
	}
	return &CredentialStore{dataDir: dataDir, encryptor: encryptor}
}

type credentialFile struct {
	APIKey string `json:"api_key"`
}

// Load resolves the API key. A missing credential file is not an error; the
// store simply reports no credentials.
func (c *CredentialStore) Load() error {
	if key := os.Getenv("AIDE_API_KEY"); key != "" {
		c.apiKey = key
		return nil
	}

	path := filepath.Join(c.dataDir, credentialsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	plaintext, err := c.encryptor.Decrypt(data)
	if err != nil {
		return fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var creds credentialFile
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}

	c.apiKey = creds.APIKey
	return nil
}

// Save writes the API key to the credential file.
func (c *CredentialStore) Save(apiKey string) error {
	data, err := json.Marshal(credentialFile{APIKey: apiKey})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	ciphertext, err := c.encryptor.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	path := filepath.Join(c.dataDir, credentialsFile)
	// 0600 - contains the API key
	if err := os.WriteFile(path, ciphertext, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	c.apiKey = apiKey
	return nil
}

// APIKey returns the resolved key, empty when none is configured.
func (c *CredentialStore) APIKey() string {
	return c.apiKey
}

// HasCredentials reports whether a usable API key is configured. The
// automatic message scheduler gates on this.
func (c *CredentialStore) HasCredentials() bool {
	return c.apiKey != ""
}
