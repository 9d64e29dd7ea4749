package config

import (
	"bytes"
	"testing"
)

func TestCredentialStoreRoundtrip(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(dir, nil)
	if err := store.Load(); err != nil {
		t.Fatalf("load with no file: %v", err)
	}
	if store.HasCredentials() {
		t.Error("no credentials expected before save")
	}

	if err := store.Save("sk-test-123"); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := NewCredentialStore(dir, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.HasCredentials() || reloaded.APIKey() != "sk-test-123" {
		t.Errorf("key lost across reload: %q", reloaded.APIKey())
	}
}

func TestCredentialStoreEnvTakesPrecedence(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(dir, nil)
	if err := store.Save("sk-from-file"); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Setenv("AIDE_API_KEY", "sk-from-env")
	reloaded := NewCredentialStore(dir, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.APIKey() != "sk-from-env" {
		t.Errorf("env key must win, got %q", reloaded.APIKey())
	}
}

func TestAESGCMRoundtrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	plaintext := []byte(`{"api_key":"sk-secret"}`)

	ciphertext, err := encryptAESGCM(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(ciphertext, []byte("sk-secret")) {
		t.Error("ciphertext leaks the plaintext")
	}

	decrypted, err := decryptAESGCM(ciphertext, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("roundtrip mismatch: %q", decrypted)
	}

	wrongKey := bytes.Repeat([]byte{0x24}, 32)
	if _, err := decryptAESGCM(ciphertext, wrongKey); err == nil {
		t.Error("decryption with the wrong key must fail")
	}
	if _, err := decryptAESGCM([]byte("short"), key); err == nil {
		t.Error("truncated ciphertext must fail")
	}
}

func TestEncryptorRequiresInitialization(t *testing.T) {
	e := NewEncryptor(EncryptionSSHKey, "/nonexistent")
	if _, err := e.Encrypt([]byte("x")); err == nil {
		t.Error("uninitialized SSH-key encryptor must refuse to encrypt")
	}

	plain := NewEncryptor(EncryptionNone, "")
	out, err := plain.Encrypt([]byte("x"))
	if err != nil || string(out) != "x" {
		t.Errorf("plaintext method must pass bytes through: %q, %v", out, err)
	}
}
