package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/ssh"
)

// EncryptionMethod defines how the credential file is protected at rest.
type EncryptionMethod string

const (
	EncryptionNone   EncryptionMethod = "none"
	EncryptionSSHKey EncryptionMethod = "ssh_key"
)

// Encryptor protects credential bytes at rest. With the SSH-key method the
// AES key is derived from a signature over a fixed message, so the same SSH
// key always yields the same AES key and no extra secret has to be stored.
type Encryptor struct {
	method     EncryptionMethod
	sshKeyPath string
	aesKey     []byte
}

func NewEncryptor(method EncryptionMethod, sshKeyPath string) *Encryptor {
	return &Encryptor{method: method, sshKeyPath: sshKeyPath}
}

// Initialize loads the SSH key and derives the AES key. A no-op for the
// plaintext method.
func (e *Encryptor) Initialize() error {
	if e.method == EncryptionNone {
		return nil
	}

	keyData, err := os.ReadFile(e.sshKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read SSH key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return fmt.Errorf("failed to parse SSH key: %w", err)
	}

	aesKey, err := deriveAESKey(signer)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	e.aesKey = aesKey

	return nil
}

func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	if e.method == EncryptionNone {
		return plaintext, nil
	}
	if e.aesKey == nil {
		return nil, fmt.Errorf("encryptor not initialized")
	}
	return encryptAESGCM(plaintext, e.aesKey)
}

func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if e.method == EncryptionNone {
		return ciphertext, nil
	}
	if e.aesKey == nil {
		return nil, fmt.Errorf("encryptor not initialized")
	}
	return decryptAESGCM(ciphertext, e.aesKey)
}

// encryptAESGCM encrypts data using AES-256-GCM
// Format: [nonce (12 bytes)][ciphertext + tag]
func encryptAESGCM(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptAESGCM(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce := ciphertext[:nonceSize]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// deriveAESKey derives a 32-byte AES-256 key from an SSH key signature over
// a fixed message.
func deriveAESKey(signer ssh.Signer) ([]byte, error) {
	message := []byte("aide-credential-key-derivation-v1")

	signature, err := signer.Sign(rand.Reader, message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign key-derivation message: %w", err)
	}

	hash := sha256.Sum256(signature.Blob)
	return hash[:], nil
}
