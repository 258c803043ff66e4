// Package signing provides ed25519 signatures over policy documents, so a
// pulled or fetched policy can be verified against a team's public key
// before it gates a build.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
)

const (
	privateKeyType = "ED25519 PRIVATE KEY"
	publicKeyType  = "ED25519 PUBLIC KEY"
)

// GenerateKeys writes a new ed25519 keypair as PEM files. The private key
// file is created owner-readable only.
func GenerateKeys(privateKeyPath, publicKeyPath string) error {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{Type: privateKeyType, Bytes: privateKey})
	if err := os.WriteFile(privateKeyPath, privatePEM, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	publicPEM := pem.EncodeToMemory(&pem.Block{Type: publicKeyType, Bytes: publicKey})
	if err := os.WriteFile(publicKeyPath, publicPEM, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	return nil
}

// Sign data with a PEM private key file.
func Sign(data []byte, privateKeyPath string) ([]byte, error) {
	keyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type != privateKeyType {
		return nil, fmt.Errorf("invalid key type: expected %s, got %s", privateKeyType, block.Type)
	}

	privateKey := ed25519.PrivateKey(block.Bytes)
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size")
	}

	return ed25519.Sign(privateKey, data), nil
}

// Verify data against a signature with a PEM public key file.
func Verify(data, signature []byte, publicKeyPath string) (bool, error) {
	keyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return false, fmt.Errorf("failed to read public key: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return false, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type != publicKeyType {
		return false, fmt.Errorf("invalid key type: expected %s, got %s", publicKeyType, block.Type)
	}

	publicKey := ed25519.PublicKey(block.Bytes)
	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid public key size")
	}

	return ed25519.Verify(publicKey, data, signature), nil
}
