// Copyright 2025 Truthcrawl Project

package daemon

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/truthcrawl/node/pkg/crypto"
)

// LoadOrCreateKey reads <dir>/pub.key and <dir>/priv.key (one Base64
// value per file, trailing LF) or generates and persists a fresh
// Ed25519 key pair if neither exists yet.
func LoadOrCreateKey(dir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pubPath := filepath.Join(dir, "pub.key")
	privPath := filepath.Join(dir, "priv.key")

	pubData, pubErr := os.ReadFile(pubPath)
	privData, privErr := os.ReadFile(privPath)
	if pubErr == nil && privErr == nil {
		pub, err := crypto.DecodeKey(strings.TrimSpace(string(pubData)))
		if err != nil {
			return nil, nil, fmt.Errorf("daemon: decode pub.key: %w", err)
		}
		priv, err := crypto.DecodeKey(strings.TrimSpace(string(privData)))
		if err != nil {
			return nil, nil, fmt.Errorf("daemon: decode priv.key: %w", err)
		}
		return ed25519.PublicKey(pub), ed25519.PrivateKey(priv), nil
	}
	if !os.IsNotExist(pubErr) && pubErr != nil {
		return nil, nil, fmt.Errorf("daemon: read pub.key: %w", pubErr)
	}
	if !os.IsNotExist(privErr) && privErr != nil {
		return nil, nil, fmt.Errorf("daemon: read priv.key: %w", privErr)
	}

	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("daemon: generate key: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("daemon: mkdir keys dir: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(crypto.EncodeKey(pub)+"\n"), 0o644); err != nil {
		return nil, nil, fmt.Errorf("daemon: write pub.key: %w", err)
	}
	if err := os.WriteFile(privPath, []byte(crypto.EncodeKey(priv)+"\n"), 0o600); err != nil {
		return nil, nil, fmt.Errorf("daemon: write priv.key: %w", err)
	}
	return pub, priv, nil
}
