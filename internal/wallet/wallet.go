package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// Wallet es el par de claves ed25519 del bot. La dirección es el hex de la
// clave pública.
type Wallet struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// Generate crea una wallet efímera nueva.
func Generate() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("wallet.Generate: %w", err)
	}
	return &Wallet{pub: pub, priv: priv}, nil
}

// FromEnvironment carga la wallet desde la variable de entorno dada, que
// debe contener la seed ed25519 en hex (64 caracteres). El .env ya fue
// cargado por config.Load.
func FromEnvironment(envVar string) (*Wallet, error) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return nil, fmt.Errorf("wallet.FromEnvironment: %s not set", envVar)
	}
	seed, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("wallet.FromEnvironment: decode %s: %w", envVar, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet.FromEnvironment: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Wallet{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// Address devuelve la dirección de la wallet.
func (w *Wallet) Address() string {
	return hex.EncodeToString(w.pub)
}

// Sign firma el mensaje con la clave privada.
func (w *Wallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.priv, message)
}
