// Package identity manages the persistent Ed25519 device identity used to
// authenticate against the gateway. The keypair is generated on first use
// and stored as a JSON file readable only by the owning user.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Identity is a device keypair. The zero value is unusable; load or create
// one with [Load].
type Identity struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

type keyFile struct {
	Algorithm  string `json:"algorithm"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// Load reads the identity from path, generating and persisting a fresh
// keypair when the file does not exist yet.
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return parse(data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate keypair: %w", err)
	}
	id := &Identity{private: priv, public: pub}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("identity: create key directory: %w", err)
	}
	blob, err := json.MarshalIndent(keyFile{
		Algorithm:  "ed25519",
		PrivateKey: base64.RawURLEncoding.EncodeToString(priv.Seed()),
		PublicKey:  base64.RawURLEncoding.EncodeToString(pub),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("identity: marshal key file: %w", err)
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return nil, fmt.Errorf("identity: write %s: %w", path, err)
	}
	return id, nil
}

func parse(data []byte) (*Identity, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("identity: parse key file: %w", err)
	}
	if kf.Algorithm != "ed25519" {
		return nil, fmt.Errorf("identity: unsupported algorithm %q", kf.Algorithm)
	}
	seed, err := base64.RawURLEncoding.DecodeString(kf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("identity: decode private key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: private key has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Identity{
		private: priv,
		public:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// PublicKey returns the URL-safe unpadded base64 encoding of the public key.
// This is the device's stable identifier toward the gateway.
func (id *Identity) PublicKey() string {
	return base64.RawURLEncoding.EncodeToString(id.public)
}

// Sign signs msg and returns the URL-safe unpadded base64 signature.
func (id *Identity) Sign(msg []byte) string {
	return base64.RawURLEncoding.EncodeToString(ed25519.Sign(id.private, msg))
}

// Verify reports whether sig is a valid signature of msg by this identity.
// Used in tests and by local loopback handshakes.
func (id *Identity) Verify(msg []byte, sig string) bool {
	return Verify(id.PublicKey(), msg, sig)
}

// Verify reports whether sig is a valid signature of msg by the holder of the
// URL-safe base64 encoded public key.
func Verify(publicKey string, msg []byte, sig string) bool {
	pub, err := base64.RawURLEncoding.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, raw)
}
