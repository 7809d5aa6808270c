// Package keys holds the process key pair used to protect secrets sent to
// the provider.
//
// The pair is generated once at startup. Only the public half leaves the
// process, PEM-encoded, alongside a fixed key type label so callers can pick
// a compatible scheme: RSA-OAEP with SHA-256.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// KeyType labels the exported public key and the scheme callers must use
const KeyType = "RSA-SHA256"

// DefaultBits is the modulus size used when none is configured
const DefaultBits = 2048

// Identity is the process key pair. It is immutable after Generate and safe
// for concurrent use.
type Identity struct {
	private *rsa.PrivateKey
	logger  *logging.Logger

	// encode is swapped in tests to exercise the empty-PEM path
	encode func(*pem.Block) ([]byte, error)
}

// Generate creates a key pair from crypto/rand.
// An error here means no entropy is available and the process must not start.
func Generate(bits int, logger *logging.Logger) (*Identity, error) {
	return GenerateFrom(rand.Reader, bits, logger)
}

// GenerateFrom creates a key pair from the given entropy source
func GenerateFrom(entropy io.Reader, bits int, logger *logging.Logger) (*Identity, error) {
	if bits == 0 {
		bits = DefaultBits
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	key, err := rsa.GenerateKey(entropy, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %d-bit key: %w", bits, err)
	}

	return &Identity{
		private: key,
		logger:  logger.Named("keys"),
		encode:  encodePEM,
	}, nil
}

func encodePEM(block *pem.Block) ([]byte, error) {
	return pem.EncodeToMemory(block), nil
}

// KeyType returns the label exported alongside the public key
func (i *Identity) KeyType() string {
	return KeyType
}

// PublicKey returns the public half
func (i *Identity) PublicKey() *rsa.PublicKey {
	return &i.private.PublicKey
}

// PublicPEM exports the public key as a PKIX PEM block. On encoding failure
// it logs and returns "", which callers treat as "no usable key".
func (i *Identity) PublicPEM() string {
	der, err := x509.MarshalPKIXPublicKey(&i.private.PublicKey)
	if err != nil {
		i.logger.Error("Failed to marshal public key", zap.Error(err))
		return ""
	}

	out, err := i.encode(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if err != nil || len(out) == 0 {
		i.logger.Error("Failed to PEM-encode public key", zap.Error(err))
		return ""
	}
	return string(out)
}

// Decrypt opens a ciphertext produced with RSA-OAEP/SHA-256 against PublicPEM
func (i *Identity) Decrypt(ciphertext []byte) ([]byte, error) {
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, i.private, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret: %w", err)
	}
	return plain, nil
}

// DecryptString decodes a base64 ciphertext and decrypts it
func (i *Identity) DecryptString(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("secret is not valid base64: %w", err)
	}
	plain, err := i.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptFor encrypts secret to the PEM-encoded public key. Callers of the
// provider use the same scheme; the function lives here so both halves are
// tested together.
func EncryptFor(publicPEM string, secret []byte) (string, error) {
	block, _ := pem.Decode([]byte(publicPEM))
	if block == nil {
		return "", fmt.Errorf("no PEM block found")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("public key is %T, not RSA", parsed)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, secret, nil)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
