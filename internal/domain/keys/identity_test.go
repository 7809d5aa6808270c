package keys

import (
	"encoding/pem"
	"errors"
	"strings"
	"testing"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublicPEM(t *testing.T) {
	identity, err := Generate(2048, nil)
	require.NoError(t, err)

	out := identity.PublicPEM()
	assert.True(t, strings.HasPrefix(out, "-----BEGIN PUBLIC KEY-----"))
	assert.Equal(t, "RSA-SHA256", identity.KeyType())

	block, _ := pem.Decode([]byte(out))
	require.NotNil(t, block)
	assert.Equal(t, "PUBLIC KEY", block.Type)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	identity, err := Generate(2048, nil)
	require.NoError(t, err)

	ciphertext, err := EncryptFor(identity.PublicPEM(), []byte("hunter2"))
	require.NoError(t, err)

	plain, err := identity.DecryptString(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	identity, err := Generate(2048, nil)
	require.NoError(t, err)

	_, err = identity.DecryptString("not base64!")
	assert.Error(t, err)

	_, err = identity.Decrypt([]byte("short"))
	assert.Error(t, err)
}

func TestPublicPEMEncodingFailureReturnsEmpty(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	identity, err := Generate(2048, logging.FromZap(zap.New(core)))
	require.NoError(t, err)

	identity.encode = func(*pem.Block) ([]byte, error) {
		return nil, errors.New("encoder unavailable")
	}

	assert.Equal(t, "", identity.PublicPEM())
	assert.Equal(t, 1, logs.FilterMessage("Failed to PEM-encode public key").Len())
}
