package credentials

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barnettlynn/fpsckc/internal/envelope"
)

func writeKeyPEM(t *testing.T, dir, name string, bits int) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, bits)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return key
}

func TestNewFileProviderLoadsBothKeysAndProvisioningData(t *testing.T) {
	dir := t.TempDir()
	v1 := writeKeyPEM(t, dir, "v1.pem", 1024)
	v2 := writeKeyPEM(t, dir, "v2.pem", 2048)
	provPath := filepath.Join(dir, "provisioning.bin")
	require.NoError(t, os.WriteFile(provPath, []byte("prov-data"), 0600))

	p, err := NewFileProvider(filepath.Join(dir, "v1.pem"), filepath.Join(dir, "v2.pem"), provPath)
	require.NoError(t, err)

	got1, err := p.PrivateKey(envelope.V1)
	require.NoError(t, err)
	require.Equal(t, v1.D, got1.D)

	got2, err := p.PrivateKey(envelope.V2)
	require.NoError(t, err)
	require.Equal(t, v2.D, got2.D)

	data, err := p.ProvisioningData()
	require.NoError(t, err)
	require.Equal(t, []byte("prov-data"), data)
}

func TestNewFileProviderFailsOnMissingKeyFile(t *testing.T) {
	dir := t.TempDir()
	writeKeyPEM(t, dir, "v1.pem", 1024)

	_, err := NewFileProvider(filepath.Join(dir, "v1.pem"), filepath.Join(dir, "missing.pem"), filepath.Join(dir, "prov.bin"))
	require.Error(t, err)
}

func TestNewFileProviderFailsOnGarbagePEM(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1.pem"), []byte("not pem"), 0600))
	writeKeyPEM(t, dir, "v2.pem", 2048)
	provPath := filepath.Join(dir, "prov.bin")
	require.NoError(t, os.WriteFile(provPath, []byte("x"), 0600))

	_, err := NewFileProvider(filepath.Join(dir, "v1.pem"), filepath.Join(dir, "v2.pem"), provPath)
	require.Error(t, err)
}

func TestFileProviderPrivateKeyRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	writeKeyPEM(t, dir, "v1.pem", 1024)
	writeKeyPEM(t, dir, "v2.pem", 2048)
	provPath := filepath.Join(dir, "prov.bin")
	require.NoError(t, os.WriteFile(provPath, []byte("x"), 0600))

	p, err := NewFileProvider(filepath.Join(dir, "v1.pem"), filepath.Join(dir, "v2.pem"), provPath)
	require.NoError(t, err)

	_, err = p.PrivateKey(envelope.Version(99))
	require.Error(t, err)
}
