// Package credentials loads and serves the server's RSA key material and
// provisioning data, selected by SPC envelope version.
//
// Grounded on pkg/ntag424/keys.go's LoadHexKeyFile/LoadAllHexKeys (load
// once at startup, fail fast on bad material) and on the original SDK's
// credentials.rs, which likewise selects between a v1 and v2 private key
// file by SPC version. File I/O lives behind the Provider interface (per
// the spec's §9 CredentialProvider note) so tests can inject in-memory
// fixtures instead of touching disk.
package credentials

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/barnettlynn/fpsckc/internal/envelope"
)

// Provider resolves the private key for a given SPC envelope version and
// the provisioning data blob passed to the content-key payload binder.
type Provider interface {
	PrivateKey(version envelope.Version) (*rsa.PrivateKey, error)
	ProvisioningData() ([]byte, error)
}

// FileProvider reads key material from disk paths resolved once at
// construction.
type FileProvider struct {
	v1Path, v2Path, provisioningPath string

	v1, v2      *rsa.PrivateKey
	provisioning []byte
}

// NewFileProvider loads and parses both private keys and the
// provisioning data eagerly, so startup fails fast on bad credentials
// rather than on the first request.
func NewFileProvider(v1Path, v2Path, provisioningPath string) (*FileProvider, error) {
	v1, err := loadPrivateKey(v1Path)
	if err != nil {
		return nil, fmt.Errorf("load v1 private key: %w", err)
	}
	v2, err := loadPrivateKey(v2Path)
	if err != nil {
		return nil, fmt.Errorf("load v2 private key: %w", err)
	}
	prov, err := os.ReadFile(provisioningPath)
	if err != nil {
		return nil, fmt.Errorf("load provisioning data: %w", err)
	}
	return &FileProvider{
		v1Path: v1Path, v2Path: v2Path, provisioningPath: provisioningPath,
		v1: v1, v2: v2, provisioning: prov,
	}, nil
}

func (p *FileProvider) PrivateKey(version envelope.Version) (*rsa.PrivateKey, error) {
	switch version {
	case envelope.V1:
		return p.v1, nil
	case envelope.V2:
		return p.v2, nil
	default:
		return nil, fmt.Errorf("credentials: unsupported envelope version %d", version)
	}
}

func (p *FileProvider) ProvisioningData() ([]byte, error) {
	return p.provisioning, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key in %s: %w", path, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s does not contain an RSA private key", path)
	}
	return rsaKey, nil
}
