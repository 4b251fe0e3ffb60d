package security

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// ErrNoSignaturePacket is returned when a file holds no signature packet.
var ErrNoSignaturePacket = errors.New("no signature packet found")

// LoadKeyring reads an armored or binary public keyring. An empty path
// yields an empty keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("reading keyring %s: %v", path, err)
	}
	var keyring openpgp.EntityList
	if isArmored(data) {
		keyring, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	} else {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return nil, configError("parsing keyring %s: %v", path, err)
	}
	return keyring, nil
}

// SignatureFingerprintFile extracts the issuer fingerprint of the detached
// signature at path.
func SignatureFingerprintFile(path string, keyring openpgp.EntityList) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading signature %s: %w", path, err)
	}
	return SignatureFingerprint(data, keyring)
}

// SignatureFingerprint parses an armored or binary detached signature and
// returns the issuing key's fingerprint as uppercase hex. The Issuer
// Fingerprint subpacket is preferred; a bare issuer key ID is resolved through
// keyring, and recorded as 16 hex digits when the keyring does not know it.
func SignatureFingerprint(data []byte, keyring openpgp.EntityList) (string, error) {
	var r io.Reader = bytes.NewReader(data)
	if isArmored(data) {
		block, err := armor.Decode(r)
		if err != nil {
			return "", fmt.Errorf("decoding armor: %w", err)
		}
		r = block.Body
	}

	for {
		p, err := packet.Read(r)
		if err == io.EOF {
			return "", ErrNoSignaturePacket
		}
		if err != nil {
			return "", fmt.Errorf("reading signature packet: %w", err)
		}
		sig, ok := p.(*packet.Signature)
		if !ok {
			continue
		}
		return resolveIssuer(sig.IssuerFingerprint, sig.IssuerKeyId, keyring)
	}
}

func resolveIssuer(fingerprint []byte, keyID *uint64, keyring openpgp.EntityList) (string, error) {
	if len(fingerprint) > 0 {
		return fmt.Sprintf("%X", fingerprint), nil
	}
	if keyID == nil {
		return "", errors.New("signature carries no issuer")
	}
	for _, key := range keyring.KeysById(*keyID) {
		if key.PublicKey != nil && len(key.PublicKey.Fingerprint) > 0 {
			return fmt.Sprintf("%X", key.PublicKey.Fingerprint), nil
		}
	}
	return fmt.Sprintf("%016X", *keyID), nil
}

func isArmored(data []byte) bool {
	return strings.HasPrefix(string(bytes.TrimSpace(data[:min(len(data), 64)])), "-----BEGIN PGP")
}
