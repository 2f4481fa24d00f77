// Package crypt implements the symmetric armor that keeps ground-truth
// answers in task files out of casual view. Content is XORed with a
// keystream derived from a passphrase and base64-encoded; the scheme is
// an obfuscation seal, not cryptographic protection.
package crypt

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CanaryFileName is the conventional passphrase file looked up next to
// encrypted task files.
const CanaryFileName = "canary.txt"

// keystream derives the repeating XOR key for a passphrase.
func keystream(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

func xor(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// Encrypt seals plaintext under the passphrase and returns the armored
// form.
func Encrypt(plaintext []byte, passphrase string) string {
	return base64.StdEncoding.EncodeToString(xor(plaintext, keystream(passphrase)))
}

// Decrypt reverses [Encrypt]. A wrong passphrase yields garbage rather
// than an error here; callers detect it when the result fails to parse.
func Decrypt(armored string, passphrase string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(armored))
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}
	return xor(raw, keystream(passphrase)), nil
}

// EncryptFile writes the armored form of the src file to dst.
func EncryptFile(src, dst, passphrase string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, []byte(Encrypt(data, passphrase)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

// DecryptFile reads an armored file and returns its plaintext.
func DecryptFile(path, passphrase string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decrypt(string(data), passphrase)
}

// ReadCanary reads a passphrase file, trimming surrounding whitespace.
func ReadCanary(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read canary file: %w", err)
	}
	passphrase := strings.TrimSpace(string(data))
	if passphrase == "" {
		return "", fmt.Errorf("canary file %s is empty", path)
	}
	return passphrase, nil
}

// FindCanary walks up from dir looking for canary.txt (max 10 levels)
// and returns the passphrase it holds.
func FindCanary(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, CanaryFileName)
		if _, err := os.Stat(p); err == nil {
			return ReadCanary(p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no %s found in %s or any parent", CanaryFileName, absDir)
}
