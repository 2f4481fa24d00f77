package crypt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	plaintext := []byte("id: regime-shift-detection\nexpected: EFPTGK\n")

	armored := Encrypt(plaintext, "canary-phrase")
	require.NotContains(t, armored, "EFPTGK")

	decrypted, err := Decrypt(armored, "canary-phrase")
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestDecrypt_TrimsWhitespace(t *testing.T) {
	armored := Encrypt([]byte("payload"), "k")

	decrypted, err := Decrypt("  "+armored+"\n", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), decrypted)
}

func TestDecrypt_BadArmor(t *testing.T) {
	_, err := Decrypt("not base64 at all!!!", "k")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode encrypted data")
}

func TestDecrypt_WrongPassphraseYieldsGarbage(t *testing.T) {
	plaintext := []byte("expected: EFPTGK")
	armored := Encrypt(plaintext, "right")

	decrypted, err := Decrypt(armored, "wrong")
	require.NoError(t, err)
	require.NotEqual(t, plaintext, decrypted)
}

func TestEncryptFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "task.yaml")
	dst := filepath.Join(dir, "task.yaml.enc")

	content := []byte("id: sample\nname: Sample\n")
	require.NoError(t, os.WriteFile(src, content, 0o644))

	require.NoError(t, EncryptFile(src, dst, "phrase"))

	decrypted, err := DecryptFile(dst, "phrase")
	require.NoError(t, err)
	require.Equal(t, content, decrypted)
}

func TestReadCanary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CanaryFileName)
	require.NoError(t, os.WriteFile(path, []byte("  seekrit-canary \n"), 0o644))

	passphrase, err := ReadCanary(path)
	require.NoError(t, err)
	require.Equal(t, "seekrit-canary", passphrase)
}

func TestReadCanary_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CanaryFileName)
	require.NoError(t, os.WriteFile(path, []byte("\n \n"), 0o644))

	_, err := ReadCanary(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is empty")
}

func TestFindCanary_WalksUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, CanaryFileName), []byte("up-here\n"), 0o644))

	child := filepath.Join(root, "tasks", "nested")
	require.NoError(t, os.MkdirAll(child, 0o755))

	passphrase, err := FindCanary(child)
	require.NoError(t, err)
	require.Equal(t, "up-here", passphrase)
}

func TestFindCanary_NotFound(t *testing.T) {
	_, err := FindCanary(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), CanaryFileName)
}
