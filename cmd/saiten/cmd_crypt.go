package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cocoabench/saiten/internal/crypt"
	"github.com/cocoabench/saiten/internal/tasks"
)

var canaryPath string

func newEncryptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt <task.yaml> [more...]",
		Short: "Seal task files so ground truth stays out of casual view",
		Long: `Seal task files with the canary passphrase, producing a .enc file
next to each input. The passphrase comes from --canary, or from the
nearest canary.txt walking up from each file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, src := range args {
				passphrase, err := resolveCanary(src)
				if err != nil {
					return err
				}
				dst := src + tasks.EncryptedExt
				if err := crypt.EncryptFile(src, dst, passphrase); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Encrypted %s -> %s\n", src, dst) //nolint:errcheck
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&canaryPath, "canary", "", "Path to the passphrase file (default: nearest canary.txt)")
	return cmd
}

func newDecryptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt <task.yaml.enc> [more...]",
		Short: "Unseal encrypted task files",
		Long: `Unseal .enc task files back to plaintext, writing each result next
to the input without the .enc suffix.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, src := range args {
				if !strings.HasSuffix(src, tasks.EncryptedExt) {
					return fmt.Errorf("%s does not have the %s suffix", src, tasks.EncryptedExt)
				}
				passphrase, err := resolveCanary(src)
				if err != nil {
					return err
				}
				plaintext, err := crypt.DecryptFile(src, passphrase)
				if err != nil {
					return err
				}
				dst := strings.TrimSuffix(src, tasks.EncryptedExt)
				if err := writeFileNoClobber(dst, plaintext); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Decrypted %s -> %s\n", src, dst) //nolint:errcheck
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&canaryPath, "canary", "", "Path to the passphrase file (default: nearest canary.txt)")
	return cmd
}

// writeFileNoClobber refuses to overwrite an existing plaintext file.
func writeFileNoClobber(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing file: %s", path)
	}
	return os.WriteFile(path, data, 0644)
}

func resolveCanary(forFile string) (string, error) {
	if canaryPath != "" {
		return crypt.ReadCanary(canaryPath)
	}
	return crypt.FindCanary(filepath.Dir(forFile))
}
