package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"clinic-booking/internal/logging"

	"github.com/spf13/cobra"
)

// writePEM writes the given block to the file, readable only by its owner.
func writePEM(filename string, block *pem.Block) error {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err = pem.Encode(file, block); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// generate writes private.pem and public.pem, the RSA key pair used to sign the access tokens.
func generate(dir string, bits int) error {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return err
	}
	publicKey, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return err
	}
	if err = writePEM(filepath.Join(dir, "private.pem"), &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}); err != nil {
		return err
	}
	return writePEM(filepath.Join(dir, "public.pem"), &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKey,
	})
}

func main() {
	logger := logging.New(os.Stderr, "info")
	var (
		dir  string
		bits int
	)
	rootCmd := &cobra.Command{
		Use:          "keygen",
		Short:        "Generate the RSA key pair used to sign the access tokens",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("no directory was given")
			}
			if err := generate(dir, bits); err != nil {
				return err
			}
			logger.Info().Str("dir", dir).Int("bits", bits).Msg("key pair generated")
			return nil
		},
	}
	rootCmd.Flags().StringVar(&dir, "dir", "", "Directory where the keys will be stored")
	rootCmd.Flags().IntVar(&bits, "bits", 2048, "RSA key size")

	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("could not generate the key pair")
		os.Exit(1)
	}
}
