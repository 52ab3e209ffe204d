// keygen generates the RSA key pair the payment gateway signs settlement
// outcomes with. The private key stays with the gateway; the public key is
// distributed to the orchestrator and the ticket issuer.
package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/config"
	"github.com/iliyamo/cruise-reservation/internal/signing"
)

func main() {
	force := flag.Bool("force", false, "overwrite existing key files")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logrus.WithField("service", "keygen")

	if !*force {
		if _, err := os.Stat(cfg.PrivateKeyFile); err == nil {
			log.WithField("file", cfg.PrivateKeyFile).Fatal("key file already exists, use -force to overwrite")
		}
	}

	key, err := signing.GenerateKey()
	if err != nil {
		log.WithError(err).Fatal("key generation failed")
	}

	privPEM, err := signing.EncodePrivatePEM(key)
	if err != nil {
		log.WithError(err).Fatal("failed to encode the private key")
	}
	pubPEM, err := signing.EncodePublicPEM(&key.PublicKey)
	if err != nil {
		log.WithError(err).Fatal("failed to encode the public key")
	}

	if err := os.WriteFile(cfg.PrivateKeyFile, privPEM, 0o600); err != nil {
		log.WithError(err).Fatal("failed to write the private key")
	}
	if err := os.WriteFile(cfg.PublicKeyFile, pubPEM, 0o644); err != nil {
		log.WithError(err).Fatal("failed to write the public key")
	}

	log.WithFields(logrus.Fields{
		"private": cfg.PrivateKeyFile,
		"public":  cfg.PublicKeyFile,
	}).Info("key pair written")
}
