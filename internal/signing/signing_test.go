package signing_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/signing"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	key, err := signing.GenerateKey()
	require.NoError(t, err)

	payload := signing.Canonical("2026-08-29T10:00:00Z", "Payment approved for itinerary 1.")
	sig, err := signing.Sign(key, payload)
	require.NoError(t, err)

	require.NoError(t, signing.Verify(&key.PublicKey, payload, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	key, err := signing.GenerateKey()
	require.NoError(t, err)

	sig, err := signing.Sign(key, signing.Canonical("2026-08-29T10:00:00Z", "Payment approved for itinerary 1."))
	require.NoError(t, err)

	tampered := signing.Canonical("2026-08-29T10:00:00Z", "Payment approved for itinerary 2.")
	err = signing.Verify(&key.PublicKey, tampered, sig)
	assert.ErrorIs(t, err, errs.ErrBadSignature)
}

func TestVerifyRejectsTamperedTimestamp(t *testing.T) {
	key, err := signing.GenerateKey()
	require.NoError(t, err)

	msg := "Payment approved for itinerary 1."
	sig, err := signing.Sign(key, signing.Canonical("2026-08-29T10:00:00Z", msg))
	require.NoError(t, err)

	err = signing.Verify(&key.PublicKey, signing.Canonical("2026-08-29T11:00:00Z", msg), sig)
	assert.ErrorIs(t, err, errs.ErrBadSignature)
}

func TestVerifyRejectsMalformedHex(t *testing.T) {
	key, err := signing.GenerateKey()
	require.NoError(t, err)

	payload := signing.Canonical("2026-08-29T10:00:00Z", "x")
	assert.ErrorIs(t, signing.Verify(&key.PublicKey, payload, "not-hex"), errs.ErrBadSignature)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	key, err := signing.GenerateKey()
	require.NoError(t, err)
	other, err := signing.GenerateKey()
	require.NoError(t, err)

	payload := signing.Canonical("2026-08-29T10:00:00Z", "Payment approved for itinerary 1.")
	sig, err := signing.Sign(key, payload)
	require.NoError(t, err)

	assert.ErrorIs(t, signing.Verify(&other.PublicKey, payload, sig), errs.ErrBadSignature)
}

func TestPEMRoundTrip(t *testing.T) {
	key, err := signing.GenerateKey()
	require.NoError(t, err)

	privPEM, err := signing.EncodePrivatePEM(key)
	require.NoError(t, err)
	pubPEM, err := signing.EncodePublicPEM(&key.PublicKey)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := dir + "/payment_private.pem"
	pubPath := dir + "/payment_public.pem"
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o644))

	loadedPriv, err := signing.LoadPrivateKey(privPath)
	require.NoError(t, err)
	loadedPub, err := signing.LoadPublicKey(pubPath)
	require.NoError(t, err)

	payload := signing.Canonical("ts", "msg")
	sig, err := signing.Sign(loadedPriv, payload)
	require.NoError(t, err)
	assert.NoError(t, signing.Verify(loadedPub, payload, sig))
}
