package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("token-secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-42", "payments/job-42.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	jobID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-42", jobID)
	require.Equal(t, "payments/job-42.csv", relPath)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("token-secret", 10*time.Millisecond)

	token, _, err := signer.Generate("job-42", "funds/job-42.pdf")
	require.NoError(t, err)
	time.Sleep(25 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	// Cleanup still needs the file path after the token lapses.
	jobID, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-42", jobID)
	require.Equal(t, "funds/job-42.pdf", relPath)
}

func TestSignedURLTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("token-secret", time.Hour)

	token, _, err := signer.Generate("job-42", "history/job-42.csv")
	require.NoError(t, err)

	forged := strings.Replace(token, "job-42", "job-43", 1)
	_, _, _, err = signer.Parse(forged, false)
	require.Error(t, err)

	_, _, _, err = NewSignedURLSigner("other-secret", time.Hour).Parse(token, false)
	require.Error(t, err)
}
