package utils

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Exit(m.Run())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.True(t, CheckPassword(hash, "correct horse battery staple"))
	require.False(t, CheckPassword(hash, "wrong password"))
	require.False(t, CheckPassword("not-a-hash", "anything"))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "alice", claims.Username)

	_, err = ParseToken(token + "tampered")
	require.Error(t, err)

	_, err = ParseToken("not-a-token")
	require.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken(1, "alice", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	require.Error(t, err)
}

func TestSanitizeStripsScripts(t *testing.T) {
	require.Equal(t, "hello", Sanitize(`<script>alert(1)</script>hello`))
	require.Equal(t, "plain text", Sanitize("plain text"))
	// UGC policy keeps benign formatting.
	require.Equal(t, "<b>bold</b>", Sanitize("<b>bold</b>"))
}

func TestCaptchaVerify(t *testing.T) {
	id, b64, err := GenerateCaptcha()
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NotEmpty(t, b64)

	require.False(t, VerifyCaptcha(id, "00000"))
	require.False(t, VerifyCaptcha("", "123"))
	require.False(t, VerifyCaptcha(id, ""))
}
