package auth

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
	"github.com/stretchr/testify/require"
)

func TestResolver_RoundTrip(t *testing.T) {
	r := NewResolver("secret", "editorial")

	token, err := r.Sign("alice", models.RoleEditor, time.Hour)
	require.NoError(t, err)

	id, err := r.Resolve("Bearer " + token)
	require.NoError(t, err)
	if id.Subject != "alice" || id.Role != models.RoleEditor {
		t.Errorf("Expected alice/editor, got %+v", id)
	}
}

func TestResolver_Rejects(t *testing.T) {
	r := NewResolver("secret", "editorial")
	other := NewResolver("other-secret", "editorial")
	wrongIssuer := NewResolver("secret", "someone-else")

	expired, err := r.Sign("alice", models.RoleWriter, -time.Minute)
	require.NoError(t, err)
	forged, err := other.Sign("alice", models.RolePublisher, time.Hour)
	require.NoError(t, err)
	foreign, err := wrongIssuer.Sign("alice", models.RoleWriter, time.Hour)
	require.NoError(t, err)
	badRole, err := r.Sign("alice", models.Role("owner"), time.Hour)
	require.NoError(t, err)

	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, Claims{Role: models.RolePublisher})
	unsigned, err := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", forged},
		{"wrong issuer", foreign},
		{"unknown role", badRole},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if id, err := r.Resolve(tt.token); err == nil {
				t.Errorf("Expected error, got identity %+v", id)
			}
		})
	}
}

func TestNormalizeToken(t *testing.T) {
	tests := map[string]string{
		"  abc  ":      "abc",
		"Bearer abc":   "abc",
		"bearer   abc": "abc",
		"Bearer":       "Bearer",
		"":             "",
	}
	for in, want := range tests {
		if got := NormalizeToken(in); got != want {
			t.Errorf("NormalizeToken(%q): expected %q, got %q", in, want, got)
		}
	}
}
