package auth

import "testing"

func TestClientTokenRoundTrip(t *testing.T) {
	token, expiresAt, err := GenerateClientToken("client-123")
	if err != nil {
		t.Fatalf("GenerateClientToken failed: %v", err)
	}
	if expiresAt.IsZero() {
		t.Error("Expiry should be set")
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.ClientID != "client-123" {
		t.Errorf("ClientID = %s, want client-123", claims.ClientID)
	}
	if claims.Role != "client" {
		t.Errorf("Role = %s, want client", claims.Role)
	}
}

func TestValidateRejectsGarbageTokens(t *testing.T) {
	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("Garbage token should be rejected")
	}
	if _, err := ValidateToken(""); err == nil {
		t.Error("Empty token should be rejected")
	}
}
