package auth

import "testing"

func TestGenerateRefreshToken(t *testing.T) {
	a, err := generateRefreshToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := generateRefreshToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != 64 { // 32 random bytes, hex encoded
		t.Fatalf("token length = %d, want 64", len(a))
	}
	if a == b {
		t.Fatal("two refresh tokens collided")
	}
}

func TestHashTokenStableAndOpaque(t *testing.T) {
	token := "0123456789abcdef"
	h1 := hashToken(token)
	h2 := hashToken(token)
	if h1 != h2 {
		t.Fatal("hash is not deterministic")
	}
	if h1 == token {
		t.Fatal("hash leaks the token")
	}
	if hashToken("other") == h1 {
		t.Fatal("distinct tokens hashed equal")
	}
}
