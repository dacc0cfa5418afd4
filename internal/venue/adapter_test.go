package venue

import "testing"

func TestValidateWallet(t *testing.T) {
	// A well-formed base58 Solana public key (the system program address).
	if err := validateWallet("11111111111111111111111111111111"); err != nil {
		t.Fatalf("expected a valid base58 public key to pass, got %v", err)
	}
}

func TestValidateWalletRejectsMalformed(t *testing.T) {
	cases := []string{"", "not-base58!!", "0xabc123", "11111"}
	for _, w := range cases {
		if err := validateWallet(w); err == nil {
			t.Errorf("expected wallet %q to be rejected", w)
		}
	}
}
