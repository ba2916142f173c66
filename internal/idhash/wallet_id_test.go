package idhash

import "testing"

func TestComputeWalletID(t *testing.T) {
	addr := "5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9"

	id := ComputeWalletID(addr)
	if len(id) != 16 {
		t.Errorf("expected 16-char ID, got %d chars: %s", len(id), id)
	}

	// Deterministic
	if again := ComputeWalletID(addr); again != id {
		t.Errorf("ID not deterministic: %s vs %s", id, again)
	}

	// Distinct addresses produce distinct IDs
	other := ComputeWalletID("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	if other == id {
		t.Error("different addresses produced the same ID")
	}
}
