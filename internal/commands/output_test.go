package commands

import (
	"errors"
	"strings"
	"testing"

	apierrors "github.com/diogo/waveportal/internal/errors"
)

func TestFormatErrorMessage_Nil(t *testing.T) {
	if got := formatErrorMessage(nil, "ctx"); got != "" {
		t.Fatalf("expected empty for nil error, got %s", got)
	}
}

func TestFormatErrorMessage_Structured(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "wrong network",
			err:  apierrors.NewWrongNetworkError("1", "4"),
			want: []string{"Network: Ethereum Mainnet (required: Rinkeby)", "Hint: Switch networks"},
		},
		{
			name: "call failed",
			err:  apierrors.NewCallFailedError("eth_call", errors.New("connection refused")),
			want: []string{"connection refused", "Method: eth_call", "Hint:"},
		},
		{
			name: "transaction failed",
			err:  apierrors.NewTransactionFailedError("0xabc", "reverted"),
			want: []string{"Transaction: 0xabc", "Hint:"},
		},
		{
			name: "wallet missing",
			err:  apierrors.NewWalletMissingError(""),
			want: []string{"no wallet found", "Hint: Get a wallet!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatErrorMessage(tt.err, "Failed")
			if !strings.Contains(out, "✗ Failed:") {
				t.Errorf("missing context in %q", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected %q in %q", w, out)
				}
			}
		})
	}
}

func TestFormatErrorMessage_PlainError(t *testing.T) {
	out := formatErrorMessage(errors.New("boom"), "Error")
	if !strings.Contains(out, "boom") {
		t.Fatalf("expected message, got %q", out)
	}
	if strings.Contains(out, "Hint") {
		t.Errorf("plain errors have no hint: %q", out)
	}
}

func TestTruncateMessage(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"hi", 20, "hi"},
		{"a\nb\tc", 20, "a b c"},
		{"abcdefghijklmnopqrstuvwxyz", 10, "abcdefg..."},
		{"👋👋👋👋👋", 4, "👋..."},
	}

	for _, tt := range tests {
		if got := truncateMessage(tt.in, tt.limit); got != tt.want {
			t.Errorf("truncateMessage(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
