package service

import "testing"

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		otp := generateOTP()
		if len(otp) != 4 {
			t.Fatalf("expected 4 digits, got %q", otp)
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("expected numeric OTP, got %q", otp)
			}
		}
	}
}
