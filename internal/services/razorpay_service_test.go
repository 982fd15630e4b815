package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signOrder(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	svc := &RazorpayService{keySecret: "test_secret"}

	orderID := "order_abc123"
	paymentID := "pay_xyz789"
	good := signOrder("test_secret", orderID, paymentID)

	if !svc.verifySignature(orderID, paymentID, good) {
		t.Error("valid signature rejected")
	}
	if svc.verifySignature(orderID, paymentID, signOrder("wrong_secret", orderID, paymentID)) {
		t.Error("signature from wrong secret accepted")
	}
	if svc.verifySignature(orderID, "pay_other", good) {
		t.Error("signature for different payment accepted")
	}
	if svc.verifySignature(orderID, paymentID, "") {
		t.Error("empty signature accepted")
	}
}

func TestVerifySignatureUnconfigured(t *testing.T) {
	svc := &RazorpayService{}
	if svc.verifySignature("order_abc", "pay_xyz", signOrder("", "order_abc", "pay_xyz")) {
		t.Error("signature accepted with no key secret configured")
	}
}
