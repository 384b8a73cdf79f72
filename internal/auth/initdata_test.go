package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
)

const testBotToken = "123456:TEST-TOKEN"

// signInitData builds a correctly signed initData payload for tests.
func signInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()

	pairs := make([]string, 0, len(fields))
	for key, value := range fields {
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set("hash", hash)
	return values.Encode()
}

func TestVerifyInitData_Valid(t *testing.T) {
	initData := signInitData(t, testBotToken, map[string]string{
		"user":      `{"id":42,"first_name":"Ann"}`,
		"auth_date": "1700000000",
		"query_id":  "AAE",
	})

	id, err := VerifyInitData(initData, testBotToken)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id=42, got %d", id)
	}

	// Re-verification with the same inputs is deterministic.
	again, err := VerifyInitData(initData, testBotToken)
	if err != nil || again != id {
		t.Fatalf("expected same id on re-verification, got %d (%v)", again, err)
	}
}

func TestVerifyInitData_TamperedPayload(t *testing.T) {
	initData := signInitData(t, testBotToken, map[string]string{
		"user":      `{"id":42}`,
		"auth_date": "1700000000",
	})

	tampered := strings.Replace(initData, "1700000000", "1700000001", 1)
	if _, err := VerifyInitData(tampered, testBotToken); err == nil {
		t.Fatalf("expected tampered payload to fail verification")
	}
}

func TestVerifyInitData_TamperedHash(t *testing.T) {
	initData := signInitData(t, testBotToken, map[string]string{
		"user":      `{"id":42}`,
		"auth_date": "1700000000",
	})

	values, errParse := url.ParseQuery(initData)
	if errParse != nil {
		t.Fatalf("parse initData: %v", errParse)
	}
	hash := values.Get("hash")
	flipped := "0"
	if hash[0] == '0' {
		flipped = "1"
	}
	values.Set("hash", flipped+hash[1:])

	if _, err := VerifyInitData(values.Encode(), testBotToken); err == nil {
		t.Fatalf("expected altered hash to fail verification")
	}
}

func TestVerifyInitData_WrongSecret(t *testing.T) {
	initData := signInitData(t, testBotToken, map[string]string{
		"user": `{"id":42}`,
	})
	if _, err := VerifyInitData(initData, "other-token"); err == nil {
		t.Fatalf("expected verification under a different token to fail")
	}
}

func TestVerifyInitData_MissingUser(t *testing.T) {
	initData := signInitData(t, testBotToken, map[string]string{
		"auth_date": "1700000000",
	})
	if _, err := VerifyInitData(initData, testBotToken); err == nil {
		t.Fatalf("expected payload without user to fail")
	}
}

func TestVerifyInitData_EmptyInputs(t *testing.T) {
	if _, err := VerifyInitData("", testBotToken); err == nil {
		t.Fatalf("expected empty payload to fail")
	}
	initData := signInitData(t, testBotToken, map[string]string{"user": `{"id":42}`})
	if _, err := VerifyInitData(initData, ""); err == nil {
		t.Fatalf("expected empty token to fail")
	}
}

func TestVerifyInitData_EncodedFields(t *testing.T) {
	// Values with spaces and Cyrillic survive URL encoding and decoding.
	initData := signInitData(t, testBotToken, map[string]string{
		"user":      fmt.Sprintf(`{"id":%d,"first_name":"Анна Мария"}`, 77),
		"auth_date": "1700000000",
	})
	id, err := VerifyInitData(initData, testBotToken)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != 77 {
		t.Fatalf("expected id=77, got %d", id)
	}
}
