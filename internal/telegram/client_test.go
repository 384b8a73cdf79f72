package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateInvoiceLink(t *testing.T) {
	var gotPath string
	var gotBody createInvoiceLinkRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if errDecode := json.NewDecoder(r.Body).Decode(&gotBody); errDecode != nil {
			t.Errorf("decode request: %v", errDecode)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":"https://t.me/invoice/abc"}`))
	}))
	defer server.Close()

	client := NewClient("123:token")
	client.baseURL = server.URL

	link, err := client.CreateInvoiceLink(context.Background(), "PRO", "Monthly", "sub_monthly:42:1", "XTR", []LabeledPrice{{Label: "Monthly PRO", Amount: 599}})
	if err != nil {
		t.Fatalf("create invoice link: %v", err)
	}
	if link != "https://t.me/invoice/abc" {
		t.Fatalf("unexpected link %q", link)
	}
	if gotPath != "/bot123:token/createInvoiceLink" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody.Currency != "XTR" || len(gotBody.Prices) != 1 || gotBody.Prices[0].Amount != 599 {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
}

func TestCreateInvoiceLink_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: currency is invalid"}`))
	}))
	defer server.Close()

	client := NewClient("123:token")
	client.baseURL = server.URL

	if _, err := client.CreateInvoiceLink(context.Background(), "PRO", "Monthly", "p", "XTR", nil); err == nil {
		t.Fatalf("expected provider rejection to surface as an error")
	}
}

func TestAnswerPreCheckoutQuery(t *testing.T) {
	var gotBody answerPreCheckoutRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if errDecode := json.NewDecoder(r.Body).Decode(&gotBody); errDecode != nil {
			t.Errorf("decode request: %v", errDecode)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer server.Close()

	client := NewClient("123:token")
	client.baseURL = server.URL

	if err := client.AnswerPreCheckoutQuery(context.Background(), "q1", true); err != nil {
		t.Fatalf("answer pre-checkout: %v", err)
	}
	if gotBody.PreCheckoutQueryID != "q1" || !gotBody.OK {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
}

func TestClient_MissingToken(t *testing.T) {
	client := NewClient("")
	if _, err := client.CreateInvoiceLink(context.Background(), "t", "d", "p", "XTR", nil); err == nil {
		t.Fatalf("expected error without token")
	}
}
