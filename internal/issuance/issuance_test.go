package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPIssuerSuccess(t *testing.T) {
	received := make(chan Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- req
		_, _ = w.Write([]byte(`{"asset_ref":" mint-123 ","metadata_uri":"ipfs://meta"}`))
	}))
	defer srv.Close()

	issuer, err := NewHTTPIssuer(Config{Endpoint: srv.URL, Token: "secret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new issuer failed: %v", err)
	}
	result, err := issuer.Issue(context.Background(), Request{PromotionID: "p-1", Title: "deal", TotalSupply: 3})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if result.AssetRef != "mint-123" || result.MetadataURI != "ipfs://meta" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if req := <-received; req.PromotionID != "p-1" || req.TotalSupply != 3 {
		t.Fatalf("unexpected request payload: %+v", req)
	}
}

func TestHTTPIssuerFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusBadGateway, `{}`, ErrRequestFailed},
		{"not json", http.StatusOK, `<html>`, ErrResponseInvalid},
		{"missing asset", http.StatusOK, `{"metadata_uri":"x"}`, ErrResponseInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			issuer, err := NewHTTPIssuer(Config{Endpoint: srv.URL})
			if err != nil {
				t.Fatalf("new issuer failed: %v", err)
			}
			if _, err := issuer.Issue(context.Background(), Request{}); !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewHTTPIssuerRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPIssuer(Config{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}
