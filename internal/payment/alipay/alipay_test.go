package alipay

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/youche-next/internal/constants"
)

func generateTestKeyPair(t *testing.T) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key failed: %v", err)
	}
	privateBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal private key failed: %v", err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateBytes})
	publicBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key failed: %v", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicBytes})
	return string(privatePEM), string(publicPEM)
}

func testConfig(privateKey, publicKey string) *Config {
	return &Config{
		AppID:           "2026000000000000",
		PrivateKey:      privateKey,
		AlipayPublicKey: publicKey,
		GatewayURL:      "https://openapi.alipay.com/gateway.do",
		NotifyURL:       "https://example.com/api/v1/payments/callback/alipay",
		ReturnURL:       "https://example.com/pay/result",
	}
}

func TestValidateConfig(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	cfg := testConfig(privateKey, publicKey)
	cfg.SignType = "rsa2"
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
	if cfg.SignType != "RSA2" {
		t.Fatalf("expected sign_type RSA2, got %s", cfg.SignType)
	}

	missing := testConfig(privateKey, publicKey)
	missing.AppID = "  "
	if err := ValidateConfig(missing); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for empty app_id, got %v", err)
	}
}

func TestValidateConfigDefaults(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	cfg := testConfig(privateKey, publicKey)
	cfg.GatewayURL = ""
	cfg.SignType = ""
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
	if cfg.GatewayURL != "https://openapi.alipay.com/gateway.do" {
		t.Fatalf("expected default gateway url, got %s", cfg.GatewayURL)
	}
	if cfg.SignType != "RSA2" {
		t.Fatalf("expected default sign_type RSA2, got %s", cfg.SignType)
	}
}

func TestResolveMethod(t *testing.T) {
	cases := map[string]string{
		constants.PaymentClientPC:  "alipay.trade.page.pay",
		constants.PaymentClientH5:  "alipay.trade.wap.pay",
		constants.PaymentClientApp: "alipay.trade.wap.pay",
	}
	for clientType, expected := range cases {
		method, err := resolveMethod(clientType)
		if err != nil {
			t.Fatalf("resolve method for %s failed: %v", clientType, err)
		}
		if method != expected {
			t.Fatalf("expected %s for %s, got %s", expected, clientType, method)
		}
	}
	if _, err := resolveMethod("miniapp"); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for unknown client type, got %v", err)
	}
}

func TestBuildSignContent(t *testing.T) {
	content := buildSignContent(map[string]string{
		"b_key": "2",
		"a_key": "1",
		"sign":  "should-be-skipped",
		"empty": "",
	})
	if content != "a_key=1&b_key=2" {
		t.Fatalf("unexpected sign content: %s", content)
	}
}

func TestCreatePaymentBuildsRedirectURL(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	cfg := testConfig(privateKey, publicKey)
	result, err := CreatePayment(context.Background(), cfg, CreateInput{
		PaymentNo:  "P20260801120000123456",
		Amount:     500000,
		Subject:    "二手车订金",
		ClientType: constants.PaymentClientPC,
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if result.Method != "alipay.trade.page.pay" {
		t.Fatalf("expected page pay method, got %s", result.Method)
	}
	parsed, err := url.Parse(result.PayURL)
	if err != nil {
		t.Fatalf("parse pay url failed: %v", err)
	}
	query := parsed.Query()
	if query.Get("method") != "alipay.trade.page.pay" {
		t.Fatalf("expected method in pay url, got %s", query.Get("method"))
	}
	if query.Get("sign") == "" {
		t.Fatal("expected sign in pay url")
	}
	if !strings.Contains(query.Get("biz_content"), `"total_amount":"5000.00"`) {
		t.Fatalf("expected yuan amount in biz_content, got %s", query.Get("biz_content"))
	}
}

func TestCreatePaymentRequiresReturnURL(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	cfg := testConfig(privateKey, publicKey)
	cfg.ReturnURL = ""
	_, err := CreatePayment(context.Background(), cfg, CreateInput{
		PaymentNo:  "P20260801120000123456",
		Amount:     500000,
		ClientType: constants.PaymentClientPC,
	})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid without return_url, got %v", err)
	}
}

func signTestForm(t *testing.T, privateKey string, form url.Values) {
	t.Helper()
	sign, err := signContent(buildSignContentFromForm(form), privateKey, "RSA2")
	if err != nil {
		t.Fatalf("sign form failed: %v", err)
	}
	form.Set("sign", sign)
	form.Set("sign_type", "RSA2")
}

func TestVerifyCallbackRoundTrip(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	cfg := testConfig(privateKey, publicKey)

	form := url.Values{}
	form.Set("notify_id", "2026080112000012345678")
	form.Set("notify_type", "trade_status_sync")
	form.Set("out_trade_no", "P20260801120000123456")
	form.Set("trade_no", "2026080122001400000001")
	form.Set("trade_status", "TRADE_SUCCESS")
	form.Set("total_amount", "5000.00")
	signTestForm(t, privateKey, form)

	if err := VerifyCallback(cfg, form); err != nil {
		t.Fatalf("verify callback failed: %v", err)
	}

	// 篡改金额后验签必须失败
	form.Set("total_amount", "0.01")
	if err := VerifyCallback(cfg, form); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for tampered form, got %v", err)
	}
}

func TestVerifyCallbackMissingSign(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	cfg := testConfig(privateKey, publicKey)
	form := url.Values{}
	form.Set("out_trade_no", "P20260801120000123456")
	if err := VerifyCallback(cfg, form); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid without sign, got %v", err)
	}
}

func TestToPaymentStatus(t *testing.T) {
	cases := []struct {
		tradeStatus string
		status      string
		ok          bool
	}{
		{"TRADE_SUCCESS", constants.PaymentStatusPaid, true},
		{"TRADE_FINISHED", constants.PaymentStatusPaid, true},
		{"WAIT_BUYER_PAY", constants.PaymentStatusPending, true},
		{"TRADE_CLOSED", constants.PaymentStatusClosed, true},
		{"UNKNOWN", "", false},
	}
	for _, tc := range cases {
		status, ok := ToPaymentStatus(tc.tradeStatus)
		if ok != tc.ok || status != tc.status {
			t.Fatalf("ToPaymentStatus(%s) = (%s, %v), expected (%s, %v)", tc.tradeStatus, status, ok, tc.status, tc.ok)
		}
	}
}

func TestAmountConversion(t *testing.T) {
	if got := fenToYuanString(500000); got != "5000.00" {
		t.Fatalf("expected 5000.00, got %s", got)
	}
	if got := fenToYuanString(1); got != "0.01" {
		t.Fatalf("expected 0.01, got %s", got)
	}
	fen, err := yuanStringToFen("5000.00")
	if err != nil || fen != 500000 {
		t.Fatalf("expected 500000, got %d err %v", fen, err)
	}
	if _, err := yuanStringToFen("0.001"); err == nil {
		t.Fatal("expected error for sub-fen precision")
	}
}

func TestQueryOrderByPaymentNo(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse gateway form failed: %v", err)
		}
		if r.Form.Get("method") != "alipay.trade.query" {
			t.Errorf("unexpected method %s", r.Form.Get("method"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_query_response": map[string]interface{}{
				"code":          "10000",
				"msg":           "Success",
				"out_trade_no":  "P20260801120000123456",
				"trade_no":      "2026080122001400000001",
				"trade_status":  "TRADE_SUCCESS",
				"total_amount":  "5000.00",
				"send_pay_date": "2026-08-01 12:30:00",
			},
		})
	}))
	defer server.Close()

	cfg := testConfig(privateKey, publicKey)
	cfg.GatewayURL = server.URL

	result, err := QueryOrderByPaymentNo(context.Background(), cfg, "P20260801120000123456")
	if err != nil {
		t.Fatalf("query order failed: %v", err)
	}
	if result.Status != constants.PaymentStatusPaid {
		t.Fatalf("expected paid status, got %s", result.Status)
	}
	if result.Amount != 500000 {
		t.Fatalf("expected amount 500000, got %d", result.Amount)
	}
	if result.ChannelTradeNo != "2026080122001400000001" {
		t.Fatalf("unexpected trade no %s", result.ChannelTradeNo)
	}
	if result.PaidAt == nil {
		t.Fatal("expected paid_at to be parsed")
	}
}

func TestQueryOrderGatewayRejected(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_query_response": map[string]interface{}{
				"code":     "40004",
				"sub_code": "ACQ.TRADE_NOT_EXIST",
				"sub_msg":  "交易不存在",
			},
		})
	}))
	defer server.Close()

	cfg := testConfig(privateKey, publicKey)
	cfg.GatewayURL = server.URL

	_, err := QueryOrderByPaymentNo(context.Background(), cfg, "P20260801120000123456")
	if !errors.Is(err, ErrGatewayRejected) {
		t.Fatalf("expected ErrGatewayRejected, got %v", err)
	}
}

func TestRefundTransientError(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_refund_response": map[string]interface{}{
				"code":     "20000",
				"sub_code": "ACQ.SYSTEM_ERROR",
				"sub_msg":  "系统繁忙",
			},
		})
	}))
	defer server.Close()

	cfg := testConfig(privateKey, publicKey)
	cfg.GatewayURL = server.URL

	_, err := Refund(context.Background(), cfg, RefundInput{
		PaymentNo:    "P20260801120000123456",
		RefundNo:     "R20260801120000123456",
		RefundAmount: 200000,
	})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed for transient error, got %v", err)
	}
}

func TestRefundFundChanged(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse gateway form failed: %v", err)
		}
		if !strings.Contains(r.Form.Get("biz_content"), `"refund_amount":"2000.00"`) {
			t.Errorf("expected yuan refund amount, got %s", r.Form.Get("biz_content"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_refund_response": map[string]interface{}{
				"code":        "10000",
				"trade_no":    "2026080122001400000001",
				"fund_change": "Y",
			},
		})
	}))
	defer server.Close()

	cfg := testConfig(privateKey, publicKey)
	cfg.GatewayURL = server.URL

	result, err := Refund(context.Background(), cfg, RefundInput{
		PaymentNo:    "P20260801120000123456",
		RefundNo:     "R20260801120000123456",
		RefundAmount: 200000,
		Reason:       "买家取消订单",
	})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if !result.FundChanged {
		t.Fatal("expected fund_change Y")
	}
}
