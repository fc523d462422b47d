package public

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// setupAlipayCallbackTest 额外暴露私钥，回调用例需要自行签名表单。
func setupAlipayCallbackTest(t *testing.T) (*Handler, *gorm.DB, *rsa.PrivateKey) {
	t.Helper()
	h, db := setupPublicHandlerTest(t)
	key := decodeTestPrivateKey(t, h.Config.Payment.Alipay.PrivateKey)
	return h, db, key
}

func decodeTestPrivateKey(t *testing.T, pemText string) *rsa.PrivateKey {
	t.Helper()
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		t.Fatal("private key pem decode failed")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		t.Fatalf("parse private key failed: %v", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		t.Fatal("private key is not rsa")
	}
	return key
}

func signAlipayForm(t *testing.T, key *rsa.PrivateKey, values url.Values) {
	t.Helper()
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "sign" || k == "sign_type" || values.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	digest := sha256.Sum256([]byte(strings.Join(pairs, "&")))
	sign, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign form failed: %v", err)
	}
	values.Set("sign", base64.StdEncoding.EncodeToString(sign))
	values.Set("sign_type", "RSA2")
}

func postAlipayCallback(h *Handler, values url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/alipay", strings.NewReader(values.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.AlipayCallback(c)
	return w
}

func baseAlipayNotifyForm(paymentNo string) url.Values {
	return url.Values{
		"notify_id":    {"2026083100222080000000000000000001"},
		"notify_type":  {"trade_status_sync"},
		"app_id":       {"2026000000000000"},
		"out_trade_no": {paymentNo},
		"trade_no":     {"2026083122001400001234567890"},
		"trade_status": {"TRADE_SUCCESS"},
		"total_amount": {"5000.00"},
		"gmt_payment":  {"2026-08-31 10:30:00"},
	}
}

func TestAlipayCallbackPaidSuccess(t *testing.T) {
	h, db, key := setupAlipayCallbackTest(t)
	order := seedDepositOrder(t, db, 1001, "OA2001")
	payment := seedPayment(t, db, order, "PA2001", constants.PaymentStatusPending)

	form := baseAlipayNotifyForm(payment.PaymentNo)
	signAlipayForm(t, key, form)

	w := postAlipayCallback(h, form)
	if w.Body.String() != constants.AlipayCallbackSuccess {
		t.Fatalf("expected success ack, got %q", w.Body.String())
	}

	var updated models.Payment
	if err := db.First(&updated, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if updated.Status != constants.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", updated.Status)
	}
	if updated.ChannelTradeNo != "2026083122001400001234567890" {
		t.Fatalf("unexpected channel trade no %s", updated.ChannelTradeNo)
	}
	if updated.PaidAt == nil {
		t.Fatal("expected paid_at to be set")
	}

	var updatedOrder models.Order
	if err := db.First(&updatedOrder, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updatedOrder.Status != constants.OrderStatusPaid {
		t.Fatalf("expected order paid, got %s", updatedOrder.Status)
	}

	// 渠道重发同一通知仍然应答 success，状态不回退
	replay := postAlipayCallback(h, form)
	if replay.Body.String() != constants.AlipayCallbackSuccess {
		t.Fatalf("expected success ack on replay, got %q", replay.Body.String())
	}
}

func TestAlipayCallbackTamperedAmountRejected(t *testing.T) {
	h, db, key := setupAlipayCallbackTest(t)
	order := seedDepositOrder(t, db, 1001, "OA2002")
	payment := seedPayment(t, db, order, "PA2002", constants.PaymentStatusPending)

	form := baseAlipayNotifyForm(payment.PaymentNo)
	signAlipayForm(t, key, form)
	form.Set("total_amount", "0.01")

	w := postAlipayCallback(h, form)
	if w.Body.String() != constants.AlipayCallbackFail {
		t.Fatalf("expected fail ack for tampered form, got %q", w.Body.String())
	}

	var updated models.Payment
	if err := db.First(&updated, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if updated.Status != constants.PaymentStatusPending {
		t.Fatalf("expected pending after rejected callback, got %s", updated.Status)
	}
}

func TestAlipayCallbackUnknownPaymentNo(t *testing.T) {
	h, _, key := setupAlipayCallbackTest(t)

	form := baseAlipayNotifyForm("P_NOT_EXISTS")
	signAlipayForm(t, key, form)

	w := postAlipayCallback(h, form)
	if w.Body.String() != constants.AlipayCallbackFail {
		t.Fatalf("expected fail ack for unknown payment, got %q", w.Body.String())
	}
}

func TestAlipayCallbackIgnoresWaitBuyerPay(t *testing.T) {
	h, db, key := setupAlipayCallbackTest(t)
	order := seedDepositOrder(t, db, 1001, "OA2003")
	payment := seedPayment(t, db, order, "PA2003", constants.PaymentStatusPending)

	form := baseAlipayNotifyForm(payment.PaymentNo)
	form.Set("trade_status", "WAIT_BUYER_PAY")
	form.Del("gmt_payment")
	signAlipayForm(t, key, form)

	w := postAlipayCallback(h, form)
	if w.Body.String() != constants.AlipayCallbackSuccess {
		t.Fatalf("expected success ack for wait event, got %q", w.Body.String())
	}

	var updated models.Payment
	if err := db.First(&updated, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if updated.Status != constants.PaymentStatusPending {
		t.Fatalf("expected pending unchanged, got %s", updated.Status)
	}
}

func TestAlipayCallbackRejectsUnrelatedForm(t *testing.T) {
	h, _ := setupPublicHandlerTest(t)

	w := postAlipayCallback(h, url.Values{"foo": {"bar"}})
	if w.Body.String() != constants.AlipayCallbackFail {
		t.Fatalf("expected fail ack for unrelated form, got %q", w.Body.String())
	}
}

func TestWechatCallbackRejectsUnrelatedRequest(t *testing.T) {
	h, _ := setupPublicHandlerTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/wechat", strings.NewReader(`{"hello":"world"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.WechatPayCallback(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unrelated request, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), fmt.Sprintf("%q", "FAIL")) {
		t.Fatalf("expected FAIL code in body, got %s", w.Body.String())
	}
}
