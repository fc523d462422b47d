package admin

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/youche-next/internal/config"
	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/payment/alipay"
	"github.com/youche-next/internal/provider"
	"github.com/youche-next/internal/repository"
	"github.com/youche-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAdminHandlerTest(t *testing.T) (*Handler, *gorm.DB, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}, &models.Order{}, &models.Payment{}, &models.PaymentLog{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret-key-not-for-production"
	cfg.JWT.ExpireHours = 2
	cfg.Security.PasswordPolicy.MinLength = 8
	cfg.Payment.Alipay = buildAdminAlipayTestConfig(t)

	adminRepo := repository.NewAdminRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	paymentService := service.NewPaymentService(
		paymentRepo,
		repository.NewPaymentLogRepository(db),
		repository.NewOrderRepository(db),
		nil,
		&cfg.Payment.WechatPay,
		&cfg.Payment.Alipay,
		15*time.Minute,
	)

	h := New(&provider.Container{
		Config:         cfg,
		AdminRepo:      adminRepo,
		PaymentRepo:    paymentRepo,
		AuthService:    service.NewAuthService(cfg, adminRepo),
		PaymentService: paymentService,
	})
	return h, db, cfg
}

func buildAdminAlipayTestConfig(t *testing.T) alipay.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key failed: %v", err)
	}
	privateBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal private key failed: %v", err)
	}
	publicBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key failed: %v", err)
	}
	return alipay.Config{
		AppID:           "2026000000000000",
		PrivateKey:      string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateBytes})),
		AlipayPublicKey: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicBytes})),
		GatewayURL:      "https://openapi.alipay.com/gateway.do",
		NotifyURL:       "https://example.com/api/v1/payments/callback/alipay",
		ReturnURL:       "https://example.com/pay/result",
	}
}

func seedAdminPayment(t *testing.T, db *gorm.DB, orderNo, paymentNo, status string, amount int64) *models.Payment {
	t.Helper()
	order := &models.Order{
		OrderNo:       orderNo,
		BuyerID:       1001,
		VehicleID:     2001,
		Status:        constants.OrderStatusPendingPayment,
		DepositAmount: amount,
		Currency:      constants.SiteCurrencyDefault,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := &models.Payment{
		PaymentNo:  paymentNo,
		OrderID:    order.ID,
		UserID:     order.BuyerID,
		Channel:    constants.PaymentChannelWebRedirect,
		ClientType: constants.PaymentClientPC,
		Status:     status,
		Amount:     amount,
		Currency:   order.Currency,
		ExpireTime: time.Now().Add(15 * time.Minute),
	}
	if status == constants.PaymentStatusPaid {
		now := time.Now()
		payment.PaidAt = &now
		payment.ChannelTradeNo = "2026083122001400000000000001"
		order.Status = constants.OrderStatusPaid
		order.PayTime = &now
		if err := db.Save(order).Error; err != nil {
			t.Fatalf("update order failed: %v", err)
		}
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return payment
}

func newAdminTestContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, w
}

func decodeAdminEnvelope(t *testing.T, body string) (int, json.RawMessage) {
	t.Helper()
	var envelope struct {
		StatusCode int             `json:"status_code"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, body)
	}
	return envelope.StatusCode, envelope.Data
}

func TestAdminLoginHandler(t *testing.T) {
	h, db, _ := setupAdminHandlerTest(t)
	hash, err := h.AuthService.HashPassword("Passw0rd!")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	if err := db.Create(&models.Admin{Username: "root", PasswordHash: hash}).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}

	c, w := newAdminTestContext(http.MethodPost, "/api/v1/admin/login", `{"username":"root","password":"Passw0rd!"}`)
	h.AdminLogin(c)
	statusCode, data := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 0 {
		t.Fatalf("expected login success, got %d body %s", statusCode, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatalf("decode login data failed: %v", err)
	}
	if login.Token == "" {
		t.Fatal("expected non-empty token")
	}

	c, w = newAdminTestContext(http.MethodPost, "/api/v1/admin/login", `{"username":"root","password":"wrong"}`)
	h.AdminLogin(c)
	statusCode, _ = decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 401 {
		t.Fatalf("expected 401 for bad credentials, got %d", statusCode)
	}
}

func TestGetAdminPaymentsFilters(t *testing.T) {
	h, db, _ := setupAdminHandlerTest(t)
	seedAdminPayment(t, db, "OL3001", "PL3001", constants.PaymentStatusPending, 500000)
	seedAdminPayment(t, db, "OL3002", "PL3002", constants.PaymentStatusPaid, 300000)

	c, w := newAdminTestContext(http.MethodGet, "/admin/payments?status=paid&page=1&page_size=10", "")
	h.GetAdminPayments(c)

	var envelope struct {
		StatusCode int              `json:"status_code"`
		Data       []models.Payment `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode list failed: %v body=%s", err, w.Body.String())
	}
	if envelope.StatusCode != 0 {
		t.Fatalf("expected success, got %d", envelope.StatusCode)
	}
	if envelope.Pagination.Total != 1 || len(envelope.Data) != 1 {
		t.Fatalf("expected single paid payment, got total=%d len=%d", envelope.Pagination.Total, len(envelope.Data))
	}
	if envelope.Data[0].PaymentNo != "PL3002" {
		t.Fatalf("unexpected payment %s", envelope.Data[0].PaymentNo)
	}
}

func TestGetAdminPaymentsRejectsBadFilter(t *testing.T) {
	h, _, _ := setupAdminHandlerTest(t)

	c, w := newAdminTestContext(http.MethodGet, "/admin/payments?order_id=abc", "")
	h.GetAdminPayments(c)
	statusCode, _ := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 400 {
		t.Fatalf("expected 400 for bad order_id filter, got %d", statusCode)
	}
}

func TestExportAdminPaymentsCSV(t *testing.T) {
	h, db, _ := setupAdminHandlerTest(t)
	seedAdminPayment(t, db, "OL3101", "PL3101", constants.PaymentStatusPaid, 800000)

	c, w := newAdminTestContext(http.MethodGet, "/admin/payments/export", "")
	h.ExportAdminPayments(c)

	if got := w.Header().Get("Content-Type"); !strings.Contains(got, "text/csv") {
		t.Fatalf("expected csv content type, got %q", got)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,payment_no,order_id") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "PL3101") || !strings.Contains(lines[1], "8000.00") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestGetAdminPaymentAndLogs(t *testing.T) {
	h, db, _ := setupAdminHandlerTest(t)
	payment := seedAdminPayment(t, db, "OL3201", "PL3201", constants.PaymentStatusPending, 500000)
	if err := db.Create(&models.PaymentLog{
		PaymentID: payment.ID,
		Action:    constants.PaymentLogActionCreate,
	}).Error; err != nil {
		t.Fatalf("create payment log failed: %v", err)
	}

	c, w := newAdminTestContext(http.MethodGet, "/admin/payments/1", "")
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", payment.ID)}}
	h.GetAdminPayment(c)
	statusCode, data := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 0 {
		t.Fatalf("expected success, got %d", statusCode)
	}
	var detail models.Payment
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("decode detail failed: %v", err)
	}
	if detail.PaymentNo != "PL3201" {
		t.Fatalf("unexpected payment %s", detail.PaymentNo)
	}

	c, w = newAdminTestContext(http.MethodGet, "/admin/payments/1/logs", "")
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", payment.ID)}}
	h.GetAdminPaymentLogs(c)
	statusCode, data = decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 0 {
		t.Fatalf("expected success, got %d", statusCode)
	}
	var logs []models.PaymentLog
	if err := json.Unmarshal(data, &logs); err != nil {
		t.Fatalf("decode logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != constants.PaymentLogActionCreate {
		t.Fatalf("unexpected logs %+v", logs)
	}
}

func TestGetAdminPaymentNotFound(t *testing.T) {
	h, _, _ := setupAdminHandlerTest(t)

	c, w := newAdminTestContext(http.MethodGet, "/admin/payments/99999", "")
	c.Params = gin.Params{{Key: "id", Value: "99999"}}
	h.GetAdminPayment(c)
	statusCode, _ := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 404 {
		t.Fatalf("expected 404 for missing payment, got %d", statusCode)
	}
}

func TestGetAdminPaymentBadID(t *testing.T) {
	h, _, _ := setupAdminHandlerTest(t)

	c, w := newAdminTestContext(http.MethodGet, "/admin/payments/zero", "")
	c.Params = gin.Params{{Key: "id", Value: "zero"}}
	h.GetAdminPayment(c)
	statusCode, _ := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 400 {
		t.Fatalf("expected 400 for bad id, got %d", statusCode)
	}
}

func TestRefundAdminPaymentHandler(t *testing.T) {
	h, db, cfg := setupAdminHandlerTest(t)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_refund_response": map[string]interface{}{
				"code":        "10000",
				"trade_no":    "2026083122001400000000000002",
				"fund_change": "Y",
			},
		})
	}))
	defer gateway.Close()
	cfg.Payment.Alipay.GatewayURL = gateway.URL

	payment := seedAdminPayment(t, db, "OL3301", "PL3301", constants.PaymentStatusPaid, 500000)

	c, w := newAdminTestContext(http.MethodPost, "/admin/payments/1/refund", `{"amount":200000,"reason":"买家协商退订"}`)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", payment.ID)}}
	c.Set("admin_id", uint(1))
	h.RefundAdminPayment(c)

	statusCode, data := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 0 {
		t.Fatalf("expected refund success, got %d body %s", statusCode, w.Body.String())
	}
	var result struct {
		RefundNo       string `json:"refund_no"`
		RefundedAmount int64  `json:"refunded_amount"`
		RefundAmount   int64  `json:"refund_amount"`
		Status         string `json:"status"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode refund result failed: %v", err)
	}
	if result.RefundNo == "" || result.RefundedAmount != 200000 || result.RefundAmount != 200000 {
		t.Fatalf("unexpected refund result %+v", result)
	}
	if result.Status != constants.PaymentStatusPaid {
		t.Fatalf("partial refund should keep paid status, got %s", result.Status)
	}
}

func TestRefundAdminPaymentRejectsNegativeAmount(t *testing.T) {
	h, db, _ := setupAdminHandlerTest(t)
	payment := seedAdminPayment(t, db, "OL3302", "PL3302", constants.PaymentStatusPaid, 500000)

	c, w := newAdminTestContext(http.MethodPost, "/admin/payments/1/refund", `{"amount":-1}`)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", payment.ID)}}
	c.Set("admin_id", uint(1))
	h.RefundAdminPayment(c)

	statusCode, _ := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 400 {
		t.Fatalf("expected 400 for negative amount, got %d", statusCode)
	}
}

func TestRefundAdminPaymentRequiresAdmin(t *testing.T) {
	h, db, _ := setupAdminHandlerTest(t)
	payment := seedAdminPayment(t, db, "OL3303", "PL3303", constants.PaymentStatusPaid, 500000)

	c, w := newAdminTestContext(http.MethodPost, "/admin/payments/1/refund", `{"amount":100000}`)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", payment.ID)}}
	h.RefundAdminPayment(c)

	statusCode, _ := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 401 {
		t.Fatalf("expected 401 without admin context, got %d", statusCode)
	}
}

func TestCloseAdminPaymentHandler(t *testing.T) {
	h, db, _ := setupAdminHandlerTest(t)
	payment := seedAdminPayment(t, db, "OL3401", "PL3401", constants.PaymentStatusPending, 500000)

	c, w := newAdminTestContext(http.MethodPost, "/admin/payments/1/close", `{"reason":"车辆已下架"}`)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", payment.ID)}}
	h.CloseAdminPayment(c)

	statusCode, data := decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 0 {
		t.Fatalf("expected close success, got %d body %s", statusCode, w.Body.String())
	}
	var result struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode close result failed: %v", err)
	}
	if result.Status != constants.PaymentStatusClosed {
		t.Fatalf("expected closed, got %s", result.Status)
	}

	// 重复关闭同样成功，状态保持 closed
	c, w = newAdminTestContext(http.MethodPost, "/admin/payments/1/close", "")
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", payment.ID)}}
	h.CloseAdminPayment(c)
	statusCode, _ = decodeAdminEnvelope(t, w.Body.String())
	if statusCode != 0 {
		t.Fatalf("expected idempotent close success, got %d", statusCode)
	}
}
