package lib

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fms/src/apperror"
	"fms/src/config"
	"fms/src/types"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// MoMo creates wallet payments by POSTing a signed JSON request and verifies
// the signed IPN body MoMo sends back.
type MoMo struct {
	cfg    config.MoMoConfig
	client *http.Client
}

func NewMoMo(cfg config.MoMoConfig, client *http.Client) *MoMo {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &MoMo{cfg: cfg, client: client}
}

func (m *MoMo) Method() types.PaymentMethod {
	return types.PAYMENT_MOMO
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	ExtraData   string `json:"extraData"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
	Lang        string `json:"lang"`
}

func (m *MoMo) Checkout(ctx context.Context, in types.CheckoutInput) (*types.CheckoutOutput, error) {
	if in.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	extra, err := EncodeMoMoExtraData(in.PaymentID)
	if err != nil {
		return nil, err
	}
	req := momoCreateRequest{
		PartnerCode: m.cfg.PartnerCode,
		AccessKey:   m.cfg.AccessKey,
		RequestID:   uuid.NewString(),
		Amount:      in.Amount,
		OrderID:     in.PaymentID,
		OrderInfo:   in.OrderInfo,
		RedirectURL: m.cfg.RedirectURL,
		IPNURL:      m.cfg.IPNURL,
		ExtraData:   extra,
		RequestType: m.cfg.RequestType,
		Lang:        "vi",
	}
	req.Signature = HMACSHA256Hex(m.cfg.SecretKey, m.createRawSignature(req))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")
	res, err := m.client.Do(httpReq)
	if err != nil {
		log.Printf("[MoMo] create request failed: %s\n", err.Error())
		return nil, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("momo: unexpected response (%d)", res.StatusCode)
	}
	result := gjson.GetBytes(raw, "resultCode")
	if !result.Exists() || result.Int() != 0 {
		log.Printf("[MoMo] payment %s rejected: %s %s\n", in.PaymentID, result.String(), gjson.GetBytes(raw, "message").String())
		return nil, fmt.Errorf("momo: resultCode %s: %s", result.String(), gjson.GetBytes(raw, "message").String())
	}
	return &types.CheckoutOutput{
		PayURL:      gjson.GetBytes(raw, "payUrl").String(),
		ProviderRef: req.RequestID,
	}, nil
}

func (m *MoMo) createRawSignature(r momoCreateRequest) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		m.cfg.AccessKey, r.Amount, r.ExtraData, r.IPNURL, r.OrderID, r.OrderInfo, r.PartnerCode, r.RedirectURL, r.RequestID, r.RequestType,
	)
}

var momoIPNFields = []string{
	"amount", "extraData", "message", "orderId", "orderInfo", "orderType",
	"partnerCode", "payType", "requestId", "responseTime", "resultCode", "transId",
}

// IPNRawSignature rebuilds the string MoMo signs for an IPN body. Numbers are
// taken verbatim from the JSON.
func (m *MoMo) IPNRawSignature(body []byte) string {
	var buf bytes.Buffer
	buf.WriteString("accessKey=" + m.cfg.AccessKey)
	for _, field := range momoIPNFields {
		buf.WriteString("&" + field + "=" + gjson.GetBytes(body, field).String())
	}
	return buf.String()
}

func (m *MoMo) VerifyIPN(body []byte) (*types.CallbackResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperror.New(apperror.Validation, apperror.CodeInvalidRequest, "malformed notification body")
	}
	signature := gjson.GetBytes(body, "signature").String()
	if signature == "" || !VerifyHMACSHA256Hex(m.cfg.SecretKey, m.IPNRawSignature(body), signature) {
		log.Printf("[MoMo] signature mismatch for order %s\n", gjson.GetBytes(body, "orderId").String())
		return nil, apperror.ErrInvalidSignature
	}
	paymentID, err := DecodeMoMoExtraData(gjson.GetBytes(body, "extraData").String())
	if err != nil || paymentID == "" {
		paymentID = gjson.GetBytes(body, "orderId").String()
	}
	resultCode := gjson.GetBytes(body, "resultCode")
	return &types.CallbackResult{
		PaymentID:     paymentID,
		Method:        types.PAYMENT_MOMO,
		Success:       resultCode.Exists() && resultCode.Int() == 0,
		Amount:        gjson.GetBytes(body, "amount").Int(),
		ProviderTxnID: gjson.GetBytes(body, "transId").String(),
		ResultCode:    resultCode.String(),
		Message:       gjson.GetBytes(body, "message").String(),
	}, nil
}

// SignIPN produces the signature MoMo would attach to body. Used by tests and
// by local tooling that replays notifications.
func (m *MoMo) SignIPN(body []byte) string {
	return HMACSHA256Hex(m.cfg.SecretKey, m.IPNRawSignature(body))
}

type momoExtraData struct {
	PaymentID string `json:"paymentId"`
}

func EncodeMoMoExtraData(paymentID string) (string, error) {
	raw, err := json.Marshal(momoExtraData{PaymentID: paymentID})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func DecodeMoMoExtraData(extra string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(extra)
	if err != nil {
		return "", err
	}
	var data momoExtraData
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", err
	}
	return data.PaymentID, nil
}
