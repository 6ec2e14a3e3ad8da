package lib

import (
	"context"
	"errors"
	"fms/src/apperror"
	"fms/src/config"
	"fms/src/types"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	vnpVersion      = "2.1.0"
	vnpDateLayout   = "20060102150405"
	vnpSecureHash   = "vnp_SecureHash"
	vnpHashType     = "vnp_SecureHashType"
	paymentInfoTag  = "payment:"
	paymentInfoStop = "|"
)

// VNPay builds signed redirect URLs and verifies return/IPN query strings.
type VNPay struct {
	cfg config.VNPayConfig
	loc *time.Location
	now func() time.Time
}

func NewVNPay(cfg config.VNPayConfig, loc *time.Location) *VNPay {
	if loc == nil {
		loc = time.FixedZone("ICT", 7*60*60)
	}
	return &VNPay{cfg: cfg, loc: loc, now: time.Now}
}

func (v *VNPay) Method() types.PaymentMethod {
	return types.PAYMENT_VNPAY
}

func (v *VNPay) Checkout(ctx context.Context, in types.CheckoutInput) (*types.CheckoutOutput, error) {
	if in.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	now := v.now().In(v.loc)
	ip := in.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	params := url.Values{}
	params.Set("vnp_Version", vnpVersion)
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", v.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(in.Amount*100, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", in.PaymentID)
	params.Set("vnp_OrderInfo", EmbedPaymentID(in.PaymentID, in.OrderInfo))
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", v.cfg.Locale)
	params.Set("vnp_ReturnUrl", v.cfg.ReturnURL)
	params.Set("vnp_IpAddr", ip)
	params.Set("vnp_CreateDate", now.Format(vnpDateLayout))
	params.Set("vnp_ExpireDate", now.Add(v.cfg.ExpireIn).Format(vnpDateLayout))

	canonical := VNPayCanonical(params)
	payURL := fmt.Sprintf("%s?%s&%s=%s", v.cfg.PayURL, canonical, vnpSecureHash, HMACSHA256Hex(v.cfg.HashSecret, canonical))
	log.Printf("[VNPay] checkout created for payment %s\n", in.PaymentID)
	return &types.CheckoutOutput{PayURL: payURL, ProviderRef: in.PaymentID}, nil
}

// VNPayCanonical sorts keys, drops empty values and the hash fields, and
// joins key=value pairs with '&' using query escaping.
func VNPayCanonical(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == vnpSecureHash || k == vnpHashType || params.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params.Get(k)))
	}
	return strings.Join(parts, "&")
}

func (v *VNPay) Sign(params url.Values) string {
	return HMACSHA256Hex(v.cfg.HashSecret, VNPayCanonical(params))
}

// VerifyReturn authenticates a return or IPN query. A bad signature yields
// ErrInvalidSignature and nothing else is read from the parameters.
func (v *VNPay) VerifyReturn(params url.Values) (*types.CallbackResult, error) {
	received := params.Get(vnpSecureHash)
	if received == "" || !VerifyHMACSHA256Hex(v.cfg.HashSecret, VNPayCanonical(params), received) {
		log.Printf("[VNPay] signature mismatch for txn %s\n", params.Get("vnp_TxnRef"))
		return nil, apperror.ErrInvalidSignature
	}
	paymentID, ok := ExtractPaymentID(params.Get("vnp_OrderInfo"))
	if !ok {
		paymentID = params.Get("vnp_TxnRef")
	}
	rawAmount, err := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.Validation, apperror.CodeInvalidAmount, "amount is not a number")
	}
	responseCode := params.Get("vnp_ResponseCode")
	return &types.CallbackResult{
		PaymentID:     paymentID,
		Method:        types.PAYMENT_VNPAY,
		Success:       responseCode == "00" && params.Get("vnp_TransactionStatus") == "00",
		Amount:        rawAmount / 100,
		ProviderTxnID: params.Get("vnp_TransactionNo"),
		ResultCode:    responseCode,
		Message:       params.Get("vnp_BankCode"),
	}, nil
}

// VNPayIPNResponse maps the outcome of applying an IPN to the acknowledgement
// VNPay expects.
func VNPayIPNResponse(status types.CompletionStatus, err error) types.VNPayIPNResponse {
	if err == nil {
		switch status {
		case types.COMPLETION_ALREADY_PROCESSED, types.COMPLETION_REFUND_REQUIRED:
			// the payment was recorded; the order no longer takes it
			return types.VNPayIPNResponse{RspCode: "02", Message: "Order already confirmed"}
		}
		return types.VNPayIPNResponse{RspCode: "00", Message: "Confirm Success"}
	}
	switch {
	case errors.Is(err, apperror.ErrInvalidSignature):
		return types.VNPayIPNResponse{RspCode: "97", Message: "Invalid signature"}
	case errors.Is(err, apperror.ErrPaymentNotFound):
		return types.VNPayIPNResponse{RspCode: "01", Message: "Order not found"}
	case errors.Is(err, apperror.ErrInvalidAmount):
		return types.VNPayIPNResponse{RspCode: "04", Message: "Invalid amount"}
	}
	return types.VNPayIPNResponse{RspCode: "99", Message: "Unknown error"}
}

// EmbedPaymentID prefixes free text with "payment:<id>|".
func EmbedPaymentID(paymentID, info string) string {
	return paymentInfoTag + paymentID + paymentInfoStop + info
}

func ExtractPaymentID(info string) (string, bool) {
	rest, ok := strings.CutPrefix(info, paymentInfoTag)
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, paymentInfoStop)
	if id == "" {
		return "", false
	}
	return id, true
}
