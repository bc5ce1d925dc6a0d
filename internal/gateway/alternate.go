package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bagisva/vpos-gateway/internal/config"
	"github.com/bagisva/vpos-gateway/internal/domain"
)

// ErrDirectSaleForbidden rejects a non-3D transaction outside test mode.
var ErrDirectSaleForbidden = errors.New("direct sale is only allowed in test mode")

// Alternate field sequence for the redirect MAC, declared via MacParams.
var alternateMACParams = []string{
	"MerchantNo", "TerminalNo", "CardNo", "Cvv", "ExpireDate", "Amount",
}

// AlternateAdapter talks to the alternate VPOS: a PosNet-style API where
// the card data is posted with the redirect form, the MAC covers the card
// fields, and callbacks carry MdStatus plus a 0000-sentinel ResponseCode.
// One-off payments on eligible BINs land here.
type AlternateAdapter struct {
	cfg        config.AlternateConfig
	httpClient *http.Client
}

func NewAlternateAdapter(cfg config.AlternateConfig) *AlternateAdapter {
	return &AlternateAdapter{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.ConnTimeout),
	}
}

func (a *AlternateAdapter) Kind() domain.GatewayKind {
	return domain.GatewayAlternate
}

// BuildRedirect assembles the 3D-Secure form. MAC formula:
// base64(SHA256(MerchantNo + TerminalNo + CardNo + Cvv + ExpireDate +
// Amount + EncKey)), amount in integer kurus.
func (a *AlternateAdapter) BuildRedirect(order *domain.Order, card Card) (*RedirectForm, error) {
	amount := amountString(order.TotalAmountKurus)
	mac, err := Sign(a.cfg.EncKey,
		a.cfg.MerchantNo,
		a.cfg.TerminalNo,
		card.Number,
		card.CVV,
		card.Expiry,
		amount,
	)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		"MerchantNo":  a.cfg.MerchantNo,
		"TerminalNo":  a.cfg.TerminalNo,
		"PosnetID":    a.cfg.EposNo,
		"OrderId":     order.OrderID,
		"TranType":    "Sale",
		"Amount":      amount,
		"Currency":    order.Currency,
		"Installment": "00",
		"Lang":        "tr",

		"CardNo":     card.Number,
		"Cvv":        card.CVV,
		"ExpireDate": card.Expiry,
		"CardHolder": card.Holder,

		"Mac":       mac,
		"MacParams": strings.Join(alternateMACParams, ":"),

		"MerchantReturnURL": a.cfg.CallbackURL,
		"SuccessURL":        a.cfg.SuccessURL,
		"FailURL":           a.cfg.FailURL,

		"OpenANewWindow": "0",
	}

	return &RedirectForm{
		Action: a.cfg.TDSURL,
		Method: http.MethodPost,
		Fields: fields,
		MAC:    mac,
	}, nil
}

// InterpretCallback validates the return MAC, then maps MdStatus
// (authentication strength) and ResponseCode (transaction result, 0000 =
// success) onto the canonical taxonomy.
func (a *AlternateAdapter) InterpretCallback(fields map[string]string) (*CallbackResult, error) {
	orderID := fields["OrderId"]
	if orderID == "" {
		return nil, domain.NewValidationError("OrderId", "callback is missing the order ID")
	}

	if err := a.verifyReturnMAC(fields); err != nil {
		return nil, err
	}

	mdStatus := fields["MdStatus"]
	responseCode := fields["ResponseCode"]
	message := fields["ResponseMessage"]

	var outcome *domain.Outcome
	switch mdStatus {
	case "1":
		if responseCode == "0000" {
			outcome = domain.VerifiedOutcome(mdStatus, responseCode, fields["AuthCode"], fields["HostRefNum"])
		} else {
			outcome = domain.RejectedOutcome(domain.ReasonDeclined, mdStatus, responseCode, message)
		}
	case "2", "3":
		outcome = domain.RejectedOutcome(domain.ReasonNotEnrolled, mdStatus, responseCode, message)
	case "4":
		outcome = domain.RejectedOutcome(domain.ReasonAttempted, mdStatus, responseCode, message)
	case "0", "5":
		outcome = domain.RejectedOutcome(domain.ReasonAuthFailed, mdStatus, responseCode, message)
	default:
		return nil, domain.NewValidationError("MdStatus",
			fmt.Sprintf("unrecognized authentication status code %q", mdStatus))
	}

	return &CallbackResult{OrderID: orderID, Outcome: outcome}, nil
}

// verifyReturnMAC checks callback authenticity:
// base64(SHA256(MerchantNo + TerminalNo + OrderId + Amount + MdStatus +
// ResponseCode + EncKey)) against the Mac field. MdStatus and ResponseCode
// must be inside the MAC input: everything InterpretCallback decides on has
// to be bound to the signature, or a forwarder could rewrite the
// authentication strength without invalidating the Mac.
func (a *AlternateAdapter) verifyReturnMAC(fields map[string]string) error {
	received := fields["Mac"]
	if received == "" {
		return domain.NewValidationError("Mac", "callback is missing the return MAC")
	}

	ok, err := VerifyMAC(a.cfg.EncKey, received,
		a.cfg.MerchantNo,
		a.cfg.TerminalNo,
		fields["OrderId"],
		fields["Amount"],
		fields["MdStatus"],
		fields["ResponseCode"],
	)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewValidationError("Mac", "callback return MAC mismatch")
	}
	return nil
}

type alternateSaleRequest struct {
	MerchantNo  string `json:"MerchantNo"`
	TerminalNo  string `json:"TerminalNo"`
	PosnetID    string `json:"PosnetID"`
	OrderID     string `json:"OrderId"`
	Amount      int64  `json:"Amount"`
	Currency    string `json:"Currency"`
	CardNo      string `json:"CardNo,omitempty"`
	Cvv         string `json:"Cvv,omitempty"`
	ExpireDate  string `json:"ExpireDate,omitempty"`
	Installment string `json:"Installment,omitempty"`
	HostRefNum  string `json:"HostRefNum,omitempty"`
}

type alternateSaleResponse struct {
	ResponseCode    string `json:"ResponseCode"`
	ResponseMessage string `json:"ResponseMessage"`
	OrderID         string `json:"OrderId"`
	AuthCode        string `json:"AuthCode"`
	HostRefNum      string `json:"HostRefNum"`
}

// DirectSale runs a non-3D transaction. It exists for internal testing
// only and is rejected outside test mode; outcomes use the same taxonomy
// as the 3D path, with authentication strength pinned to full.
func (a *AlternateAdapter) DirectSale(ctx context.Context, order *domain.Order, card Card) (*domain.Outcome, error) {
	if !a.cfg.TestMode {
		return nil, ErrDirectSaleForbidden
	}

	req := alternateSaleRequest{
		MerchantNo:  a.cfg.MerchantNo,
		TerminalNo:  a.cfg.TerminalNo,
		PosnetID:    a.cfg.EposNo,
		OrderID:     order.OrderID,
		Amount:      order.TotalAmountKurus,
		Currency:    order.Currency,
		CardNo:      card.Number,
		Cvv:         card.CVV,
		ExpireDate:  card.Expiry,
		Installment: "00",
	}

	resp, err := sendRequest[alternateSaleRequest, alternateSaleResponse](
		a.httpClient, ctx, a.cfg.APIURL+"/Sale", &req, a.correlationHeaders(order.OrderID))
	if err != nil {
		return nil, fmt.Errorf("alternate direct sale: %w", err)
	}

	if resp.ResponseCode == "0000" {
		return domain.VerifiedOutcome("1", resp.ResponseCode, resp.AuthCode, resp.HostRefNum), nil
	}
	return domain.RejectedOutcome(domain.ReasonDeclined, "1", resp.ResponseCode, resp.ResponseMessage), nil
}

// Inquire queries the status of an order.
func (a *AlternateAdapter) Inquire(ctx context.Context, orderID string) (*InquiryResult, error) {
	req := alternateSaleRequest{
		MerchantNo: a.cfg.MerchantNo,
		TerminalNo: a.cfg.TerminalNo,
		PosnetID:   a.cfg.EposNo,
		OrderID:    orderID,
	}

	resp, err := sendRequest[alternateSaleRequest, alternateSaleResponse](
		a.httpClient, ctx, a.cfg.APIURL+"/TransactionInquiry", &req, a.correlationHeaders("INQ-"+orderID))
	if err != nil {
		return nil, fmt.Errorf("alternate inquiry: %w", err)
	}

	return &InquiryResult{
		OrderID:      orderID,
		ResponseCode: resp.ResponseCode,
		Approved:     resp.ResponseCode == "0000",
		RawStatus:    resp.ResponseMessage,
	}, nil
}

// Void cancels a transaction before end-of-day settlement.
func (a *AlternateAdapter) Void(ctx context.Context, transactionID string, amountKurus int64) error {
	return a.reversal(ctx, "/Void", "VOID-", transactionID, amountKurus)
}

// Refund returns funds after settlement.
func (a *AlternateAdapter) Refund(ctx context.Context, transactionID string, amountKurus int64) error {
	return a.reversal(ctx, "/Refund", "REFUND-", transactionID, amountKurus)
}

func (a *AlternateAdapter) reversal(ctx context.Context, endpoint, correlationPrefix, transactionID string, amountKurus int64) error {
	req := alternateSaleRequest{
		MerchantNo: a.cfg.MerchantNo,
		TerminalNo: a.cfg.TerminalNo,
		HostRefNum: transactionID,
		Amount:     amountKurus,
	}

	resp, err := sendRequest[alternateSaleRequest, alternateSaleResponse](
		a.httpClient, ctx, a.cfg.APIURL+endpoint, &req, a.correlationHeaders(correlationPrefix+transactionID))
	if err != nil {
		return fmt.Errorf("alternate%s: %w", strings.ToLower(endpoint), err)
	}

	if resp.ResponseCode != "0000" {
		return &GatewayError{
			Code:       resp.ResponseCode,
			Message:    resp.ResponseMessage,
			StatusCode: http.StatusOK,
		}
	}
	return nil
}

func (a *AlternateAdapter) correlationHeaders(correlationID string) map[string]string {
	return map[string]string{
		"X-MERCHANT-ID":    a.cfg.MerchantNo,
		"X-TERMINAL-ID":    a.cfg.TerminalNo,
		"X-POSNET-ID":      a.cfg.EposNo,
		"X-CORRELATION-ID": correlationID,
	}
}
