package gateway

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/bagisva/vpos-gateway/internal/config"
	"github.com/bagisva/vpos-gateway/internal/domain"
)

// Primary field sequence for the redirect MAC. The order is part of the
// wire contract and is declared to the gateway via the hashparams field.
var primaryMACParams = []string{
	"clientid", "oid", "pan", "cv2", "expiry", "amount", "okUrl", "failUrl", "rnd",
}

// PrimaryAdapter talks to the default VPOS: an EST-3D-style hosted payment
// page with a storekey-based hash and an XML order API for out-of-band
// operations. Recurring payments are always processed here.
type PrimaryAdapter struct {
	cfg        config.PrimaryConfig
	httpClient *http.Client
}

func NewPrimaryAdapter(cfg config.PrimaryConfig) *PrimaryAdapter {
	return &PrimaryAdapter{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.ConnTimeout),
	}
}

func (a *PrimaryAdapter) Kind() domain.GatewayKind {
	return domain.GatewayPrimary
}

// BuildRedirect assembles the hosted-page form. Card data lives only for
// the duration of this call and the MAC computation.
func (a *PrimaryAdapter) BuildRedirect(order *domain.Order, card Card) (*RedirectForm, error) {
	rnd, err := randomToken()
	if err != nil {
		return nil, domain.NewSignatureError(err)
	}

	amount := amountString(order.TotalAmountKurus)
	mac, err := Sign(a.cfg.StoreKey,
		a.cfg.ClientID,
		order.OrderID,
		card.Number,
		card.CVV,
		card.Expiry,
		amount,
		a.cfg.OkURL,
		a.cfg.FailURL,
		rnd,
	)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		"clientid":    a.cfg.ClientID,
		"storetype":   "3d_pay",
		"oid":         order.OrderID,
		"amount":      amount,
		"currency":    "949",
		"installment": "00",
		"okUrl":       a.cfg.OkURL,
		"failUrl":     a.cfg.FailURL,
		"rnd":         rnd,
		"lang":        a.cfg.Language,
		"pan":         card.Number,
		"cv2":         card.CVV,
		"expiry":      card.Expiry,
		"cardholder":  card.Holder,
		"hash":        mac,
		"hashparams":  strings.Join(primaryMACParams, ":"),
	}

	if order.IsRecurring {
		fields["RecurringFrequencyUnit"] = "M"
		fields["RecurringFrequency"] = "1"
		if a.cfg.RecurringPaymentNumber > 0 {
			fields["RecurringPaymentNumber"] = strconv.Itoa(a.cfg.RecurringPaymentNumber)
		}
	}

	return &RedirectForm{
		Action: a.cfg.TDSURL,
		Method: http.MethodPost,
		Fields: fields,
		MAC:    mac,
	}, nil
}

// InterpretCallback validates the return hash, then maps mdStatus
// (authentication strength) and ProcReturnCode (transaction result) onto
// the canonical taxonomy. Only mdStatus 1 + ProcReturnCode 00 verifies.
func (a *PrimaryAdapter) InterpretCallback(fields map[string]string) (*CallbackResult, error) {
	orderID := fields["oid"]
	if orderID == "" {
		return nil, domain.NewValidationError("oid", "callback is missing the order ID")
	}

	if err := a.verifyReturnHash(fields); err != nil {
		return nil, err
	}

	mdStatus := fields["mdStatus"]
	procReturnCode := fields["ProcReturnCode"]
	errMsg := fields["ErrMsg"]

	var outcome *domain.Outcome
	switch mdStatus {
	case "1":
		if procReturnCode == "00" {
			outcome = domain.VerifiedOutcome(mdStatus, procReturnCode, fields["AuthCode"], transactionID(fields))
		} else {
			outcome = domain.RejectedOutcome(domain.ReasonDeclined, mdStatus, procReturnCode, errMsg)
		}
	case "2", "3":
		outcome = domain.RejectedOutcome(domain.ReasonNotEnrolled, mdStatus, procReturnCode, errMsg)
	case "4":
		outcome = domain.RejectedOutcome(domain.ReasonAttempted, mdStatus, procReturnCode, errMsg)
	case "0", "5":
		outcome = domain.RejectedOutcome(domain.ReasonAuthFailed, mdStatus, procReturnCode, errMsg)
	case "6", "7":
		outcome = domain.RejectedOutcome(domain.ReasonGatewayError, mdStatus, procReturnCode, errMsg)
	case "8":
		outcome = domain.RejectedOutcome(domain.ReasonUnknownCard, mdStatus, procReturnCode, errMsg)
	default:
		return nil, domain.NewValidationError("mdStatus",
			fmt.Sprintf("unrecognized authentication status code %q", mdStatus))
	}

	return &CallbackResult{OrderID: orderID, Outcome: outcome}, nil
}

// Field names that must appear in HASHPARAMS before a callback hash is
// accepted. HASHPARAMS arrives with the post, so a valid hash over a field
// list that skips these names proves nothing about the outcome fields.
var primaryReturnHashRequired = []string{"oid", "mdStatus", "ProcReturnCode"}

// verifyReturnHash recomputes the callback hash over the fields the
// gateway declares in HASHPARAMS. The declared list must cover the order
// ID and both status codes; an unauthenticated callback is never trusted,
// whatever its status codes say.
func (a *PrimaryAdapter) verifyReturnHash(fields map[string]string) error {
	received := fields["HASH"]
	params := fields["HASHPARAMS"]
	if received == "" || params == "" {
		return domain.NewValidationError("HASH", "callback is missing the return hash")
	}

	names := strings.Split(params, ":")
	covered := make(map[string]bool, len(names))
	values := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		covered[name] = true
		values = append(values, fields[name])
	}

	for _, name := range primaryReturnHashRequired {
		if !covered[name] {
			return domain.NewValidationError("HASHPARAMS",
				fmt.Sprintf("return hash does not cover %s", name))
		}
	}

	ok, err := VerifyMAC(a.cfg.StoreKey, received, values...)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewValidationError("HASH", "callback return hash mismatch")
	}
	return nil
}

// Inquire queries order status through the XML order API.
func (a *PrimaryAdapter) Inquire(ctx context.Context, orderID string) (*InquiryResult, error) {
	req := a.newOrderRequest(orderID)
	extra := req.Root().CreateElement("Extra")
	extra.CreateElement("ORDERSTATUS").SetText("QUERY")

	resp, err := a.postXML(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("primary inquiry: %w", err)
	}

	procReturnCode := xmlText(resp, "//ProcReturnCode")
	return &InquiryResult{
		OrderID:      orderID,
		ResponseCode: procReturnCode,
		Approved:     procReturnCode == "00",
		RawStatus:    xmlText(resp, "//Response"),
	}, nil
}

// Void cancels a transaction before settlement.
func (a *PrimaryAdapter) Void(ctx context.Context, transactionID string, amountKurus int64) error {
	return a.reversal(ctx, "Void", transactionID, amountKurus)
}

// Refund returns funds after settlement.
func (a *PrimaryAdapter) Refund(ctx context.Context, transactionID string, amountKurus int64) error {
	return a.reversal(ctx, "Credit", transactionID, amountKurus)
}

func (a *PrimaryAdapter) reversal(ctx context.Context, txType, transactionID string, amountKurus int64) error {
	req := a.newOrderRequest("")
	root := req.Root()
	root.CreateElement("Type").SetText(txType)
	root.CreateElement("TransId").SetText(transactionID)
	root.CreateElement("Total").SetText(amountString(amountKurus))

	resp, err := a.postXML(ctx, req)
	if err != nil {
		return fmt.Errorf("primary %s: %w", strings.ToLower(txType), err)
	}

	if code := xmlText(resp, "//ProcReturnCode"); code != "00" {
		return &GatewayError{
			Code:       code,
			Message:    xmlText(resp, "//ErrMsg"),
			StatusCode: http.StatusOK,
		}
	}
	return nil
}

// UpdateRecurringAmount changes the charge amount of a registered
// recurring order for its remaining installments.
func (a *PrimaryAdapter) UpdateRecurringAmount(ctx context.Context, recordID string, amountKurus int64) error {
	req := a.newOrderRequest("")
	extra := req.Root().CreateElement("Extra")
	extra.CreateElement("RECURRINGOPERATION").SetText("Update")
	extra.CreateElement("RECORDTYPE").SetText("Order")
	extra.CreateElement("RECORDID").SetText(recordID)
	extra.CreateElement("AMOUNT").SetText(amountString(amountKurus))

	resp, err := a.postXML(ctx, req)
	if err != nil {
		return fmt.Errorf("primary recurring update: %w", err)
	}

	if code := xmlText(resp, "//ProcReturnCode"); code != "" && code != "00" {
		return &GatewayError{
			Code:       code,
			Message:    xmlText(resp, "//ErrMsg"),
			StatusCode: http.StatusOK,
		}
	}
	return nil
}

func (a *PrimaryAdapter) newOrderRequest(orderID string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("CC5Request")
	root.CreateElement("Name").SetText(a.cfg.APIUser)
	root.CreateElement("Password").SetText(a.cfg.APIPassword)
	root.CreateElement("ClientId").SetText(a.cfg.ClientID)
	if orderID != "" {
		root.CreateElement("OrderId").SetText(orderID)
	}
	return doc
}

func (a *PrimaryAdapter) postXML(ctx context.Context, doc *etree.Document) (*etree.Document, error) {
	payload, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("error serializing xml request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIURL, bytes.NewBufferString(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=UTF-8")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	respDoc := etree.NewDocument()
	if err := respDoc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("error parsing xml response: %w", err)
	}
	return respDoc, nil
}

func xmlText(doc *etree.Document, path string) string {
	if el := doc.FindElement(path); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

func transactionID(fields map[string]string) string {
	if id := fields["TransId"]; id != "" {
		return id
	}
	return fields["HostRefNum"]
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
