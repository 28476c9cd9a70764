package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"library-catalog/library"
)

// maxItemName is Midtrans' limit on item_details.name.
const maxItemName = 50

// coreClient is the part of coreapi.Client the gateway uses.
type coreClient interface {
	ChargeTransaction(req *coreapi.ChargeReq) (*coreapi.ChargeResponse, *midtrans.Error)
	RefundTransaction(param string, req *coreapi.RefundReq) (*coreapi.RefundResponse, *midtrans.Error)
}

// MidtransGateway charges late fees through the Midtrans Core API. The
// library's transaction id is sent as the Midtrans order id, so refunds can
// address the order directly. Amounts travel in minor units.
type MidtransGateway struct {
	client    coreClient
	now       func() time.Time
	refundKey func() string
}

var _ library.PaymentGateway = (*MidtransGateway)(nil)

// NewMidtransGateway builds a gateway for the sandbox, or for production
// when production is true.
func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var c coreapi.Client
	c.New(serverKey, env)
	return newMidtransGateway(&c)
}

func newMidtransGateway(c coreClient) *MidtransGateway {
	return &MidtransGateway{client: c, now: time.Now, refundKey: uuid.NewString}
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// transportFailure reports whether a Midtrans error came from the HTTP
// exchange itself rather than from an API response.
func transportFailure(e *midtrans.Error) bool {
	return e.StatusCode == 0 && e.RawError != nil
}

func successCode(code string) bool {
	return code == "200" || code == "201"
}

func (g *MidtransGateway) ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (library.ChargeResult, error) {
	orderID := fmt.Sprintf("%s%s_%d", library.TransactionPrefix, patronID, g.now().Unix())
	gross := minorUnits(amount)
	name := description
	if len(name) > maxItemName {
		name = name[:maxItemName]
	}
	req := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeGopay,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: gross,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       orderID,
				Price:    gross,
				Qty:      1,
				Name:     name,
				Category: "late-fee",
			},
		},
	}

	type reply struct {
		resp *coreapi.ChargeResponse
		err  *midtrans.Error
	}
	ch := make(chan reply, 1)
	go func() {
		resp, err := g.client.ChargeTransaction(req)
		ch <- reply{resp, err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return library.ChargeResult{}, errors.Wrap(ctx.Err(), "midtrans charge")
	case r = <-ch:
	}

	if r.err != nil {
		if transportFailure(r.err) {
			return library.ChargeResult{}, errors.Wrap(r.err, "midtrans charge")
		}
		return library.ChargeResult{Message: r.err.Message}, nil
	}
	if r.resp == nil {
		return library.ChargeResult{}, errors.New("midtrans charge: empty response")
	}
	switch r.resp.TransactionStatus {
	case "deny", "cancel", "expire", "failure":
		return library.ChargeResult{Message: fmt.Sprintf("transaction %s: %s", r.resp.TransactionStatus, r.resp.StatusMessage)}, nil
	}
	if !successCode(r.resp.StatusCode) {
		return library.ChargeResult{Message: r.resp.StatusMessage}, nil
	}
	return library.ChargeResult{
		Success:       true,
		TransactionID: orderID,
		Message:       fmt.Sprintf("Payment of $%s processed successfully", amount.StringFixed(2)),
	}, nil
}

func (g *MidtransGateway) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (library.RefundResult, error) {
	key := g.refundKey()
	req := &coreapi.RefundReq{
		RefundKey: key,
		Amount:    minorUnits(amount),
		Reason:    "Late fee refund",
	}

	type reply struct {
		resp *coreapi.RefundResponse
		err  *midtrans.Error
	}
	ch := make(chan reply, 1)
	go func() {
		resp, err := g.client.RefundTransaction(transactionID, req)
		ch <- reply{resp, err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return library.RefundResult{}, errors.Wrap(ctx.Err(), "midtrans refund")
	case r = <-ch:
	}

	if r.err != nil {
		if transportFailure(r.err) {
			return library.RefundResult{}, errors.Wrap(r.err, "midtrans refund")
		}
		return library.RefundResult{Message: r.err.Message}, nil
	}
	if r.resp == nil {
		return library.RefundResult{}, errors.New("midtrans refund: empty response")
	}
	if !successCode(r.resp.StatusCode) {
		return library.RefundResult{Message: r.resp.StatusMessage}, nil
	}
	return library.RefundResult{
		Success: true,
		Message: fmt.Sprintf("Refund of $%s processed successfully. Refund ID: %s", amount.StringFixed(2), key),
	}, nil
}
