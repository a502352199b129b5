package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"payment-settlement-go/internal/events"
	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/paylink"
	"payment-settlement-go/internal/settlement"

	"go.uber.org/zap"
)

// Pay settles a single payment for userId. Settlement failures are reported
// in the result; the returned error is reserved for a rejected or unguarded
// attempt (see session.ErrSettlementInFlight).
func (s *PaymentService) Pay(ctx context.Context, userId string, req models.PaymentRequest) (*models.SettlementResult, error) {
	if userId == "" {
		return &models.SettlementResult{Success: false, Error: "user_id is required"}, nil
	}

	zap.L().Info("Processing payment",
		zap.String("user_id", userId),
		zap.String("recipient", req.Recipient),
		zap.String("amount", req.Amount))

	return s.settle(ctx, userId, settlement.SinglePayment(req))
}

// PayBatch settles every item of req in one contract call.
func (s *PaymentService) PayBatch(ctx context.Context, userId string, req models.BatchPaymentRequest) (*models.SettlementResult, error) {
	if userId == "" {
		return &models.SettlementResult{Success: false, Error: "user_id is required"}, nil
	}

	zap.L().Info("Processing batch payment",
		zap.String("user_id", userId),
		zap.Int("items", len(req.Items)))

	return s.settle(ctx, userId, settlement.BatchPayment(req))
}

// PayLink decodes a payment link and settles it. Open links must be completed
// by the payer before they can be paid.
func (s *PaymentService) PayLink(ctx context.Context, userId, link string) (*models.SettlementResult, error) {
	req := paylink.Decode(link)
	if paylink.IsOpen(req) {
		return &models.SettlementResult{Success: false, Error: "payment link is missing a recipient or amount"}, nil
	}
	return s.Pay(ctx, userId, req)
}

func (s *PaymentService) settle(ctx context.Context, userId string, p settlement.Payment) (*models.SettlementResult, error) {
	release, err := s.guard.Acquire(ctx, userId)
	if err != nil {
		zap.L().Warn("Settlement rejected", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to start settlement: %w", err)
	}
	defer release()

	outcome, err := s.engine.Submit(ctx, userId, p)
	if err != nil {
		return s.failed(ctx, userId, err), nil
	}

	s.publish(ctx, events.SettledEvent(userId, outcome.Records, s.now()))

	result := &models.SettlementResult{
		Success: true,
		TxHash:  outcome.TxHash,
		Records: outcome.Records,
		Alerts:  outcome.Alerts,
	}
	if !p.Merchant.IsEmpty() && p.Merchant.RedirectURL != "" {
		result.RedirectURL = redirectWithHash(p.Merchant.RedirectURL, outcome.TxHash)
	}
	return result, nil
}

func (s *PaymentService) failed(ctx context.Context, userId string, err error) *models.SettlementResult {
	result := &models.SettlementResult{Success: false, Error: settlement.UserMessage(err)}

	var serr *settlement.Error
	if errors.As(err, &serr) {
		result.TxHash = serr.TxHash
	}

	switch {
	case errors.Is(err, settlement.ErrInvalidRecipient), errors.Is(err, settlement.ErrInvalidAmount):
		zap.L().Info("Payment rejected", zap.String("user_id", userId), zap.Error(err))
		// nothing reached the chain
		return result
	case errors.Is(err, settlement.ErrPersistence):
		zap.L().Error("Payment settled on-chain but not recorded",
			zap.String("user_id", userId),
			zap.String("tx_hash", result.TxHash),
			zap.Error(err))
	default:
		zap.L().Warn("Payment failed",
			zap.String("user_id", userId),
			zap.String("tx_hash", result.TxHash),
			zap.Error(err))
	}

	s.publish(ctx, events.FailedEvent(userId, result.TxHash, err.Error(), s.now()))
	return result
}

// publish is best effort; an event that cannot be delivered never changes a
// settlement's outcome.
func (s *PaymentService) publish(ctx context.Context, event events.SettlementEvent) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		zap.L().Warn("Unable to publish settlement event",
			zap.String("type", event.Type),
			zap.String("tx_hash", event.TxHash),
			zap.Error(err))
	}
}

// redirectWithHash appends tx_hash to a merchant redirect URL.
func redirectWithHash(redirect, txHash string) string {
	u, err := url.Parse(redirect)
	if err != nil {
		sep := "?"
		if strings.Contains(redirect, "?") {
			sep = "&"
		}
		return redirect + sep + "tx_hash=" + url.QueryEscape(txHash)
	}
	q := u.Query()
	q.Set("tx_hash", txHash)
	u.RawQuery = q.Encode()
	return u.String()
}
