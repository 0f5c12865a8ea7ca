// Package sales runs the sales register: cart editing, checkout and the
// atomic commit of a sale to the persistence layer.
package sales

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"artlicor/backend/internal/cart"
	"artlicor/backend/internal/checkout"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/events"
	"artlicor/backend/internal/logging"
	"artlicor/backend/internal/receipt"
	"artlicor/backend/internal/store"
)

const DefaultCommitTimeout = 15 * time.Second

const (
	ReasonTimeout           = "timeout"
	ReasonInsufficientStock = "insufficient stock"
	ReasonUnknownReference  = "unknown product, customer or payment method"
	ReasonInvalidSale       = "sale rejected as invalid"
	ReasonPersistence       = "persistence error"
)

var (
	ErrCommitFailed         = errors.New("commit failed")
	ErrCommitInFlight       = errors.New("a commit is already in progress")
	ErrInvalidState         = errors.New("operation not allowed in the current register state")
	ErrConfirmationRequired = errors.New("cancelling a sale with items requires confirmation")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrRegisterNotFound     = errors.New("register not found")
)

// CommitError reports a failed commit. It matches ErrCommitFailed and unwraps
// to the underlying persistence error.
type CommitError struct {
	Reason string
	Err    error
}

func (e *CommitError) Error() string {
	return "commit failed: " + e.Reason
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

func (e *CommitError) Is(target error) bool {
	return target == ErrCommitFailed
}

// Committer persists a sale header, its lines and the stock decrements as
// one all-or-nothing operation and returns the assigned sale code.
type Committer interface {
	CommitSale(ctx context.Context, req domain.SaleRequest) (*domain.CommittedSale, error)
}

// Submission is the cart snapshot and checkout input of one commit.
type Submission struct {
	Lines           []cart.Line
	CustomerID      string
	CustomerName    string
	PaymentMethodID string
	TotalCents      int64
	TenderedCents   int64
}

type Outcome struct {
	Sale    domain.CommittedSale `json:"sale"`
	Receipt receipt.Document     `json:"receipt"`
}

type Protocol struct {
	committer Committer
	publisher events.Publisher
	timeout   time.Duration
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewProtocol(committer Committer, publisher events.Publisher, timeout time.Duration, logger *zap.Logger) *Protocol {
	if timeout <= 0 {
		timeout = DefaultCommitTimeout
	}
	return &Protocol{
		committer: committer,
		publisher: publisher,
		timeout:   timeout,
		logger:    logging.OrNop(logger).Named("sales"),
		tracer:    otel.Tracer("artlicor/backend/internal/sales"),
	}
}

type commitResult struct {
	sale *domain.CommittedSale
	err  error
}

// Commit sends sub to the committer. It waits at most the configured timeout;
// the request is not cancelled when the caller goes away. On success it
// publishes a SaleCommitted event and projects the receipt.
func (p *Protocol) Commit(ctx context.Context, sub Submission) (Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "sales.commit", trace.WithAttributes(
		attribute.Int("sale.items", len(sub.Lines)),
		attribute.Int64("sale.total_cents", sub.TotalCents),
	))
	defer span.End()

	req := domain.SaleRequest{
		CustomerID:      sub.CustomerID,
		PaymentMethodID: sub.PaymentMethodID,
		TotalCents:      sub.TotalCents,
		PaidCents:       sub.TenderedCents,
		ChangeCents:     checkout.ComputeChange(sub.TotalCents, sub.TenderedCents),
		Items:           saleItems(sub.Lines),
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	done := make(chan commitResult, 1)
	go func() {
		sale, err := p.committer.CommitSale(commitCtx, req)
		done <- commitResult{sale: sale, err: err}
	}()

	var res commitResult
	select {
	case res = <-done:
	case <-commitCtx.Done():
		res = commitResult{err: commitCtx.Err()}
		go p.logLateResult(done)
	}
	if res.err == nil && res.sale == nil {
		res.err = errors.New("committer returned no sale")
	}

	if res.err != nil {
		commitErr := &CommitError{Reason: reasonFor(res.err), Err: res.err}
		span.RecordError(res.err)
		span.SetStatus(otelcodes.Error, commitErr.Reason)
		p.logger.Warn("sale commit failed",
			zap.String("reason", commitErr.Reason),
			zap.Int("items", len(req.Items)),
			zap.Int64("total_cents", req.TotalCents),
			zap.Error(res.err))
		return Outcome{}, commitErr
	}

	sale := *res.sale
	span.SetAttributes(attribute.Int64("sale.code", sale.Code))
	p.logger.Info("sale committed",
		zap.String("sale_id", sale.ID),
		zap.Int64("sale_code", sale.Code),
		zap.Int64("total_cents", req.TotalCents))

	// The sale is durable at this point; cache invalidation must not depend on
	// the caller still waiting.
	if p.publisher != nil {
		p.publisher.Publish(context.WithoutCancel(ctx), events.Event{
			Kind:       events.SaleCommitted,
			ProductIDs: productIDs(req.Items),
			SaleCode:   sale.Code,
		})
	}

	doc := receipt.Project(receipt.Input{
		SaleCode:     sale.Code,
		Items:        receipt.ItemsFromCart(sub.Lines),
		TotalCents:   req.TotalCents,
		PaidCents:    req.PaidCents,
		ChangeCents:  req.ChangeCents,
		CustomerName: sub.CustomerName,
		IssuedAt:     sale.CreatedAt,
	})
	return Outcome{Sale: sale, Receipt: doc}, nil
}

// logLateResult records what happened to a commit after its caller timed out.
// A late success means the sale exists even though the operator saw a failure.
func (p *Protocol) logLateResult(done <-chan commitResult) {
	res := <-done
	if res.err == nil && res.sale != nil {
		p.logger.Error("sale committed after timeout",
			zap.String("sale_id", res.sale.ID),
			zap.Int64("sale_code", res.sale.Code))
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, store.ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, store.ErrNotFound):
		return ReasonUnknownReference
	case errors.Is(err, store.ErrInvalidInput):
		return ReasonInvalidSale
	default:
		return ReasonPersistence
	}
}

func saleItems(lines []cart.Line) []domain.SaleItemRequest {
	items := make([]domain.SaleItemRequest, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.SaleItemRequest{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			UnitPriceCents:  l.UnitPriceCents,
			TotalPriceCents: l.SubtotalCents,
		})
	}
	return items
}

func productIDs(items []domain.SaleItemRequest) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}
