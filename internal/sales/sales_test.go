package sales

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artlicor/backend/internal/checkout"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/events"
	"artlicor/backend/internal/store"
)

type committerStub struct {
	mu       sync.Mutex
	calls    []domain.SaleRequest
	err      error
	block    chan struct{}
	nextCode int64
}

func (c *committerStub) CommitSale(ctx context.Context, req domain.SaleRequest) (*domain.CommittedSale, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()

	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextCode++
	return &domain.CommittedSale{ID: fmt.Sprintf("sale-%d", c.nextCode), Code: c.nextCode, CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}, nil
}

func (c *committerStub) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// ctxPublisher records whether the publish context was already done.
type ctxPublisher struct {
	mu   sync.Mutex
	errs []error
}

func (p *ctxPublisher) Publish(ctx context.Context, _ events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, ctx.Err())
}

// cancellingCommitter cancels the caller's context while the sale is written.
type cancellingCommitter struct {
	Committer
	cancel context.CancelFunc
}

func (c cancellingCommitter) CommitSale(ctx context.Context, req domain.SaleRequest) (*domain.CommittedSale, error) {
	c.cancel()
	return c.Committer.CommitSale(ctx, req)
}

var (
	productA = domain.Product{ID: "a", Code: "ART0001", Description: "Whisky Red Label 1L", SalePriceCents: 1000, StockQuantity: 10}
	productB = domain.Product{ID: "b", Code: "ART0002", Description: "Gelo 5kg", SalePriceCents: 550, StockQuantity: 10}
)

func readyRegister(t *testing.T) *Register {
	t.Helper()
	reg := NewRegister("reg_test")
	_, err := reg.Add(productA)
	require.NoError(t, err)
	_, err = reg.Add(productA)
	require.NoError(t, err)
	_, err = reg.Add(productB)
	require.NoError(t, err)
	view, err := reg.OpenCheckout()
	require.NoError(t, err)
	require.Equal(t, int64(2550), view.TotalCents)
	return reg
}

func TestConfirmCommitsClearsCartAndPublishes(t *testing.T) {
	committer := &committerStub{nextCode: 41}
	pub := &recordingPublisher{}
	protocol := NewProtocol(committer, pub, time.Second, nil)
	reg := readyRegister(t)

	outcome, err := reg.Confirm(context.Background(), protocol, checkout.Details{PaymentMethodID: "pg01", TenderedCents: 3000}, "Maria")
	require.NoError(t, err)

	assert.Equal(t, int64(42), outcome.Sale.Code)
	assert.Equal(t, "ART-0042", outcome.Receipt.Number)
	assert.Equal(t, int64(450), outcome.Receipt.ChangeCents)
	assert.Equal(t, "Maria", outcome.Receipt.CustomerName)
	require.Len(t, outcome.Receipt.Items, 2)

	view := reg.View()
	assert.Equal(t, StateEmpty, view.State)
	assert.Empty(t, view.Lines)
	assert.False(t, view.Pending)
	assert.Equal(t, EventCommitted, view.LastEvent)

	require.Equal(t, 1, pub.count())
	assert.Equal(t, events.SaleCommitted, pub.events[0].Kind)
	assert.Equal(t, []string{"a", "b"}, pub.events[0].ProductIDs)

	req := committer.calls[0]
	assert.Equal(t, int64(2550), req.TotalCents)
	assert.Equal(t, int64(3000), req.PaidCents)
	assert.Equal(t, int64(450), req.ChangeCents)
	assert.Equal(t, domain.SaleItemRequest{ProductID: "a", Quantity: 2, UnitPriceCents: 1000, TotalPriceCents: 2000}, req.Items[0])
}

func TestConfirmPublishesAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := &ctxPublisher{}
	protocol := NewProtocol(cancellingCommitter{Committer: &committerStub{}, cancel: cancel}, pub, time.Second, nil)
	reg := readyRegister(t)

	_, err := reg.Confirm(ctx, protocol, checkout.Details{PaymentMethodID: "pg01", TenderedCents: 3000}, "")
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	require.Len(t, pub.errs, 1)
	assert.NoError(t, pub.errs[0])
}

func TestConfirmFailureKeepsCart(t *testing.T) {
	committer := &committerStub{err: fmt.Errorf("rpc: %w", store.ErrInsufficientStock)}
	pub := &recordingPublisher{}
	protocol := NewProtocol(committer, pub, time.Second, nil)
	reg := readyRegister(t)
	before := reg.View().Lines

	outcome, err := reg.Confirm(context.Background(), protocol, checkout.Details{PaymentMethodID: "pg01", TenderedCents: 3000}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommitFailed))
	assert.True(t, errors.Is(err, store.ErrInsufficientStock))

	var commitErr *CommitError
	require.True(t, errors.As(err, &commitErr))
	assert.Equal(t, ReasonInsufficientStock, commitErr.Reason)
	assert.Zero(t, outcome.Sale.Code)

	view := reg.View()
	assert.Equal(t, StateBuilding, view.State)
	assert.Equal(t, before, view.Lines)
	assert.Equal(t, EventCommitFailed, view.LastEvent)
	assert.Equal(t, 0, pub.count())
}

func TestConfirmRetryAfterFailure(t *testing.T) {
	committer := &committerStub{err: errors.New("connection reset")}
	protocol := NewProtocol(committer, nil, time.Second, nil)
	reg := readyRegister(t)
	details := checkout.Details{PaymentMethodID: "pg01", TenderedCents: 2550}

	_, err := reg.Confirm(context.Background(), protocol, details, "")
	require.ErrorIs(t, err, ErrCommitFailed)

	committer.err = nil
	_, err = reg.OpenCheckout()
	require.NoError(t, err)
	outcome, err := reg.Confirm(context.Background(), protocol, details, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), outcome.Receipt.ChangeCents)
	assert.Equal(t, 2, committer.callCount())
}

func TestConfirmTimesOut(t *testing.T) {
	committer := &committerStub{block: make(chan struct{})}
	protocol := NewProtocol(committer, nil, 20*time.Millisecond, nil)
	reg := readyRegister(t)

	_, err := reg.Confirm(context.Background(), protocol, checkout.Details{PaymentMethodID: "pg01", TenderedCents: 3000}, "")
	var commitErr *CommitError
	require.True(t, errors.As(err, &commitErr))
	assert.Equal(t, ReasonTimeout, commitErr.Reason)
	assert.Equal(t, 3, reg.View().Lines[0].Quantity+reg.View().Lines[1].Quantity)
	assert.False(t, reg.Pending())
}

func TestConfirmRejectsSecondSubmitWhilePending(t *testing.T) {
	committer := &committerStub{block: make(chan struct{})}
	protocol := NewProtocol(committer, nil, 5*time.Second, nil)
	reg := readyRegister(t)
	details := checkout.Details{PaymentMethodID: "pg01", TenderedCents: 3000}

	errs := make(chan error, 1)
	go func() {
		_, err := reg.Confirm(context.Background(), protocol, details, "")
		errs <- err
	}()

	require.Eventually(t, reg.Pending, time.Second, time.Millisecond)

	_, err := reg.Confirm(context.Background(), protocol, details, "")
	assert.ErrorIs(t, err, ErrCommitInFlight)
	_, err = reg.Add(productB)
	assert.ErrorIs(t, err, ErrCommitInFlight)
	_, err = reg.Cancel(true)
	assert.ErrorIs(t, err, ErrCommitInFlight)
	assert.True(t, reg.View().Pending)

	close(committer.block)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, committer.callCount())
}

func TestConfirmValidatesBeforeCommit(t *testing.T) {
	committer := &committerStub{}
	protocol := NewProtocol(committer, nil, time.Second, nil)
	reg := readyRegister(t)

	_, err := reg.Confirm(context.Background(), protocol, checkout.Details{TenderedCents: 3000}, "")
	assert.ErrorIs(t, err, checkout.ErrMissingPaymentMethod)

	_, err = reg.Confirm(context.Background(), protocol, checkout.Details{PaymentMethodID: "pg01", TenderedCents: 2000}, "")
	assert.ErrorIs(t, err, checkout.ErrInsufficientPayment)

	assert.Equal(t, 0, committer.callCount())
	assert.Equal(t, StateCheckoutOpen, reg.View().State)
}

func TestStateTransitions(t *testing.T) {
	reg := NewRegister("r")
	assert.Equal(t, StateEmpty, reg.View().State)

	_, err := reg.OpenCheckout()
	assert.ErrorIs(t, err, ErrEmptyCart)

	view, err := reg.Add(productA)
	require.NoError(t, err)
	assert.Equal(t, StateBuilding, view.State)

	view, err = reg.OpenCheckout()
	require.NoError(t, err)
	assert.Equal(t, StateCheckoutOpen, view.State)

	_, err = reg.Add(productB)
	assert.ErrorIs(t, err, ErrInvalidState)

	quote, err := reg.Quote(checkout.Details{PaymentMethodID: "pg", TenderedCents: 2000})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.ChangeCents)

	view, err = reg.CloseCheckout()
	require.NoError(t, err)
	assert.Equal(t, StateBuilding, view.State)

	_, err = reg.Quote(checkout.Details{})
	assert.ErrorIs(t, err, ErrInvalidState)

	view, err = reg.Remove("a")
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, view.State)
}

func TestCancelRequiresConfirmationWhenNotEmpty(t *testing.T) {
	reg := NewRegister("r")
	_, err := reg.Cancel(false)
	require.NoError(t, err)

	_, err = reg.Add(productA)
	require.NoError(t, err)

	_, err = reg.Cancel(false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, 1, len(reg.View().Lines))

	view, err := reg.Cancel(true)
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, view.State)
	assert.Equal(t, EventCancelled, view.LastEvent)
	assert.Empty(t, view.Lines)
}

func TestRegistry(t *testing.T) {
	g := NewRegistry()
	reg := g.Open()

	got, err := g.Get(reg.ID())
	require.NoError(t, err)
	assert.Same(t, reg, got)

	_, err = g.Get("missing")
	assert.ErrorIs(t, err, ErrRegisterNotFound)

	busy := g.Open()
	_, err = busy.Add(productA)
	require.NoError(t, err)

	assert.Equal(t, 1, g.Prune(time.Now().Add(time.Minute)))
	_, err = g.Get(reg.ID())
	assert.ErrorIs(t, err, ErrRegisterNotFound)
	_, err = g.Get(busy.ID())
	assert.NoError(t, err)
}
