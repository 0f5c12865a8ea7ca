package sales

import (
	"context"
	"sync"
	"time"

	"artlicor/backend/internal/cart"
	"artlicor/backend/internal/checkout"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/xid"
)

type State string

const (
	StateEmpty        State = "empty"
	StateBuilding     State = "building"
	StateCheckoutOpen State = "checkout_open"
)

// Outcomes of leaving the checkout, reported in View.LastEvent.
const (
	EventCommitted    = "committed"
	EventCommitFailed = "commit_failed"
	EventCancelled    = "cancelled"
)

// Register is one sales screen: a cart plus the checkout state machine
//
//	empty -> building -> checkout_open -> committed (empty) | commit_failed (building)
//	building|checkout_open -> cancelled (empty)
//
// While a commit is pending every mutation fails with ErrCommitInFlight.
type Register struct {
	mu        sync.Mutex
	id        string
	cart      *cart.Cart
	state     State
	pending   bool
	lastEvent string
	lastError string
	updatedAt time.Time
}

type View struct {
	ID         string      `json:"id"`
	State      State       `json:"state"`
	Pending    bool        `json:"pending"`
	Lines      []cart.Line `json:"lines"`
	TotalCents int64       `json:"total_cents"`
	LastEvent  string      `json:"last_event,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func NewRegister(id string) *Register {
	return &Register{id: id, cart: cart.New(), state: StateEmpty, updatedAt: time.Now().UTC()}
}

func (r *Register) ID() string {
	return r.id
}

func (r *Register) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

func (r *Register) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Register) viewLocked() View {
	return View{
		ID:         r.id,
		State:      r.state,
		Pending:    r.pending,
		Lines:      r.cart.Lines(),
		TotalCents: r.cart.Total(),
		LastEvent:  r.lastEvent,
		LastError:  r.lastError,
		UpdatedAt:  r.updatedAt,
	}
}

func (r *Register) Add(product domain.Product) (View, error) {
	return r.edit(func(c *cart.Cart) error { return c.Add(product) })
}

// UpdateLine edits quantity, unit price or both on one line in a single step.
func (r *Register) UpdateLine(productID string, quantity *int, priceCents *int64) (View, error) {
	return r.edit(func(c *cart.Cart) error { return c.UpdateLine(productID, quantity, priceCents) })
}

func (r *Register) Remove(productID string) (View, error) {
	return r.edit(func(c *cart.Cart) error {
		c.Remove(productID)
		return nil
	})
}

func (r *Register) edit(fn func(c *cart.Cart) error) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending {
		return r.viewLocked(), ErrCommitInFlight
	}
	if r.state == StateCheckoutOpen {
		return r.viewLocked(), ErrInvalidState
	}
	if err := fn(r.cart); err != nil {
		return r.viewLocked(), err
	}
	r.settleLocked()
	r.lastEvent, r.lastError = "", ""
	return r.viewLocked(), nil
}

func (r *Register) settleLocked() {
	if r.cart.IsEmpty() {
		r.state = StateEmpty
	} else {
		r.state = StateBuilding
	}
	r.updatedAt = time.Now().UTC()
}

// OpenCheckout freezes the cart and returns its total.
func (r *Register) OpenCheckout() (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending {
		return r.viewLocked(), ErrCommitInFlight
	}
	if r.cart.IsEmpty() {
		return r.viewLocked(), ErrEmptyCart
	}
	r.state = StateCheckoutOpen
	r.updatedAt = time.Now().UTC()
	return r.viewLocked(), nil
}

// CloseCheckout returns to editing without committing.
func (r *Register) CloseCheckout() (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending {
		return r.viewLocked(), ErrCommitInFlight
	}
	if r.state != StateCheckoutOpen {
		return r.viewLocked(), ErrInvalidState
	}
	r.settleLocked()
	return r.viewLocked(), nil
}

func (r *Register) Quote(d checkout.Details) (checkout.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCheckoutOpen {
		return checkout.Quote{}, ErrInvalidState
	}
	return checkout.NewQuote(d, r.cart.Total()), nil
}

// Cancel discards the cart. A non-empty cart is only discarded when confirmed.
func (r *Register) Cancel(confirmed bool) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending {
		return r.viewLocked(), ErrCommitInFlight
	}
	if !r.cart.IsEmpty() && !confirmed {
		return r.viewLocked(), ErrConfirmationRequired
	}
	r.cart.Clear()
	r.settleLocked()
	r.lastEvent, r.lastError = EventCancelled, ""
	return r.viewLocked(), nil
}

// Confirm validates d against the cart total and commits the sale. The cart
// is cleared on success and kept for a retry on failure.
func (r *Register) Confirm(ctx context.Context, p *Protocol, d checkout.Details, customerName string) (Outcome, error) {
	r.mu.Lock()
	if r.pending {
		r.mu.Unlock()
		return Outcome{}, ErrCommitInFlight
	}
	if r.state != StateCheckoutOpen {
		r.mu.Unlock()
		return Outcome{}, ErrInvalidState
	}
	total := r.cart.Total()
	if err := checkout.Validate(d, total); err != nil {
		r.mu.Unlock()
		return Outcome{}, err
	}
	sub := Submission{
		Lines:           r.cart.Lines(),
		CustomerID:      d.CustomerID,
		CustomerName:    customerName,
		PaymentMethodID: d.PaymentMethodID,
		TotalCents:      total,
		TenderedCents:   d.TenderedCents,
	}
	r.pending = true
	r.mu.Unlock()

	outcome, err := p.Commit(ctx, sub)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = false
	if err != nil {
		r.state = StateBuilding
		r.lastEvent, r.lastError = EventCommitFailed, err.Error()
		r.updatedAt = time.Now().UTC()
		return Outcome{}, err
	}
	r.cart.Clear()
	r.settleLocked()
	r.lastEvent, r.lastError = EventCommitted, ""
	return outcome, nil
}

// Registry keeps the open registers of this process.
type Registry struct {
	mu        sync.RWMutex
	registers map[string]*Register
}

func NewRegistry() *Registry {
	return &Registry{registers: make(map[string]*Register)}
}

func (g *Registry) Open() *Register {
	reg := NewRegister(xid.New("reg"))
	g.mu.Lock()
	g.registers[reg.id] = reg
	g.mu.Unlock()
	return reg
}

func (g *Registry) Get(id string) (*Register, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	reg, ok := g.registers[id]
	if !ok {
		return nil, ErrRegisterNotFound
	}
	return reg, nil
}

// Prune drops empty, idle registers untouched since before cutoff.
func (g *Registry) Prune(cutoff time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for id, reg := range g.registers {
		reg.mu.Lock()
		idle := !reg.pending && reg.cart.IsEmpty() && reg.updatedAt.Before(cutoff)
		reg.mu.Unlock()
		if idle {
			delete(g.registers, id)
			removed++
		}
	}
	return removed
}
