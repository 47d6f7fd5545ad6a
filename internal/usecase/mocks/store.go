package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// Store is an in-memory implementation of every repository port. It keeps
// the uniqueness guarantees of the Postgres schema so use cases can be tested
// against the same conflicts. Transactions are serialized and roll back to a
// snapshot taken at Begin.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	seq  int

	accounts      map[string]domain.BankAccount
	txns          map[string]domain.BankTransaction
	rules         map[string]domain.MatchingRule
	sessions      map[string]domain.ReconciliationSession
	matches       map[string]domain.ReconciliationMatch
	discrepancies map[string]domain.ReconciliationDiscrepancy
	events        []domain.OutboxEvent
	payments      map[string]domain.InternalPaymentRecord

	failures map[string]error
	active   *memTx

	// BeforeMatchCreate runs before a match insert is checked, outside the
	// store lock. Tests use it to simulate a concurrent writer.
	BeforeMatchCreate func(m *domain.ReconciliationMatch)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:      make(map[string]domain.BankAccount),
		txns:          make(map[string]domain.BankTransaction),
		rules:         make(map[string]domain.MatchingRule),
		sessions:      make(map[string]domain.ReconciliationSession),
		matches:       make(map[string]domain.ReconciliationMatch),
		discrepancies: make(map[string]domain.ReconciliationDiscrepancy),
		payments:      make(map[string]domain.InternalPaymentRecord),
		failures:      make(map[string]error),
	}
}

// Fail makes every later call of op (for example "matches.Create") return err.
// A nil err clears the failure.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	return s.failures[op]
}

// Generate implements usecase.IDGenerator with lexically ordered IDs.
func (s *Store) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("id-%06d", s.seq)
}

// Begin implements usecase.TransactionManager.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	err := s.failure("tx.Begin")
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	s.txMu.Lock()
	s.mu.Lock()
	tx := &memTx{store: s, snap: s.snapshot()}
	s.active = tx
	s.mu.Unlock()
	return tx, nil
}

type storeSnapshot struct {
	accounts      map[string]domain.BankAccount
	txns          map[string]domain.BankTransaction
	sessions      map[string]domain.ReconciliationSession
	matches       map[string]domain.ReconciliationMatch
	discrepancies map[string]domain.ReconciliationDiscrepancy
	events        []domain.OutboxEvent
}

func (s *Store) snapshot() storeSnapshot {
	return storeSnapshot{
		accounts:      cloneMap(s.accounts),
		txns:          cloneMap(s.txns),
		sessions:      cloneMap(s.sessions),
		matches:       cloneMap(s.matches),
		discrepancies: cloneMap(s.discrepancies),
		events:        append([]domain.OutboxEvent(nil), s.events...),
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.accounts = snap.accounts
	s.txns = snap.txns
	s.sessions = snap.sessions
	s.matches = snap.matches
	s.discrepancies = snap.discrepancies
	s.events = snap.events
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memTx struct {
	store *Store
	snap  storeSnapshot
	done  bool
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already closed")
	}
	t.store.mu.Lock()
	err := t.store.failure("tx.Commit")
	if err == nil {
		t.done = true
		t.store.active = nil
	}
	t.store.mu.Unlock()
	if err != nil {
		_ = t.Rollback(context.Background())
		return err
	}
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	t.store.restore(t.snap)
	t.store.active = nil
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

// Accounts returns the bank account repository view.
func (s *Store) Accounts() *AccountRepo { return &AccountRepo{s} }

// Transactions returns the bank transaction repository view.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s} }

// Rules returns the rule repository view.
func (s *Store) Rules() *RuleRepo { return &RuleRepo{s} }

// Sessions returns the session repository view.
func (s *Store) Sessions() *SessionRepo { return &SessionRepo{s} }

// Matches returns the match repository view.
func (s *Store) Matches() *MatchRepo { return &MatchRepo{s} }

// Discrepancies returns the discrepancy repository view.
func (s *Store) Discrepancies() *DiscrepancyRepo { return &DiscrepancyRepo{s} }

// Outbox returns the outbox repository view.
func (s *Store) Outbox() *OutboxRepo { return &OutboxRepo{s} }

// Payments returns the payment ledger view.
func (s *Store) Payments() *PaymentLedger { return &PaymentLedger{s} }

// AccountRepo implements usecase.BankAccountRepository.
type AccountRepo struct{ s *Store }

func (r *AccountRepo) Create(_ context.Context, _ usecase.Transaction, a *domain.BankAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.accounts {
		if existing.AccountNumber == a.AccountNumber {
			return domain.ErrDuplicateAccountNumber
		}
	}
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepo) GetByID(_ context.Context, id string) (*domain.BankAccount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure("accounts.GetByID"); err != nil {
		return nil, err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.BankAccount, error) {
	return r.GetByID(ctx, id)
}

func (r *AccountRepo) List(_ context.Context, limit, offset int) ([]*domain.BankAccount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.BankAccount, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func (r *AccountRepo) AdjustBalance(_ context.Context, _ usecase.Transaction, id string, delta decimal.Decimal, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.AdjustBalance"); err != nil {
		return err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.CurrentBalance = a.CurrentBalance.Add(delta)
	a.UpdatedAt = at
	r.s.accounts[id] = a
	return nil
}

func (r *AccountRepo) UpdateStatus(_ context.Context, _ usecase.Transaction, id string, status domain.AccountStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Status = status
	a.UpdatedAt = at
	r.s.accounts[id] = a
	return nil
}

func (r *AccountRepo) UpdateChannel(_ context.Context, _ usecase.Transaction, id, shortCode string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.ChannelShortCode = shortCode
	a.UpdatedAt = at
	r.s.accounts[id] = a
	return nil
}

// TransactionRepo implements usecase.BankTransactionRepository.
type TransactionRepo struct{ s *Store }

func (r *TransactionRepo) Create(_ context.Context, _ usecase.Transaction, t *domain.BankTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("transactions.Create"); err != nil {
		return err
	}
	r.s.txns[t.ID] = *t
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, id string) (*domain.BankTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure("transactions.GetByID"); err != nil {
		return nil, err
	}
	t, ok := r.s.txns[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return &t, nil
}

func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.BankTransaction, error) {
	return r.GetByID(ctx, id)
}

func (r *TransactionRepo) List(_ context.Context, f domain.TransactionFilter) ([]*domain.BankTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure("transactions.List"); err != nil {
		return nil, err
	}
	out := make([]*domain.BankTransaction, 0)
	for _, t := range r.s.txns {
		t := t
		if t.AccountID != f.AccountID || t.IsDeleted() {
			continue
		}
		if f.MatchStatus != nil && t.MatchStatus != *f.MatchStatus {
			continue
		}
		day := domain.DateOnly(t.Date)
		if f.From != nil && day.Before(domain.DateOnly(*f.From)) {
			continue
		}
		if f.To != nil && day.After(domain.DateOnly(*f.To)) {
			continue
		}
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TransactionRepo) Update(_ context.Context, _ usecase.Transaction, t *domain.BankTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("transactions.Update"); err != nil {
		return err
	}
	if _, ok := r.s.txns[t.ID]; !ok {
		return domain.ErrTransactionNotFound
	}
	r.s.txns[t.ID] = *t
	return nil
}

func (r *TransactionRepo) SumPosted(_ context.Context, accountID string, through time.Time) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range r.s.txns {
		if t.AccountID == accountID && t.CountsTowardBalance() && !domain.DateOnly(t.Date).After(domain.DateOnly(through)) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

// RuleRepo implements usecase.RuleRepository.
type RuleRepo struct{ s *Store }

func (r *RuleRepo) Create(_ context.Context, rule *domain.MatchingRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rules[rule.ID] = *rule
	return nil
}

func (r *RuleRepo) GetByID(_ context.Context, id string) (*domain.MatchingRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rule, ok := r.s.rules[id]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	return &rule, nil
}

func (r *RuleRepo) List(context.Context) ([]*domain.MatchingRule, error) {
	return r.filter(func(rule *domain.MatchingRule) bool { return rule.Status != domain.RuleStatusDeleted }), nil
}

func (r *RuleRepo) ListActive(context.Context) ([]*domain.MatchingRule, error) {
	r.s.mu.RLock()
	err := r.s.failure("rules.ListActive")
	r.s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return r.filter((*domain.MatchingRule).IsActive), nil
}

func (r *RuleRepo) filter(keep func(*domain.MatchingRule) bool) []*domain.MatchingRule {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.MatchingRule, 0, len(r.s.rules))
	for _, rule := range r.s.rules {
		rule := rule
		if keep(&rule) {
			out = append(out, &rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *RuleRepo) Update(_ context.Context, rule *domain.MatchingRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rules[rule.ID]; !ok {
		return domain.ErrRuleNotFound
	}
	r.s.rules[rule.ID] = *rule
	return nil
}

// SessionRepo implements usecase.SessionRepository.
type SessionRepo struct{ s *Store }

func (r *SessionRepo) Create(_ context.Context, _ usecase.Transaction, session *domain.ReconciliationSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.Create"); err != nil {
		return err
	}
	if session.IsInProgress() && r.s.hasActiveSession(session.AccountID, session.ID) {
		return domain.ErrActiveSessionExists
	}
	r.s.sessions[session.ID] = *session
	return nil
}

func (s *Store) hasActiveSession(accountID, exceptID string) bool {
	for _, existing := range s.sessions {
		if existing.AccountID == accountID && existing.IsInProgress() && existing.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *SessionRepo) GetByID(_ context.Context, id string) (*domain.ReconciliationSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure("sessions.GetByID"); err != nil {
		return nil, err
	}
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r *SessionRepo) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.ReconciliationSession, error) {
	return r.GetByID(ctx, id)
}

func (r *SessionRepo) GetActiveByAccount(_ context.Context, accountID string) (*domain.ReconciliationSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, session := range r.s.sessions {
		if session.AccountID == accountID && session.IsInProgress() {
			session := session
			return &session, nil
		}
	}
	return nil, domain.ErrNoActiveSession
}

func (r *SessionRepo) LatestCompleted(_ context.Context, accountID string, endingBy time.Time) (*domain.ReconciliationSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *domain.ReconciliationSession
	for _, session := range r.s.sessions {
		session := session
		if session.AccountID != accountID || session.Status != domain.SessionStatusCompleted {
			continue
		}
		if session.PeriodEnd.After(endingBy) {
			continue
		}
		if latest == nil || session.PeriodEnd.After(latest.PeriodEnd) ||
			(session.PeriodEnd.Equal(latest.PeriodEnd) && session.ID > latest.ID) {
			latest = &session
		}
	}
	if latest == nil {
		return nil, domain.ErrSessionNotFound
	}
	return latest, nil
}

func (r *SessionRepo) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.ReconciliationSession, 0)
	for _, session := range r.s.sessions {
		session := session
		if session.AccountID == accountID {
			out = append(out, &session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r *SessionRepo) NextNumber(_ context.Context, _ usecase.Transaction, accountID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, session := range r.s.sessions {
		if session.AccountID == accountID {
			n++
		}
	}
	return n + 1, nil
}

func (r *SessionRepo) Update(_ context.Context, _ usecase.Transaction, session *domain.ReconciliationSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	if session.IsInProgress() && r.s.hasActiveSession(session.AccountID, session.ID) {
		return domain.ErrActiveSessionExists
	}
	r.s.sessions[session.ID] = *session
	return nil
}

// MatchRepo implements usecase.MatchRepository.
type MatchRepo struct{ s *Store }

func (r *MatchRepo) Create(_ context.Context, _ usecase.Transaction, m *domain.ReconciliationMatch) error {
	if hook := r.s.BeforeMatchCreate; hook != nil {
		hook(m)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("matches.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.matches {
		if !existing.IsActive() {
			continue
		}
		if existing.BankTransactionID == m.BankTransactionID {
			return domain.ErrTransactionAlreadyMatched
		}
		if existing.PaymentRecordID == m.PaymentRecordID {
			return domain.ErrPaymentAlreadyMatched
		}
	}
	r.s.matches[m.ID] = *m
	return nil
}

// Put commits m directly as if written by another connection. It survives a
// rollback of the transaction in flight and still enforces active-match
// uniqueness.
func (r *MatchRepo) Put(m *domain.ReconciliationMatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.matches {
		if existing.IsActive() && (existing.BankTransactionID == m.BankTransactionID || existing.PaymentRecordID == m.PaymentRecordID) {
			return domain.ErrConflict
		}
	}
	r.s.matches[m.ID] = *m
	if r.s.active != nil {
		r.s.active.snap.matches[m.ID] = *m
	}
	return nil
}

func (r *MatchRepo) GetByID(_ context.Context, id string) (*domain.ReconciliationMatch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return &m, nil
}

func (r *MatchRepo) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.ReconciliationMatch, error) {
	return r.GetByID(ctx, id)
}

func (r *MatchRepo) ListBySession(_ context.Context, sessionID string) ([]*domain.ReconciliationMatch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.ReconciliationMatch, 0)
	for _, m := range r.s.matches {
		m := m
		if m.SessionID == sessionID {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// All returns every match in the store.
func (r *MatchRepo) All() []*domain.ReconciliationMatch {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.ReconciliationMatch, 0, len(r.s.matches))
	for _, m := range r.s.matches {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MatchRepo) ClaimedPayments(_ context.Context, paymentIDs []string) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wanted := make(map[string]bool, len(paymentIDs))
	for _, id := range paymentIDs {
		wanted[id] = true
	}
	claimed := make(map[string]bool)
	for _, m := range r.s.matches {
		if m.IsActive() && wanted[m.PaymentRecordID] {
			claimed[m.PaymentRecordID] = true
		}
	}
	return claimed, nil
}

func (r *MatchRepo) MarkReversed(_ context.Context, _ usecase.Transaction, m *domain.ReconciliationMatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[m.ID]; !ok {
		return domain.ErrMatchNotFound
	}
	r.s.matches[m.ID] = *m
	return nil
}

func (r *MatchRepo) CountActiveBySession(_ context.Context, sessionID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, m := range r.s.matches {
		if m.SessionID == sessionID && m.IsActive() {
			n++
		}
	}
	return n, nil
}

// DiscrepancyRepo implements usecase.DiscrepancyRepository.
type DiscrepancyRepo struct{ s *Store }

func (r *DiscrepancyRepo) Create(_ context.Context, _ usecase.Transaction, d *domain.ReconciliationDiscrepancy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("discrepancies.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.discrepancies {
		if existing.Key() == d.Key() {
			return domain.ErrDuplicateDiscrepancy
		}
	}
	r.s.discrepancies[d.ID] = *d
	return nil
}

// Put stores d directly, bypassing transactions.
func (r *DiscrepancyRepo) Put(d *domain.ReconciliationDiscrepancy) error {
	return r.Create(context.Background(), nil, d)
}

func (r *DiscrepancyRepo) GetByID(_ context.Context, id string) (*domain.ReconciliationDiscrepancy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.discrepancies[id]
	if !ok {
		return nil, domain.ErrDiscrepancyNotFound
	}
	return &d, nil
}

func (r *DiscrepancyRepo) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.ReconciliationDiscrepancy, error) {
	return r.GetByID(ctx, id)
}

func (r *DiscrepancyRepo) GetByKey(_ context.Context, key domain.DiscrepancyKey) (*domain.ReconciliationDiscrepancy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, d := range r.s.discrepancies {
		if d.Key() == key {
			d := d
			return &d, nil
		}
	}
	return nil, domain.ErrDiscrepancyNotFound
}

func (r *DiscrepancyRepo) ListBySession(_ context.Context, sessionID string, status *domain.ResolutionStatus) ([]*domain.ReconciliationDiscrepancy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.ReconciliationDiscrepancy, 0)
	for _, d := range r.s.discrepancies {
		d := d
		if d.SessionID != sessionID || (status != nil && d.Status != *status) {
			continue
		}
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *DiscrepancyRepo) NextNumber(_ context.Context, _ usecase.Transaction, sessionID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, d := range r.s.discrepancies {
		if d.SessionID == sessionID {
			n++
		}
	}
	return n + 1, nil
}

func (r *DiscrepancyRepo) Update(_ context.Context, _ usecase.Transaction, d *domain.ReconciliationDiscrepancy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.discrepancies[d.ID]; !ok {
		return domain.ErrDiscrepancyNotFound
	}
	r.s.discrepancies[d.ID] = *d
	return nil
}

// OutboxRepo implements usecase.OutboxRepository.
type OutboxRepo struct{ s *Store }

func (r *OutboxRepo) Create(_ context.Context, _ usecase.Transaction, e *domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("outbox.Create"); err != nil {
		return err
	}
	r.s.events = append(r.s.events, *e)
	return nil
}

func (r *OutboxRepo) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.OutboxEvent, 0)
	for _, e := range r.s.events {
		e := e
		if !e.Published {
			out = append(out, &e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkPublished(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.events {
		if r.s.events[i].ID == id {
			r.s.events[i].Published = true
			r.s.events[i].PublishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("%w: outbox event %s", domain.ErrNotFound, id)
}

func (r *OutboxRepo) GetByAggregate(_ context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.OutboxEvent, 0)
	for _, e := range r.s.events {
		e := e
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, &e)
		}
	}
	return page(out, limit, offset), nil
}

func (r *OutboxRepo) DeletePublished(_ context.Context, before time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.events[:0]
	for _, e := range r.s.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.s.events = kept
	return nil
}

// EventTypes returns the recorded event types in append order.
func (r *OutboxRepo) EventTypes() []string {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]string, 0, len(r.s.events))
	for _, e := range r.s.events {
		out = append(out, e.EventType)
	}
	return out
}

// PaymentLedger implements usecase.PaymentLookup over seeded records.
type PaymentLedger struct{ s *Store }

// Put seeds a payment record.
func (p *PaymentLedger) Put(records ...*domain.InternalPaymentRecord) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, rec := range records {
		p.s.payments[rec.ID] = *rec
	}
}

func (p *PaymentLedger) FindCandidates(_ context.Context, q domain.CandidateQuery) ([]*domain.InternalPaymentRecord, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if err := p.s.failure("payments.FindCandidates"); err != nil {
		return nil, err
	}
	low, high := q.Amount.Sub(q.ToleranceAbs), q.Amount.Add(q.ToleranceAbs)
	out := make([]*domain.InternalPaymentRecord, 0)
	for _, rec := range p.s.payments {
		rec := rec
		if !strings.EqualFold(rec.Currency, q.Currency) || rec.Direction != q.Direction {
			continue
		}
		if rec.Amount.LessThan(low) || rec.Amount.GreaterThan(high) {
			continue
		}
		day := domain.DateOnly(rec.Date)
		if day.Before(q.DateFrom) || day.After(q.DateTo) {
			continue
		}
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *PaymentLedger) GetByID(_ context.Context, id string) (*domain.InternalPaymentRecord, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	rec, ok := p.s.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &rec, nil
}

func (p *PaymentLedger) ListRange(_ context.Context, currency string, from, to time.Time) ([]*domain.InternalPaymentRecord, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	out := make([]*domain.InternalPaymentRecord, 0)
	for _, rec := range p.s.payments {
		rec := rec
		day := domain.DateOnly(rec.Date)
		if strings.EqualFold(rec.Currency, currency) && !day.Before(domain.DateOnly(from)) && !day.After(domain.DateOnly(to)) {
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
