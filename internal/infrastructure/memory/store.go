package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stockledger/internal/application/inventory"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type key struct {
	variation string
	branch    string
}

// Store motor de stock en memoria. Cada (variación, sucursal) tiene su propio mutex, tomado por
// FindStockForUpdate y liberado al cerrar la transacción; las escrituras se aplican en el commit.
type Store struct {
	mu        sync.RWMutex
	stocks    map[key]entity.StockRecord
	movements []*entity.StockMovement
	byID      map[int64]*entity.StockMovement
	nextID    int64

	locksMu sync.Mutex
	locks   map[key]*sync.Mutex

	now func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		stocks: make(map[key]entity.StockRecord),
		byID:   make(map[int64]*entity.StockMovement),
		locks:  make(map[key]*sync.Mutex),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock reemplaza el reloj usado para created_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// PutStock crea o reemplaza un registro de stock sin generar movimientos.
func (s *Store) PutStock(rec entity.StockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now()
	}
	s.stocks[key{rec.VariationID, rec.BranchID}] = rec
}

// SeedMovement agrega un movimiento histórico al log sin pasar por el coordinador y devuelve su ID.
func (s *Store) SeedMovement(m entity.StockMovement) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	stored := cloneMovement(&m)
	s.movements = append(s.movements, stored)
	s.byID[stored.ID] = stored
	return stored.ID
}

// Run ejecuta fn en una transacción; si fn falla nada de lo escrito se aplica.
func (s *Store) Run(ctx context.Context, fn func(tx inventory.TxContext) error) error {
	t := &memTx{
		s:           s,
		held:        make(map[key]*sync.Mutex),
		stockWrites: make(map[key]int),
		decrements:  make(map[int64]int),
	}
	defer t.release()
	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

// Stocks repositorio de stock en modo autocommit (cada llamada es su propia transacción).
func (s *Store) Stocks() repository.StockRepository { return autoStocks{s} }

// Movements repositorio de movimientos en modo autocommit.
func (s *Store) Movements() repository.StockMovementRepository { return autoMovements{s} }

func (s *Store) keyLock(k key) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[k]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k] = l
	}
	return l
}

// memTx implementa inventory.TxContext.
type memTx struct {
	s           *Store
	held        map[key]*sync.Mutex
	order       []key
	stockWrites map[key]int
	created     []*entity.StockMovement
	decrements  map[int64]int
}

func (t *memTx) Stocks() repository.StockRepository           { return txStocks{t} }
func (t *memTx) Movements() repository.StockMovementRepository { return txMovements{t} }

func (t *memTx) lock(k key) {
	if _, ok := t.held[k]; ok {
		return
	}
	l := t.s.keyLock(k)
	l.Lock()
	t.held[k] = l
	t.order = append(t.order, k)
}

func (t *memTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]].Unlock()
	}
	t.held = nil
	t.order = nil
}

func (t *memTx) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, qty := range t.stockWrites {
		rec := s.stocks[k]
		rec.Quantity = qty
		rec.UpdatedAt = now
		s.stocks[k] = rec
	}
	for _, m := range t.created {
		s.movements = append(s.movements, m)
		s.byID[m.ID] = m
	}
	for id, amount := range t.decrements {
		m := s.byID[id]
		left := *m.QuantityRemaining - amount
		m.QuantityRemaining = &left
	}
}

// stock devuelve el registro visible para la transacción (escrituras propias incluidas).
func (t *memTx) stock(k key) (entity.StockRecord, bool) {
	t.s.mu.RLock()
	rec, ok := t.s.stocks[k]
	t.s.mu.RUnlock()
	if !ok {
		return entity.StockRecord{}, false
	}
	if qty, written := t.stockWrites[k]; written {
		rec.Quantity = qty
	}
	return rec, true
}

// visibleMovements movimientos de la clave: confirmados más los creados en esta transacción,
// con los descuentos pendientes aplicados. Devuelve copias en orden de ID.
func (t *memTx) visibleMovements(k key) []*entity.StockMovement {
	t.s.mu.RLock()
	var out []*entity.StockMovement
	for _, m := range t.s.movements {
		if m.VariationID == k.variation && m.BranchID == k.branch {
			out = append(out, t.view(m))
		}
	}
	t.s.mu.RUnlock()
	for _, m := range t.created {
		if m.VariationID == k.variation && m.BranchID == k.branch {
			out = append(out, t.view(m))
		}
	}
	return out
}

func (t *memTx) view(m *entity.StockMovement) *entity.StockMovement {
	c := cloneMovement(m)
	if c.QuantityRemaining != nil {
		left := *c.QuantityRemaining - t.decrements[c.ID]
		c.QuantityRemaining = &left
	}
	return c
}

func (t *memTx) findMovement(id int64) *entity.StockMovement {
	for _, m := range t.created {
		if m.ID == id {
			return m
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.byID[id]
}

func cloneMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	if m.UnitCost != nil {
		cost := *m.UnitCost
		c.UnitCost = &cost
	}
	if m.QuantityRemaining != nil {
		left := *m.QuantityRemaining
		c.QuantityRemaining = &left
	}
	return &c
}

// ── Stock ─────────────────────────────────────────────────────────────────────

type txStocks struct{ t *memTx }

func (r txStocks) FindStockForUpdate(_ context.Context, variationID, branchID string) (*entity.StockRecord, error) {
	k := key{variationID, branchID}
	r.t.s.mu.RLock()
	_, exists := r.t.s.stocks[k]
	r.t.s.mu.RUnlock()
	if !exists {
		return nil, domain.ErrNotFound
	}
	r.t.lock(k)
	rec, ok := r.t.stock(k)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r txStocks) UpdateStockQuantity(_ context.Context, variationID, branchID string, newQuantity int) error {
	k := key{variationID, branchID}
	if _, ok := r.t.stock(k); !ok {
		return domain.ErrNotFound
	}
	if newQuantity < 0 {
		return domain.ErrNegativeStock
	}
	r.t.lock(k)
	r.t.stockWrites[k] = newQuantity
	return nil
}

func (r txStocks) FindDiscrepancies(_ context.Context, branchID string) ([]repository.Discrepancy, error) {
	var out []repository.Discrepancy
	for _, k := range r.t.keys(func(rec entity.StockRecord) bool { return rec.BranchID == branchID }) {
		rec, _ := r.t.stock(k)
		d := repository.Discrepancy{VariationID: k.variation, BranchID: k.branch, StoredQuantity: rec.Quantity}
		for _, m := range r.t.visibleMovements(k) {
			d.MovementSum += m.QuantityChange
			if m.IsPurchaseLayer() {
				d.LayerRemaining += *m.QuantityRemaining
			}
		}
		if d.StoredQuantity != d.MovementSum {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r txStocks) FindProductsBelowThreshold(_ context.Context, branchID string) ([]repository.ReorderCandidate, error) {
	var out []repository.ReorderCandidate
	for _, k := range r.t.keys(func(rec entity.StockRecord) bool { return rec.BranchID == branchID }) {
		rec, _ := r.t.stock(k)
		point := effectiveReorderPoint(rec)
		if point <= 0 || rec.Quantity > point {
			continue
		}
		out = append(out, repository.ReorderCandidate{
			VariationID:  rec.VariationID,
			BranchID:     rec.BranchID,
			ProductID:    rec.ProductID,
			Quantity:     rec.Quantity,
			ReorderPoint: point,
			LeadTimeDays: rec.LeadTimeDays,
		})
	}
	return out, nil
}

func (r txStocks) FindLowStockProducts(_ context.Context, threshold *int) ([]entity.StockRecord, error) {
	var out []entity.StockRecord
	for _, k := range r.t.keys(func(entity.StockRecord) bool { return true }) {
		rec, _ := r.t.stock(k)
		limit := rec.LowStockThreshold
		if threshold != nil {
			limit = *threshold
		}
		if rec.Quantity <= limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

// keys claves que cumplen filter, ordenadas por sucursal y variación.
func (t *memTx) keys(filter func(entity.StockRecord) bool) []key {
	t.s.mu.RLock()
	var ks []key
	for k, rec := range t.s.stocks {
		if filter(rec) {
			ks = append(ks, k)
		}
	}
	t.s.mu.RUnlock()
	sort.Slice(ks, func(i, j int) bool {
		if ks[i].branch != ks[j].branch {
			return ks[i].branch < ks[j].branch
		}
		return ks[i].variation < ks[j].variation
	})
	return ks
}

func effectiveReorderPoint(rec entity.StockRecord) int {
	if rec.ReorderPoint > 0 {
		return rec.ReorderPoint
	}
	return rec.LowStockThreshold
}

// ── Movimientos ───────────────────────────────────────────────────────────────

type txMovements struct{ t *memTx }

func (r txMovements) CreateMovement(_ context.Context, movement *entity.StockMovement) error {
	if movement.QuantityChange == 0 {
		return domain.ErrInvalidInput
	}
	s := r.t.s
	s.mu.Lock()
	s.nextID++
	movement.ID = s.nextID
	movement.CreatedAt = s.now()
	s.mu.Unlock()
	if movement.QuantityChange < 0 {
		movement.QuantityRemaining = nil
		movement.UnitCost = nil
	}
	r.t.created = append(r.t.created, cloneMovement(movement))
	return nil
}

func (r txMovements) FindPurchaseLayers(_ context.Context, variationID, branchID string) ([]*entity.StockMovement, error) {
	var layers []*entity.StockMovement
	for _, m := range r.t.visibleMovements(key{variationID, branchID}) {
		if m.IsPurchaseLayer() {
			layers = append(layers, m)
		}
	}
	sort.SliceStable(layers, func(i, j int) bool {
		if !layers[i].CreatedAt.Equal(layers[j].CreatedAt) {
			return layers[i].CreatedAt.Before(layers[j].CreatedAt)
		}
		return layers[i].ID < layers[j].ID
	})
	return layers, nil
}

func (r txMovements) DecrementRemaining(_ context.Context, layerID int64, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidInput
	}
	m := r.t.findMovement(layerID)
	if m == nil || m.QuantityRemaining == nil {
		return domain.ErrInsufficientLayers
	}
	if *m.QuantityRemaining-r.t.decrements[layerID] < amount {
		return domain.ErrInsufficientLayers
	}
	r.t.decrements[layerID] += amount
	return nil
}

func (r txMovements) ListByStock(_ context.Context, variationID, branchID string, limit int) ([]*entity.StockMovement, error) {
	all := r.t.visibleMovements(key{variationID, branchID})
	if limit <= 0 {
		limit = len(all)
	}
	out := make([]*entity.StockMovement, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// ── Autocommit ────────────────────────────────────────────────────────────────

type autoStocks struct{ s *Store }

func (a autoStocks) FindStockForUpdate(ctx context.Context, variationID, branchID string) (rec *entity.StockRecord, err error) {
	err = a.s.Run(ctx, func(tx inventory.TxContext) error {
		rec, err = tx.Stocks().FindStockForUpdate(ctx, variationID, branchID)
		return err
	})
	return rec, err
}

func (a autoStocks) UpdateStockQuantity(ctx context.Context, variationID, branchID string, newQuantity int) error {
	return a.s.Run(ctx, func(tx inventory.TxContext) error {
		return tx.Stocks().UpdateStockQuantity(ctx, variationID, branchID, newQuantity)
	})
}

func (a autoStocks) FindDiscrepancies(ctx context.Context, branchID string) (out []repository.Discrepancy, err error) {
	err = a.s.Run(ctx, func(tx inventory.TxContext) error {
		out, err = tx.Stocks().FindDiscrepancies(ctx, branchID)
		return err
	})
	return out, err
}

func (a autoStocks) FindProductsBelowThreshold(ctx context.Context, branchID string) (out []repository.ReorderCandidate, err error) {
	err = a.s.Run(ctx, func(tx inventory.TxContext) error {
		out, err = tx.Stocks().FindProductsBelowThreshold(ctx, branchID)
		return err
	})
	return out, err
}

func (a autoStocks) FindLowStockProducts(ctx context.Context, threshold *int) (out []entity.StockRecord, err error) {
	err = a.s.Run(ctx, func(tx inventory.TxContext) error {
		out, err = tx.Stocks().FindLowStockProducts(ctx, threshold)
		return err
	})
	return out, err
}

type autoMovements struct{ s *Store }

func (a autoMovements) CreateMovement(ctx context.Context, movement *entity.StockMovement) error {
	return a.s.Run(ctx, func(tx inventory.TxContext) error {
		return tx.Movements().CreateMovement(ctx, movement)
	})
}

func (a autoMovements) FindPurchaseLayers(ctx context.Context, variationID, branchID string) (out []*entity.StockMovement, err error) {
	err = a.s.Run(ctx, func(tx inventory.TxContext) error {
		out, err = tx.Movements().FindPurchaseLayers(ctx, variationID, branchID)
		return err
	})
	return out, err
}

func (a autoMovements) DecrementRemaining(ctx context.Context, layerID int64, amount int) error {
	return a.s.Run(ctx, func(tx inventory.TxContext) error {
		return tx.Movements().DecrementRemaining(ctx, layerID, amount)
	})
}

func (a autoMovements) ListByStock(ctx context.Context, variationID, branchID string, limit int) (out []*entity.StockMovement, err error) {
	err = a.s.Run(ctx, func(tx inventory.TxContext) error {
		out, err = tx.Movements().ListByStock(ctx, variationID, branchID, limit)
		return err
	})
	return out, err
}
