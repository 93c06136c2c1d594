package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger/internal/application/inventory"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
)

func layer(qty int, cost int64) entity.StockMovement {
	c := decimal.NewFromInt(cost)
	left := qty
	return entity.StockMovement{
		VariationID: "v", BranchID: "b", QuantityChange: qty,
		Reason: entity.ReasonStockReceived, UserID: "u", UnitCost: &c, QuantityRemaining: &left,
	}
}

func TestRun_RollbackDescartaEscrituras(t *testing.T) {
	s := NewStore()
	s.PutStock(entity.StockRecord{VariationID: "v", BranchID: "b", Quantity: 5})
	id := s.SeedMovement(layer(5, 1))
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(tx inventory.TxContext) error {
		_, err := tx.Stocks().FindStockForUpdate(ctx, "v", "b")
		require.NoError(t, err)
		require.NoError(t, tx.Stocks().UpdateStockQuantity(ctx, "v", "b", 2))
		require.NoError(t, tx.Movements().DecrementRemaining(ctx, id, 3))
		require.NoError(t, tx.Movements().CreateMovement(ctx, &entity.StockMovement{
			VariationID: "v", BranchID: "b", QuantityChange: -3, Reason: entity.ReasonDamaged, UserID: "u",
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := s.Stocks().FindStockForUpdate(ctx, "v", "b")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
	layers, err := s.Movements().FindPurchaseLayers(ctx, "v", "b")
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, 5, *layers[0].QuantityRemaining)
}

func TestRun_CommitAplicaDescuentosYMovimientos(t *testing.T) {
	s := NewStore()
	s.PutStock(entity.StockRecord{VariationID: "v", BranchID: "b", Quantity: 5})
	id := s.SeedMovement(layer(5, 1))
	ctx := context.Background()

	err := s.Run(ctx, func(tx inventory.TxContext) error {
		if err := tx.Movements().DecrementRemaining(ctx, id, 2); err != nil {
			return err
		}
		layers, err := tx.Movements().FindPurchaseLayers(ctx, "v", "b")
		require.NoError(t, err)
		assert.Equal(t, 3, *layers[0].QuantityRemaining, "la tx ve sus propios descuentos")
		return tx.Movements().DecrementRemaining(ctx, id, 3)
	})
	require.NoError(t, err)

	layers, err := s.Movements().FindPurchaseLayers(ctx, "v", "b")
	require.NoError(t, err)
	assert.Empty(t, layers, "capa agotada deja de ser candidata")
}

func TestDecrementRemaining_NoPermiteSobregiro(t *testing.T) {
	s := NewStore()
	id := s.SeedMovement(layer(2, 1))
	ctx := context.Background()

	assert.ErrorIs(t, s.Movements().DecrementRemaining(ctx, id, 3), domain.ErrInsufficientLayers)
	assert.ErrorIs(t, s.Movements().DecrementRemaining(ctx, 999, 1), domain.ErrInsufficientLayers)
	assert.ErrorIs(t, s.Movements().DecrementRemaining(ctx, id, 0), domain.ErrInvalidInput)
}

func TestFindStockForUpdate_NoExiste(t *testing.T) {
	s := NewStore()
	_, err := s.Stocks().FindStockForUpdate(context.Background(), "x", "y")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Stocks().UpdateStockQuantity(context.Background(), "x", "y", 1), domain.ErrNotFound)
}

func TestCreateMovement_SalidaNoEsCapa(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := decimal.NewFromInt(3)
	left := 4
	m := &entity.StockMovement{
		VariationID: "v", BranchID: "b", QuantityChange: -4, Reason: entity.ReasonLost, UserID: "u",
		UnitCost: &c, QuantityRemaining: &left,
	}
	require.NoError(t, s.Movements().CreateMovement(ctx, m))
	assert.NotZero(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())
	assert.Nil(t, m.QuantityRemaining)

	list, err := s.Movements().ListByStock(ctx, "v", "b", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsPurchaseLayer())

	assert.ErrorIs(t, s.Movements().CreateMovement(ctx, &entity.StockMovement{VariationID: "v", BranchID: "b"}), domain.ErrInvalidInput)
}

func TestListByStock_MasRecientePrimeroConLimite(t *testing.T) {
	s := NewStore()
	first := s.SeedMovement(layer(1, 1))
	second := s.SeedMovement(layer(2, 1))
	third := s.SeedMovement(layer(3, 1))

	list, err := s.Movements().ListByStock(context.Background(), "v", "b", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, third, list[0].ID)
	assert.Equal(t, second, list[1].ID)
	assert.NotEqual(t, first, list[1].ID)
}
