package inventory_test

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger/internal/application/inventory"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
)

func seedKitFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.seedStock("comp-a", 5, 0)
	f.seedLayer("comp-a", 2, decimal.NewFromInt(5))
	f.seedLayer("comp-a", 3, decimal.NewFromInt(7))
	f.seedStock("comp-b", 3, 0)
	f.seedLayer("comp-b", 3, decimal.NewFromInt(10))
	f.seedStock("kit-1", 0, 0)
	return f
}

func TestAssembleKit_CostoDelKitEsElFIFODeLosComponentes(t *testing.T) {
	f := seedKitFixture(t)

	res, err := f.svc.AssembleKit(context.Background(), inventory.KitInput{
		KitVariationID: "kit-1",
		BranchID:       testBranch,
		Quantity:       2,
		UserID:         testUser,
		Components: []inventory.KitComponent{
			{VariationID: "comp-b", Quantity: 1},
			{VariationID: "comp-a", Quantity: 2},
		},
	})
	require.NoError(t, err)
	// comp-a: 2@5 + 2@7 = 24, comp-b: 2@10 = 20
	assert.True(t, res.TotalCost.Equal(decimal.NewFromInt(44)))
	assert.NotEmpty(t, res.Reference)

	assert.Equal(t, 1, f.quantity(t, "comp-a"))
	assert.Equal(t, 1, f.quantity(t, "comp-b"))
	assert.Equal(t, 2, f.quantity(t, "kit-1"))

	kitMovs := f.movements(t, "kit-1")
	require.Len(t, kitMovs, 1)
	assert.Equal(t, entity.ReasonKitting, kitMovs[0].Reason)
	assert.Equal(t, res.Reference, kitMovs[0].Reference)
	require.NotNil(t, kitMovs[0].UnitCost)
	assert.True(t, kitMovs[0].UnitCost.Equal(decimal.NewFromInt(22)))

	compMovs := f.movements(t, "comp-a")
	assert.Equal(t, -4, compMovs[0].QuantityChange)
	assert.Equal(t, res.Reference, compMovs[0].Reference)
}

func TestAssembleKit_ComponenteInsuficienteRevierteTodo(t *testing.T) {
	f := seedKitFixture(t)

	_, err := f.svc.AssembleKit(context.Background(), inventory.KitInput{
		KitVariationID: "kit-1",
		BranchID:       testBranch,
		Quantity:       2,
		UserID:         testUser,
		Components: []inventory.KitComponent{
			{VariationID: "comp-a", Quantity: 1},
			{VariationID: "comp-b", Quantity: 2},
		},
	})
	require.ErrorIs(t, err, domain.ErrNegativeStock)
	assert.Equal(t, 5, f.quantity(t, "comp-a"))
	assert.Equal(t, 3, f.quantity(t, "comp-b"))
	assert.Equal(t, 0, f.quantity(t, "kit-1"))
	assert.Len(t, f.movements(t, "comp-a"), 2)
	assert.Empty(t, f.movements(t, "kit-1"))
}

func TestDisassembleKit_RepartePorUnidadDeComponente(t *testing.T) {
	f := newFixture(t)
	f.seedStock("kit-1", 1, 0)
	f.seedLayer("kit-1", 1, decimal.NewFromInt(20))
	f.seedStock("comp-a", 0, 0)
	f.seedStock("comp-b", 0, 0)

	res, err := f.svc.DisassembleKit(context.Background(), inventory.KitInput{
		KitVariationID: "kit-1",
		BranchID:       testBranch,
		Quantity:       1,
		UserID:         testUser,
		Components: []inventory.KitComponent{
			{VariationID: "comp-a", Quantity: 2},
			{VariationID: "comp-b", Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.TotalCost.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 0, f.quantity(t, "kit-1"))
	assert.Equal(t, 2, f.quantity(t, "comp-a"))
	assert.Equal(t, 2, f.quantity(t, "comp-b"))

	movs := f.movements(t, "comp-a")
	require.Len(t, movs, 1)
	assert.Equal(t, entity.ReasonDeKitting, movs[0].Reason)
	require.NotNil(t, movs[0].UnitCost)
	assert.True(t, movs[0].UnitCost.Equal(decimal.NewFromInt(5)))
	require.NotNil(t, movs[0].QuantityRemaining)
	assert.Equal(t, 2, *movs[0].QuantityRemaining)
}

func TestKit_EntradaInvalida(t *testing.T) {
	f := seedKitFixture(t)
	ctx := context.Background()

	cases := map[string]inventory.KitInput{
		"sin componentes": {KitVariationID: "kit-1", BranchID: testBranch, Quantity: 1, UserID: testUser},
		"kit como componente": {KitVariationID: "kit-1", BranchID: testBranch, Quantity: 1, UserID: testUser,
			Components: []inventory.KitComponent{{VariationID: "kit-1", Quantity: 1}}},
		"cantidad cero": {KitVariationID: "kit-1", BranchID: testBranch, Quantity: 0, UserID: testUser,
			Components: []inventory.KitComponent{{VariationID: "comp-a", Quantity: 1}}},
		"componente sin cantidad": {KitVariationID: "kit-1", BranchID: testBranch, Quantity: 1, UserID: testUser,
			Components: []inventory.KitComponent{{VariationID: "comp-a", Quantity: 0}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.AssembleKit(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, err = f.svc.DisassembleKit(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestAssembleKit_AgrupaComponentesRepetidos(t *testing.T) {
	f := seedKitFixture(t)

	_, err := f.svc.AssembleKit(context.Background(), inventory.KitInput{
		KitVariationID: "kit-1",
		BranchID:       testBranch,
		Quantity:       1,
		UserID:         testUser,
		Components: []inventory.KitComponent{
			{VariationID: "comp-a", Quantity: 1},
			{VariationID: "comp-a", Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.quantity(t, "comp-a"))

	movs := f.movements(t, "comp-a")
	assert.Equal(t, -3, movs[0].QuantityChange, "un solo movimiento por componente")
}

func TestKit_CantidadesQueDesbordanSeRechazan(t *testing.T) {
	f := seedKitFixture(t)
	f.seedStock("kit-2", 2, 0, 2)
	ctx := context.Background()

	cases := map[string]inventory.KitInput{
		"componente enorme": {KitVariationID: "kit-2", BranchID: testBranch, Quantity: 2, UserID: testUser,
			Components: []inventory.KitComponent{{VariationID: "comp-a", Quantity: math.MaxInt64}}},
		"producto por kits": {KitVariationID: "kit-2", BranchID: testBranch, Quantity: 2, UserID: testUser,
			Components: []inventory.KitComponent{{VariationID: "comp-a", Quantity: inventory.MaxQuantity}}},
		"suma de repetidos": {KitVariationID: "kit-2", BranchID: testBranch, Quantity: 1, UserID: testUser,
			Components: []inventory.KitComponent{
				{VariationID: "comp-a", Quantity: inventory.MaxQuantity},
				{VariationID: "comp-a", Quantity: inventory.MaxQuantity},
			}},
		"suma entre componentes": {KitVariationID: "kit-2", BranchID: testBranch, Quantity: 1, UserID: testUser,
			Components: []inventory.KitComponent{
				{VariationID: "comp-a", Quantity: inventory.MaxQuantity},
				{VariationID: "comp-b", Quantity: 1},
			}},
		"kits enormes": {KitVariationID: "kit-2", BranchID: testBranch, Quantity: math.MaxInt64, UserID: testUser,
			Components: []inventory.KitComponent{{VariationID: "comp-a", Quantity: 1}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.DisassembleKit(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, err = f.svc.AssembleKit(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	assert.Equal(t, 2, f.quantity(t, "kit-2"))
	assert.Equal(t, 5, f.quantity(t, "comp-a"))
	assert.Len(t, f.movements(t, "comp-a"), 2, "solo las capas sembradas")
}

func TestAssembleKit_NoAvisaStockBajoSiLaTransaccionSeRevierte(t *testing.T) {
	f := newFixture(t)
	f.seedStock("comp-a", 5, 3, 5)
	f.seedStock("comp-b", 1, 0, 1)
	f.seedStock("kit-1", 0, 0)
	ctx := context.Background()

	_, err := f.svc.AssembleKit(ctx, inventory.KitInput{
		KitVariationID: "kit-1", BranchID: testBranch, Quantity: 1, UserID: testUser,
		Components: []inventory.KitComponent{
			{VariationID: "comp-a", Quantity: 2},
			{VariationID: "comp-b", Quantity: 2},
		},
	})
	require.ErrorIs(t, err, domain.ErrNegativeStock)
	assert.Equal(t, 5, f.quantity(t, "comp-a"))
	assert.Equal(t, 0, f.notifier.count(), "comp-a nunca quedó en 3")

	_, err = f.svc.AssembleKit(ctx, inventory.KitInput{
		KitVariationID: "kit-1", BranchID: testBranch, Quantity: 1, UserID: testUser,
		Components: []inventory.KitComponent{
			{VariationID: "comp-b", Quantity: 1},
			{VariationID: "comp-a", Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, f.notifier.count())
	assert.Equal(t, inventory.LowStockAlert{
		VariationID: "comp-a", BranchID: testBranch, UserID: testUser, Quantity: 3, Threshold: 3,
	}, f.notifier.alerts[0])
	assert.Equal(t, "comp-b", f.notifier.alerts[1].VariationID)
	assert.Equal(t, 0, f.notifier.alerts[1].Quantity)
}

func TestAssembleKit_EnTransaccionDelCallerAvisaDentroDeEsta(t *testing.T) {
	f := newFixture(t)
	f.seedStock("comp-a", 5, 3, 5)
	f.seedStock("kit-1", 0, 0)
	ctx := context.Background()

	err := f.store.Run(ctx, func(tx inventory.TxContext) error {
		if _, err := f.svc.AssembleKit(ctx, inventory.KitInput{
			KitVariationID: "kit-1", BranchID: testBranch, Quantity: 1, UserID: testUser, Tx: tx,
			Components: []inventory.KitComponent{{VariationID: "comp-a", Quantity: 2}},
		}); err != nil {
			return err
		}
		assert.Equal(t, 1, f.notifier.count(), "mismo comportamiento que AdjustStock anidado")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, f.quantity(t, "comp-a"))
	assert.Equal(t, 1, f.quantity(t, "kit-1"))
}
