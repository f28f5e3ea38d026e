package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/metrics"
	"ibc-intranet/internal/pkg/pagination"
)

func newInventoryService(e *testEnv) *InventoryService {
	return NewInventoryService(
		e.txr,
		repositories.NewInventoryRepository(e.db),
		e.users,
		e.notify,
		e.clock,
		metrics.New(),
		zap.NewNop(),
		e.cfg.Inventory,
	)
}

func createItem(t *testing.T, svc *InventoryService, actor domain.Actor, name string, stock int, value string) *models.InventoryItem {
	t.Helper()
	item, err := svc.CreateItem(context.Background(), actor, &CreateItemInput{
		Name:         name,
		Category:     "av",
		UnitValue:    decimal.RequireFromString(value),
		InitialStock: stock,
	})
	require.NoError(t, err)
	return item
}

func stockOf(t *testing.T, svc *InventoryService, id uint) int {
	t.Helper()
	item, err := svc.GetItem(context.Background(), id)
	require.NoError(t, err)
	return item.CurrentStock
}

// assertHistoryBalances checks that the stock equals the sum of its history
func assertHistoryBalances(t *testing.T, svc *InventoryService, id uint) {
	t.Helper()
	history, err := svc.History(context.Background(), id)
	require.NoError(t, err)
	sum := 0
	for _, h := range history {
		sum += h.ChangeAmount
	}
	assert.Equal(t, stockOf(t, svc, id), sum)
}

func TestCheckoutAndCheckinWithDefects(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	borrower := env.seedUser(t, "borrower", domain.RoleMember)

	item := createItem(t, svc, actorOf(manager), "Beamer", 10, "250.00")

	checkout, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{
		ItemID:      item.ID,
		BorrowerID:  borrower.ID,
		Quantity:    4,
		Destination: "Summer fair",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, stockOf(t, svc, item.ID))
	assert.Equal(t, t0.AddDate(0, 0, 14), checkout.DueAt)
	assert.Equal(t, domain.CheckoutActive, checkout.Status)

	require.NoError(t, svc.Checkin(ctx, actorOf(manager), checkout.ID, 4, 1))
	assert.Equal(t, 9, stockOf(t, svc, item.ID))

	closed, err := svc.GetCheckout(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutReturned, closed.Status)
	assert.Equal(t, 4, closed.ReturnedQuantity)
	assert.Equal(t, 1, closed.DefectiveQuantity)
	require.NotNil(t, closed.ReturnedAt)

	history, err := svc.History(ctx, item.ID)
	require.NoError(t, err)
	var writeOffs []int
	for _, h := range history {
		if h.Reason == domain.ReasonWriteOff {
			writeOffs = append(writeOffs, h.ChangeAmount)
		}
	}
	assert.Equal(t, []int{-1}, writeOffs)
	assertHistoryBalances(t, svc, item.ID)

	sent := env.notifier.byKind(domain.NotifyCheckoutConfirm)
	require.Len(t, sent, 1)
	assert.Equal(t, borrower.Email, sent[0].Recipient)
	assert.Equal(t, "Beamer", sent[0].Data["item"])
}

func TestCheckoutInsufficientStockChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Cable", 10, "5")

	_, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 15})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	assert.Equal(t, 10, stockOf(t, svc, item.ID))
	active, err := svc.ActiveCheckouts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, active)
	history, err := svc.History(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Empty(t, env.notifier.byKind(domain.NotifyCheckoutConfirm))
}

// rivalWriter commits a competing stock write between the item read and the
// compare-and-swap of the transaction under test
type rivalWriter struct {
	repositories.InventoryRepository
	once bool
}

func (r *rivalWriter) UpdateStock(ctx context.Context, id uint, version, newStock int) error {
	if !r.once {
		r.once = true
		item, err := r.InventoryRepository.GetItem(ctx, id)
		if err != nil {
			return err
		}
		if err := r.InventoryRepository.UpdateStock(ctx, id, item.Version, item.CurrentStock); err != nil {
			return err
		}
	}
	return r.InventoryRepository.UpdateStock(ctx, id, version, newStock)
}

func TestCheckoutLosesCompareAndSwap(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Mixer", 3, "80")

	racing := NewInventoryService(
		env.txr,
		&rivalWriter{InventoryRepository: repositories.NewInventoryRepository(env.db)},
		env.users,
		env.notify,
		env.clock,
		metrics.New(),
		zap.NewNop(),
		env.cfg.Inventory,
	)

	_, err := racing.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 2})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	assert.Equal(t, 3, stockOf(t, svc, item.ID))
	active, err := svc.ActiveCheckouts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, active)
	history, err := svc.History(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Empty(t, env.notifier.byKind(domain.NotifyCheckoutConfirm))

	// a retry reads the fresh version and goes through
	_, err = svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, stockOf(t, svc, item.ID))
	assertHistoryBalances(t, svc, item.ID)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Tent", 3, "120")

	const borrowers = 4
	errs := make(chan error, borrowers)
	var wg sync.WaitGroup
	for i := 0; i < borrowers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 2})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrConflict),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, stockOf(t, svc, item.ID))

	active, err := svc.ActiveCheckouts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assertHistoryBalances(t, svc, item.ID)
}

func TestCheckoutValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Cable", 3, "5")

	_, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	past := t0.Add(-time.Hour)
	_, err = svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 1, DueAt: &past})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: 999, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, BorrowerID: 999, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, 3, stockOf(t, svc, item.ID))
}

func TestCheckinRejectsBadQuantities(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Table", 5, "40")
	checkout, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)

	cases := []struct {
		name                string
		returned, defective int
	}{
		{"defective exceeds returned", 1, 2},
		{"returned exceeds borrowed", 3, 0},
		{"negative returned", -1, 0},
		{"negative defective", 2, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Checkin(ctx, actorOf(manager), checkout.ID, tc.returned, tc.defective)
			assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
			assert.Equal(t, 3, stockOf(t, svc, item.ID))
		})
	}

	still, err := svc.GetCheckout(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutActive, still.Status)
	assertHistoryBalances(t, svc, item.ID)
}

func TestCheckinTwice(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Chair", 8, "12.50")
	checkout, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 8})
	require.NoError(t, err)

	require.NoError(t, svc.Checkin(ctx, actorOf(manager), checkout.ID, 8, 0))
	err = svc.Checkin(ctx, actorOf(manager), checkout.ID, 8, 0)
	assert.ErrorIs(t, err, domain.ErrCheckoutAlreadyClosed)
	assert.Equal(t, 8, stockOf(t, svc, item.ID))

	err = svc.Checkin(ctx, actorOf(manager), 12345, 1, 0)
	assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)
}

func TestPartialReturnClosesCheckout(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Walkie", 6, "30")
	checkout, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 4})
	require.NoError(t, err)

	require.NoError(t, svc.Checkin(ctx, actorOf(manager), checkout.ID, 3, 0))
	assert.Equal(t, 5, stockOf(t, svc, item.ID))
	active, err := svc.ActiveCheckouts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, active)
	assertHistoryBalances(t, svc, item.ID)
}

func TestCheckinWithEverythingLost(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Banner", 4, "25")
	checkout, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, svc.Checkin(ctx, actorOf(manager), checkout.ID, 0, 0))
	assert.Equal(t, 1, stockOf(t, svc, item.ID))

	closed, err := svc.GetCheckout(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutReturned, closed.Status)
	assert.Equal(t, 0, closed.ReturnedQuantity)
	assertHistoryBalances(t, svc, item.ID)

	err = svc.Checkin(ctx, actorOf(manager), checkout.ID, 0, 0)
	assert.ErrorIs(t, err, domain.ErrCheckoutAlreadyClosed)
}

func TestNotificationFailureKeepsCheckout(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = errors.New("smtp down")
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Tent", 2, "199.99")

	checkout, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 1})
	require.NoError(t, err)
	assert.NotZero(t, checkout.ID)
	assert.Equal(t, 1, stockOf(t, svc, item.ID))
}

func TestAdjustAndWriteOff(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Mug", 5, "3")

	require.NoError(t, svc.AdjustStock(ctx, actorOf(manager), item.ID, 7, "inventory count"))
	assert.Equal(t, 12, stockOf(t, svc, item.ID))

	assert.ErrorIs(t, svc.AdjustStock(ctx, actorOf(manager), item.ID, 0, "noop"), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, svc.AdjustStock(ctx, actorOf(manager), item.ID, -1, " "), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.AdjustStock(ctx, actorOf(manager), item.ID, -13, "too many"), domain.ErrInsufficientStock)

	require.NoError(t, svc.WriteOff(ctx, actorOf(manager), item.ID, 2, "broken"))
	assert.Equal(t, 10, stockOf(t, svc, item.ID))
	assert.ErrorIs(t, svc.WriteOff(ctx, actorOf(manager), item.ID, 0, ""), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, svc.WriteOff(ctx, actorOf(manager), item.ID, 11, ""), domain.ErrInsufficientStock)

	assertHistoryBalances(t, svc, item.ID)

	stats, err := svc.WriteOffStatsThisMonth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Units)
	assert.True(t, decimal.NewFromInt(6).Equal(stats.Value))
}

func TestDeleteItemInUse(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Speaker", 2, "80")
	checkout, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteItem(ctx, actorOf(manager), item.ID), domain.ErrItemInUse)

	require.NoError(t, svc.Checkin(ctx, actorOf(manager), checkout.ID, 1, 0))
	require.NoError(t, svc.DeleteItem(ctx, actorOf(manager), item.ID))
	_, err = svc.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestUpdateItemAndList(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Banner", 1, "20")
	createItem(t, svc, actorOf(manager), "Flag", 9, "15")

	name := "Roll-up banner"
	minStock := 3
	updated, err := svc.UpdateItem(ctx, actorOf(manager), item.ID, &UpdateItemInput{Name: &name, MinStock: &minStock})
	require.NoError(t, err)
	assert.Equal(t, "Roll-up banner", updated.Name)
	assert.Equal(t, 1, updated.CurrentStock)

	items, total, err := svc.ListItems(ctx, repositories.ItemFilter{Search: "banner"}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, item.ID, low[0].ID)

	_, err = svc.UpdateItem(ctx, actorOf(manager), 404, &UpdateItemInput{Name: &name})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestOverdueCheckouts(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Bike", 10, "300")

	var ids []uint
	for i := 0; i < 3; i++ {
		c, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 1})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	collect := func(now time.Time) []uint {
		var got []uint
		for c, err := range svc.OverdueCheckouts(ctx, now) {
			require.NoError(t, err)
			got = append(got, c.ID)
		}
		return got
	}

	assert.Empty(t, collect(t0.AddDate(0, 0, 13)))

	late := t0.AddDate(0, 0, 15)
	assert.ElementsMatch(t, ids, collect(late))

	// stop after the first element
	seen := 0
	for range svc.OverdueCheckouts(ctx, late) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)

	require.NoError(t, svc.MarkReminderSent(ctx, ids[0], late))
	require.NoError(t, svc.MarkReminderSent(ctx, ids[0], late))
	assert.ElementsMatch(t, ids[1:], collect(late.Add(time.Hour)))
	assert.ElementsMatch(t, ids, collect(late.Add(73*time.Hour)))
}

func TestStockStats(t *testing.T) {
	env := newTestEnv(t)
	svc := newInventoryService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, svc, actorOf(manager), "Laptop", 3, "10.50")
	_, err := svc.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)

	in, err := svc.InStockStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), in.Units)
	assert.True(t, decimal.RequireFromString("10.50").Equal(in.Value))

	out, err := svc.CheckedOutStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Units)
	assert.True(t, decimal.RequireFromString("21").Equal(out.Value))
}
