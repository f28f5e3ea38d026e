package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/metrics"
)

func TestSendOverdueReminders(t *testing.T) {
	env := newTestEnv(t)
	inv := newInventoryService(env)
	reminders := NewReminderService(inv, newInvitationService(env), env.notify, env.clock, metrics.New(), zap.NewNop(), env.cfg.Inventory)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	borrower := env.seedUser(t, "borrower", domain.RoleMember)
	item := createItem(t, inv, actorOf(manager), "Camera", 3, "500")

	_, err := inv.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, BorrowerID: borrower.ID, Quantity: 1})
	require.NoError(t, err)

	n, err := reminders.SendOverdueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(15 * 24 * time.Hour)
	n, err = reminders.SendOverdueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sent := env.notifier.byKind(domain.NotifyOverdueReminder)
	require.Len(t, sent, 1)
	assert.Equal(t, borrower.Email, sent[0].Recipient)
	assert.Equal(t, "Camera", sent[0].Data["item"])

	// within the cooldown nothing is sent again
	env.clock.Advance(24 * time.Hour)
	n, err = reminders.SendOverdueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(3 * 24 * time.Hour)
	n, err = reminders.SendOverdueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFailedReminderIsRetried(t *testing.T) {
	env := newTestEnv(t)
	inv := newInventoryService(env)
	reminders := NewReminderService(inv, newInvitationService(env), env.notify, env.clock, nil, zap.NewNop(), env.cfg.Inventory)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	item := createItem(t, inv, actorOf(manager), "Drone", 1, "900")
	_, err := inv.Checkout(ctx, actorOf(manager), &CheckoutInput{ItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	env.clock.Advance(20 * 24 * time.Hour)
	env.notifier.fail = errors.New("smtp down")
	n, err := reminders.SendOverdueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.notifier.fail = nil
	n, err = reminders.SendOverdueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.cfg.Inventory
	cfg.ReminderCron = "not a cron"
	cfg.ExpiryCron = "0 * * * *"
	reminders := NewReminderService(newInventoryService(env), newInvitationService(env), env.notify, env.clock, nil, zap.NewNop(), cfg)
	assert.Error(t, reminders.Start())

	cfg.ReminderCron = "30 8 * * *"
	reminders = NewReminderService(newInventoryService(env), newInvitationService(env), env.notify, env.clock, nil, zap.NewNop(), cfg)
	require.NoError(t, reminders.Start())
	reminders.Stop()
}
