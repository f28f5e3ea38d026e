package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/core/domain"
)

func newEventService(e *testEnv) *EventService {
	return NewEventService(e.txr, repositories.NewEventRepository(e.db), e.users, e.notify, e.clock, zap.NewNop())
}

func TestEventSignupCapacity(t *testing.T) {
	env := newTestEnv(t)
	svc := newEventService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)
	alice := env.seedUser(t, "alice", domain.RoleMember)
	bob := env.seedUser(t, "bob", domain.RoleMember)

	event, err := svc.CreateEvent(ctx, actorOf(manager), &CreateEventInput{
		Title:    "Summer fair",
		StartsAt: t0.Add(48 * time.Hour),
		EndsAt:   t0.Add(52 * time.Hour),
		Slots:    []SlotInput{{Task: "Grill", Capacity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, event.Slots, 1)
	slotID := event.Slots[0].ID

	_, err = svc.Signup(ctx, actorOf(alice), slotID)
	require.NoError(t, err)

	_, err = svc.Signup(ctx, actorOf(alice), slotID)
	assert.ErrorIs(t, err, domain.ErrAlreadySignedUp)

	_, err = svc.Signup(ctx, actorOf(bob), slotID)
	assert.ErrorIs(t, err, domain.ErrSlotFull)

	sent := env.notifier.byKind(domain.NotifyEventSignupConfirm)
	require.Len(t, sent, 1)
	assert.Equal(t, alice.Email, sent[0].Recipient)
	assert.Equal(t, "Grill", sent[0].Data["task"])

	require.NoError(t, svc.CancelSignup(ctx, actorOf(alice), slotID))
	assert.ErrorIs(t, svc.CancelSignup(ctx, actorOf(alice), slotID), domain.ErrSignupNotFound)

	_, err = svc.Signup(ctx, actorOf(bob), slotID)
	require.NoError(t, err)

	got, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, got.Slots[0].Signups, 1)
	assert.Equal(t, bob.ID, got.Slots[0].Signups[0].UserID)
}

func TestEventValidationAndUpcoming(t *testing.T) {
	env := newTestEnv(t)
	svc := newEventService(env)
	ctx := context.Background()
	manager := env.seedUser(t, "manager", domain.RoleManager)

	_, err := svc.CreateEvent(ctx, actorOf(manager), &CreateEventInput{Title: "Backwards", StartsAt: t0, EndsAt: t0.Add(-time.Hour)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateEvent(ctx, actorOf(manager), &CreateEventInput{
		Title: "No helpers", StartsAt: t0, EndsAt: t0.Add(time.Hour),
		Slots: []SlotInput{{Task: "Door", Capacity: 0}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	past, err := svc.CreateEvent(ctx, actorOf(manager), &CreateEventInput{
		Title: "Yesterday", StartsAt: t0.Add(-26 * time.Hour), EndsAt: t0.Add(-24 * time.Hour),
		Slots: []SlotInput{{Task: "Cleanup", Capacity: 3}},
	})
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, actorOf(manager), &CreateEventInput{Title: "Tomorrow", StartsAt: t0.Add(24 * time.Hour), EndsAt: t0.Add(26 * time.Hour)})
	require.NoError(t, err)

	upcoming, err := svc.ListUpcoming(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Tomorrow", upcoming[0].Title)

	_, err = svc.Signup(ctx, actorOf(manager), past.Slots[0].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Signup(ctx, actorOf(manager), 999)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}
