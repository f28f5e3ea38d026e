package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibc-intranet/internal/core/domain"
)

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	inv := newInventoryService(env)
	invitations := newInvitationService(env)
	events := newEventService(env)
	projects := newProjectService(env)
	dash := NewDashboardService(env.db, env.users, inv, invitations, events, projects)
	ctx := context.Background()

	board := env.seedUser(t, "board", domain.RoleBoard)
	member := env.seedUser(t, "member", domain.RoleMember)

	item := createItem(t, inv, actorOf(board), "Tent", 4, "100")
	createItem(t, inv, actorOf(board), "Rope", 1, "2.50")
	_, err := inv.Checkout(ctx, actorOf(board), &CheckoutInput{ItemID: item.ID, BorrowerID: member.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, inv.WriteOff(ctx, actorOf(board), item.ID, 1, "torn"))

	_, err = invitations.Issue(ctx, actorOf(board), "new@example.org", "member")
	require.NoError(t, err)

	p, err := projects.CreateProject(ctx, actorOf(board), &CreateProjectInput{Title: "Fundraiser"})
	require.NoError(t, err)
	_, err = projects.Apply(ctx, actorOf(member), p.ID, "")
	require.NoError(t, err)

	_, err = events.CreateEvent(ctx, actorOf(board), &CreateEventInput{Title: "General assembly", StartsAt: t0.Add(time.Hour), EndsAt: t0.Add(3 * time.Hour)})
	require.NoError(t, err)

	data, err := dash.GetDashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), data.TotalUsers)
	assert.Equal(t, int64(1), data.UsersByRole[domain.RoleBoard])
	assert.Equal(t, int64(3), data.InStock.Units)
	assert.True(t, decimal.RequireFromString("202.50").Equal(data.InStock.Value))
	assert.Equal(t, int64(1), data.CheckedOut.Units)
	assert.Equal(t, int64(1), data.WrittenOffMonth.Units)
	assert.Equal(t, 1, data.LowStockCount)
	assert.Zero(t, data.OverdueCheckouts)
	assert.Equal(t, int64(1), data.OpenInvitations)
	assert.Equal(t, int64(1), data.PendingApplications)
	require.Len(t, data.UpcomingEvents, 1)
	assert.Len(t, data.RecentStockEvents, 4)
}
