package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/password"
	"ibc-intranet/internal/pkg/testdb"
)

const testPassword = "correct-horse"

var t0 = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type sentNotification struct {
	Kind      domain.NotificationKind
	Recipient string
	Data      map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail error
}

func (f *fakeNotifier) Send(_ context.Context, kind domain.NotificationKind, recipient string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentNotification{Kind: kind, Recipient: recipient, Data: data})
	return nil
}

func (f *fakeNotifier) byKind(kind domain.NotificationKind) []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotification
	for _, n := range f.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type testEnv struct {
	db       *gorm.DB
	clock    *clock.Mock
	notifier *fakeNotifier
	notify   *NotificationService
	txr      repositories.Transactor
	users    repositories.UserRepository
	hasher   *password.Hasher
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testdb.New(t)
	n := &fakeNotifier{}
	return &testEnv{
		db:       db,
		clock:    clock.NewMock(t0),
		notifier: n,
		notify:   NewNotificationService(n, nil, zap.NewNop()),
		txr:      repositories.NewTransactor(db),
		users:    repositories.NewUserRepository(db),
		hasher:   password.NewHasher(bcrypt.MinCost),
		cfg: &config.Config{
			Session:  config.SessionConfig{IdleTimeout: 30 * time.Minute},
			Security: config.SecurityConfig{LockoutThreshold: 3, LockoutDuration: 15 * time.Minute},
			Invitation: config.InvitationConfig{
				Secret:  "test-secret",
				TTL:     7 * 24 * time.Hour,
				BaseURL: "https://intranet.example.org/register",
			},
			Inventory: config.InventoryConfig{
				DefaultLoanDays:  14,
				DefaultMinStock:  2,
				ReminderCooldown: 72 * time.Hour,
			},
		},
	}
}

func (e *testEnv) seedUser(t *testing.T, name string, role domain.Role) *models.User {
	t.Helper()
	hash, err := e.hasher.Hash(testPassword)
	require.NoError(t, err)
	u := &models.User{
		Username: name,
		Email:    name + "@example.org",
		Password: hash,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func actorOf(u *models.User) domain.Actor {
	return domain.Actor{UserID: u.ID, Role: u.Role}
}
