package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/fitclub-app/GymClubBack/internal/repository"
	notifyws "github.com/fitclub-app/GymClubBack/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// eventRecorder captures the events a service publishes so tests can
// assert on them without a running hub.
type eventRecorder struct {
	mu     sync.Mutex
	events []notifyws.Event
}

func (r *eventRecorder) Notify(userIDs []int64, event notifyws.Event) {
	r.record(event)
}

func (r *eventRecorder) NotifyGym(gymID int64, event notifyws.Event) {
	r.record(event)
}

func (r *eventRecorder) record(event notifyws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) countOfType(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, event := range r.events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func createTestGym(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tier string) int64 {
	t.Helper()

	var gymID int64
	err := pool.QueryRow(
		ctx,
		"INSERT INTO gyms (name, subscription_tier) VALUES ($1, $2) RETURNING id",
		fmt.Sprintf("test-gym-%d", time.Now().UnixNano()),
		tier,
	).Scan(&gymID)
	if err != nil {
		t.Fatalf("create test gym: %v", err)
	}
	return gymID
}

func createTestUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, gymID int64, role string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		GymID:        gymID,
		Email:        fmt.Sprintf("test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         role,
		DisplayName:  "Test " + role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}
	return user.ID
}

func cleanupTestGyms(t *testing.T, ctx context.Context, pool *pgxpool.Pool, gymIDs ...int64) {
	t.Helper()

	if len(gymIDs) == 0 {
		return
	}

	statements := []string{
		"DELETE FROM goal_contributions WHERE goal_id IN (SELECT id FROM goals WHERE gym_id = ANY($1))",
		"DELETE FROM goal_votes WHERE goal_id IN (SELECT id FROM goals WHERE gym_id = ANY($1))",
		"UPDATE goals SET winning_option_id = NULL WHERE gym_id = ANY($1)",
		"DELETE FROM goal_options WHERE goal_id IN (SELECT id FROM goals WHERE gym_id = ANY($1))",
		"DELETE FROM goals WHERE gym_id = ANY($1)",
		"DELETE FROM scheduled_sessions WHERE gym_id = ANY($1)",
		"DELETE FROM session_proposals WHERE request_id IN (SELECT id FROM session_requests WHERE gym_id = ANY($1))",
		"DELETE FROM session_requests WHERE gym_id = ANY($1)",
		"DELETE FROM users WHERE gym_id = ANY($1)",
		"DELETE FROM gyms WHERE id = ANY($1)",
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt, gymIDs); err != nil {
			t.Fatalf("cleanup %q: %v", stmt, err)
		}
	}
}

func newIntegrationNegotiationService(pool *pgxpool.Pool) (*NegotiationService, *eventRecorder) {
	recorder := &eventRecorder{}
	return NewNegotiationService(
		pool,
		repository.NewSessionRequestRepository(pool),
		repository.NewSessionProposalRepository(pool),
		repository.NewScheduledSessionRepository(pool),
		repository.NewUserRepository(pool),
		NewTierFeatureGate(repository.NewGymRepository(pool)),
		recorder,
	), recorder
}

func newIntegrationGoalService(pool *pgxpool.Pool) (*GoalService, *eventRecorder) {
	recorder := &eventRecorder{}
	return NewGoalService(
		pool,
		repository.NewGoalRepository(pool),
		repository.NewGoalOptionRepository(pool),
		repository.NewGoalVoteRepository(pool),
		repository.NewGoalContributionRepository(pool),
		NewTierFeatureGate(repository.NewGymRepository(pool)),
		recorder,
	), recorder
}
