package services

import (
	"context"
	"testing"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/models"
)

func createTestGoal(t *testing.T, ctx context.Context, service *GoalService, admin models.Principal, optionNames ...string) *models.GoalView {
	t.Helper()

	options := make([]CreateGoalOption, 0, len(optionNames))
	for _, name := range optionNames {
		options = append(options, CreateGoalOption{Name: name, TargetAmount: 500000})
	}
	goal, err := service.CreateGoal(ctx, admin, CreateGoalInput{
		Name:         "New equipment",
		VotingEndsAt: time.Now().Add(7 * 24 * time.Hour).UTC(),
		IsVisible:    true,
		Options:      options,
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	return goal
}

func TestGoalVoteCastChangeAndConservation(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, events := newIntegrationGoalService(pool)

	gymID := createTestGym(t, ctx, pool, models.TierPro)
	t.Cleanup(func() { cleanupTestGyms(t, ctx, pool, gymID) })
	adminID := createTestUser(t, ctx, pool, gymID, models.RoleAdmin)
	memberID := createTestUser(t, ctx, pool, gymID, models.RoleMember)

	admin := models.Principal{UserID: adminID, Role: models.RoleAdmin, GymID: gymID}
	member := models.Principal{UserID: memberID, Role: models.RoleMember, GymID: gymID}

	goal := createTestGoal(t, ctx, service, admin, "Squat racks", "Treadmills")
	firstOption := goal.Options[0].ID
	secondOption := goal.Options[1].ID

	result, err := service.CastVote(ctx, member, goal.ID, firstOption)
	if err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	if !result.Changed || result.TotalVotes != 1 {
		t.Fatalf("expected first ballot to count, got %+v", result)
	}

	// Re-voting the same option is a no-op.
	result, err = service.CastVote(ctx, member, goal.ID, firstOption)
	if err != nil {
		t.Fatalf("CastVote repeat: %v", err)
	}
	if result.Changed {
		t.Fatal("same-option re-vote must not report a change")
	}
	if result.TotalVotes != 1 {
		t.Fatalf("expected total to stay 1, got %d", result.TotalVotes)
	}

	// Switching moves the single ballot, never duplicates it.
	result, err = service.CastVote(ctx, member, goal.ID, secondOption)
	if err != nil {
		t.Fatalf("CastVote switch: %v", err)
	}
	if !result.Changed {
		t.Fatal("switching options must report a change")
	}
	if result.PreviousOptionID == nil || *result.PreviousOptionID != firstOption {
		t.Fatalf("expected previous option %d, got %+v", firstOption, result.PreviousOptionID)
	}
	if result.TotalVotes != 1 {
		t.Fatalf("vote conservation violated: total %d", result.TotalVotes)
	}
	// Two changed ballots, the idempotent re-vote stays silent.
	if got := events.countOfType("goal.vote_cast"); got != 2 {
		t.Fatalf("expected 2 vote_cast events, got %d", got)
	}
	for _, option := range result.Options {
		switch option.ID {
		case firstOption:
			if option.VoteCount != 0 {
				t.Fatalf("expected option %d to drop to 0 votes, got %d", firstOption, option.VoteCount)
			}
		case secondOption:
			if option.VoteCount != 1 {
				t.Fatalf("expected option %d to have 1 vote, got %d", secondOption, option.VoteCount)
			}
		}
	}
}

func TestGoalVoteRejectsForeignOption(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationGoalService(pool)

	gymID := createTestGym(t, ctx, pool, models.TierPro)
	t.Cleanup(func() { cleanupTestGyms(t, ctx, pool, gymID) })
	adminID := createTestUser(t, ctx, pool, gymID, models.RoleAdmin)
	memberID := createTestUser(t, ctx, pool, gymID, models.RoleMember)

	admin := models.Principal{UserID: adminID, Role: models.RoleAdmin, GymID: gymID}
	member := models.Principal{UserID: memberID, Role: models.RoleMember, GymID: gymID}

	first := createTestGoal(t, ctx, service, admin, "Squat racks", "Treadmills")
	second := createTestGoal(t, ctx, service, admin, "Sauna", "Pool")

	// An option id from another goal never counts.
	if _, err := service.CastVote(ctx, member, first.ID, second.Options[0].ID); err != ErrInvalidOption {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

func TestGoalAutoCloseTieBreaksByDisplayOrder(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationGoalService(pool)

	gymID := createTestGym(t, ctx, pool, models.TierPro)
	t.Cleanup(func() { cleanupTestGyms(t, ctx, pool, gymID) })
	adminID := createTestUser(t, ctx, pool, gymID, models.RoleAdmin)
	firstMemberID := createTestUser(t, ctx, pool, gymID, models.RoleMember)
	secondMemberID := createTestUser(t, ctx, pool, gymID, models.RoleMember)

	admin := models.Principal{UserID: adminID, Role: models.RoleAdmin, GymID: gymID}
	firstMember := models.Principal{UserID: firstMemberID, Role: models.RoleMember, GymID: gymID}
	secondMember := models.Principal{UserID: secondMemberID, Role: models.RoleMember, GymID: gymID}

	goal := createTestGoal(t, ctx, service, admin, "Squat racks", "Treadmills")

	if _, err := service.CastVote(ctx, firstMember, goal.ID, goal.Options[0].ID); err != nil {
		t.Fatalf("CastVote first: %v", err)
	}
	if _, err := service.CastVote(ctx, secondMember, goal.ID, goal.Options[1].ID); err != nil {
		t.Fatalf("CastVote second: %v", err)
	}

	if _, err := pool.Exec(ctx,
		"UPDATE goals SET voting_ends_at = NOW() - INTERVAL '1 hour' WHERE id = $1", goal.ID,
	); err != nil {
		t.Fatalf("expire voting: %v", err)
	}

	if err := service.CloseExpiredVoting(ctx, gymID); err != nil {
		t.Fatalf("CloseExpiredVoting: %v", err)
	}

	closed, err := service.GetGoal(ctx, admin, goal.ID)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	if closed.Status != "fundraising" {
		t.Fatalf("expected fundraising status, got %q", closed.Status)
	}
	if closed.WinningOptionID == nil || *closed.WinningOptionID != goal.Options[0].ID {
		t.Fatalf("tie must fall to the first listed option %d, got %+v", goal.Options[0].ID, closed.WinningOptionID)
	}

	// The sweep is idempotent.
	if err := service.CloseExpiredVoting(ctx, gymID); err != nil {
		t.Fatalf("second CloseExpiredVoting: %v", err)
	}
	again, err := service.GetGoal(ctx, admin, goal.ID)
	if err != nil {
		t.Fatalf("GetGoal after second sweep: %v", err)
	}
	if *again.WinningOptionID != goal.Options[0].ID {
		t.Fatalf("winner changed on second sweep: %+v", again.WinningOptionID)
	}

	// No further ballots once fundraising started.
	if _, err := service.CastVote(ctx, firstMember, goal.ID, goal.Options[1].ID); err != ErrVotingNotActive {
		t.Fatalf("expected ErrVotingNotActive, got %v", err)
	}
}

func TestGoalContributionsAccumulateAndComplete(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationGoalService(pool)

	gymID := createTestGym(t, ctx, pool, models.TierPro)
	t.Cleanup(func() { cleanupTestGyms(t, ctx, pool, gymID) })
	adminID := createTestUser(t, ctx, pool, gymID, models.RoleAdmin)
	memberID := createTestUser(t, ctx, pool, gymID, models.RoleMember)

	admin := models.Principal{UserID: adminID, Role: models.RoleAdmin, GymID: gymID}
	member := models.Principal{UserID: memberID, Role: models.RoleMember, GymID: gymID}

	goal := createTestGoal(t, ctx, service, admin, "Squat racks", "Treadmills")

	// Contributions are rejected while voting is still open.
	if _, err := service.RecordContribution(ctx, member, goal.ID, 10000); err != ErrFundraisingNotActive {
		t.Fatalf("expected ErrFundraisingNotActive, got %v", err)
	}

	if _, err := service.CastVote(ctx, member, goal.ID, goal.Options[0].ID); err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	if _, err := pool.Exec(ctx,
		"UPDATE goals SET voting_ends_at = NOW() - INTERVAL '1 hour' WHERE id = $1", goal.ID,
	); err != nil {
		t.Fatalf("expire voting: %v", err)
	}
	if err := service.CloseExpiredVoting(ctx, gymID); err != nil {
		t.Fatalf("CloseExpiredVoting: %v", err)
	}

	partial, err := service.RecordContribution(ctx, member, goal.ID, 200000)
	if err != nil {
		t.Fatalf("RecordContribution: %v", err)
	}
	if partial.Status != "fundraising" {
		t.Fatalf("expected fundraising to continue, got %q", partial.Status)
	}
	if partial.CurrentAmountDisplay != 2000 {
		t.Fatalf("expected 2000 display amount, got %v", partial.CurrentAmountDisplay)
	}

	// Crossing the winning option's target completes the goal.
	full, err := service.RecordContribution(ctx, member, goal.ID, 300000)
	if err != nil {
		t.Fatalf("RecordContribution final: %v", err)
	}
	if full.Status != "completed" {
		t.Fatalf("expected completed goal, got %q", full.Status)
	}
	if full.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	// Completed goals take no further money.
	if _, err := service.RecordContribution(ctx, member, goal.ID, 100); err != ErrFundraisingNotActive {
		t.Fatalf("expected ErrFundraisingNotActive after completion, got %v", err)
	}
}

func TestGoalBoardHidesInvisibleGoalsFromMembers(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationGoalService(pool)

	gymID := createTestGym(t, ctx, pool, models.TierPro)
	t.Cleanup(func() { cleanupTestGyms(t, ctx, pool, gymID) })
	adminID := createTestUser(t, ctx, pool, gymID, models.RoleAdmin)
	memberID := createTestUser(t, ctx, pool, gymID, models.RoleMember)

	admin := models.Principal{UserID: adminID, Role: models.RoleAdmin, GymID: gymID}
	member := models.Principal{UserID: memberID, Role: models.RoleMember, GymID: gymID}

	hidden, err := service.CreateGoal(ctx, admin, CreateGoalInput{
		Name:         "Surprise upgrade",
		VotingEndsAt: time.Now().Add(7 * 24 * time.Hour).UTC(),
		IsVisible:    false,
		Options: []CreateGoalOption{
			{Name: "Option A", TargetAmount: 100000},
			{Name: "Option B", TargetAmount: 200000},
		},
	})
	if err != nil {
		t.Fatalf("CreateGoal hidden: %v", err)
	}

	memberBoard, err := service.ListActiveGoals(ctx, member)
	if err != nil {
		t.Fatalf("ListActiveGoals member: %v", err)
	}
	for _, view := range memberBoard.VotingGoals {
		if view.ID == hidden.ID {
			t.Fatal("members must not see hidden goals")
		}
	}

	adminBoard, err := service.ListActiveGoals(ctx, admin)
	if err != nil {
		t.Fatalf("ListActiveGoals admin: %v", err)
	}
	found := false
	for _, view := range adminBoard.VotingGoals {
		if view.ID == hidden.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("admins should see hidden goals")
	}
}

func TestGoalConcurrentVoteSwitchesConserveTotals(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationGoalService(pool)

	gymID := createTestGym(t, ctx, pool, models.TierPro)
	t.Cleanup(func() { cleanupTestGyms(t, ctx, pool, gymID) })
	adminID := createTestUser(t, ctx, pool, gymID, models.RoleAdmin)
	admin := models.Principal{UserID: adminID, Role: models.RoleAdmin, GymID: gymID}

	goal := createTestGoal(t, ctx, service, admin, "Squat racks", "Treadmills", "Rowers")
	first := goal.Options[0].ID
	second := goal.Options[1].ID
	third := goal.Options[2].ID

	members := make([]models.Principal, 4)
	for i := range members {
		memberID := createTestUser(t, ctx, pool, gymID, models.RoleMember)
		members[i] = models.Principal{UserID: memberID, Role: models.RoleMember, GymID: gymID}
		if _, err := service.CastVote(ctx, members[i], goal.ID, first); err != nil {
			t.Fatalf("seed ballot for member %d: %v", memberID, err)
		}
	}

	// All four ballots move at the same moment, split across two
	// destinations. The goal row lock serializes them.
	start := make(chan struct{})
	results := make(chan error, len(members))
	for i, member := range members {
		target := second
		if i%2 == 1 {
			target = third
		}
		go func(member models.Principal, target int64) {
			<-start
			_, err := service.CastVote(ctx, member, goal.ID, target)
			results <- err
		}(member, target)
	}
	close(start)

	for range members {
		if err := <-results; err != nil {
			t.Fatalf("concurrent CastVote: %v", err)
		}
	}

	var ballots, counted int
	if err := pool.QueryRow(
		ctx, "SELECT COUNT(*) FROM goal_votes WHERE goal_id = $1", goal.ID,
	).Scan(&ballots); err != nil {
		t.Fatalf("count ballots: %v", err)
	}
	if err := pool.QueryRow(
		ctx, "SELECT COALESCE(SUM(vote_count), 0) FROM goal_options WHERE goal_id = $1", goal.ID,
	).Scan(&counted); err != nil {
		t.Fatalf("sum option counts: %v", err)
	}
	if ballots != len(members) || counted != len(members) {
		t.Fatalf("vote conservation violated: %d ballots, %d counted", ballots, counted)
	}

	counts := map[int64]int{}
	rows, err := pool.Query(
		ctx, "SELECT id, vote_count FROM goal_options WHERE goal_id = $1", goal.ID,
	)
	if err != nil {
		t.Fatalf("load option counts: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			t.Fatalf("scan option count: %v", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate option counts: %v", err)
	}
	if counts[first] != 0 || counts[second] != 2 || counts[third] != 2 {
		t.Fatalf("expected counts 0/2/2 after the switches, got %d/%d/%d",
			counts[first], counts[second], counts[third])
	}
}
