package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hongyu-crm/crm-backend/config"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/repository"
	"github.com/hongyu-crm/crm-backend/internal/crm/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func run(t *testing.T, store repository.Store, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(Options{
		Version: "test",
		LoadConfig: func() (*config.Config, error) {
			return &config.Config{
				Store: config.StoreConfig{Driver: config.StoreMemory},
				Seed:  config.SeedConfig{Username: "admin", Password: "admin123"},
			}, nil
		},
		OpenStore: func(context.Context, *config.Config) (repository.Store, func() error, error) {
			return store, func() error { return nil }, nil
		},
		Clock: status.FixedClock(now),
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedAndUsers(t *testing.T) {
	store := repository.NewMemoryStore()

	_, err := run(t, store, "users", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crmctl seed")

	out, err := run(t, store, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, `created super admin "admin"`)

	out, err = run(t, store, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "already present")

	out, err = run(t, store, "users", "add", "alice", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "created alice")

	_, err = run(t, store, "users", "add", "alice", "pw")
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	out, err = run(t, store, "users", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "admin")
	assert.Contains(t, lines[1], "super_admin")
	assert.Contains(t, lines[2], "alice")
}

func TestFollowups(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	_, err := run(t, store, "seed")
	require.NoError(t, err)

	add := func(id string, platform domain.Platform, untracked time.Duration) {
		require.NoError(t, store.UpsertCustomer(ctx, domain.Customer{
			ID: id, CreatorID: "someone", Name: id, Platform: platform,
			LastTrackedDate: now.Add(-untracked),
		}))
	}
	add("today", domain.PlatformXianyu, time.Hour)
	add("urgent", domain.PlatformXiaohongshu, 30*24*time.Hour)
	add("warning", domain.PlatformXianyu, 5*24*time.Hour)

	out, err := run(t, store, "followups")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "urgent"))
	assert.True(t, strings.HasPrefix(lines[2], "warning"))
	assert.True(t, strings.HasPrefix(lines[3], "contacted_today"))

	out, err = run(t, store, "followups", "--platform", "xianyu")
	require.NoError(t, err)
	assert.NotContains(t, out, "xiaohongshu")

	_, err = run(t, store, "followups", "--platform", "douyin")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
