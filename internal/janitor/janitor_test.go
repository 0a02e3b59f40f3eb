package janitor

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/nbeast/nbeast/internal/domain"
)

type purgeUserRepo struct {
	purged     int64
	purgeErr   error
	gotBefore  time.Time
	purgeCalls int
}

func (r *purgeUserRepo) FindOrCreate(context.Context, string) (*domain.User, error) { return nil, nil }
func (r *purgeUserRepo) FindByID(context.Context, string) (*domain.User, error)     { return nil, nil }
func (r *purgeUserRepo) UpdateName(context.Context, string, string) error           { return nil }
func (r *purgeUserRepo) CreateMagicToken(context.Context, string, string, time.Time) error {
	return nil
}
func (r *purgeUserRepo) ClaimMagicToken(context.Context, string) (*domain.MagicToken, error) {
	return nil, nil
}
func (r *purgeUserRepo) PurgeMagicTokens(_ context.Context, before time.Time) (int64, error) {
	r.purgeCalls++
	r.gotBefore = before
	return r.purged, r.purgeErr
}

type purgeSessionRepo struct {
	purged     int64
	purgeCalls int
}

func (r *purgeSessionRepo) Create(context.Context, *domain.Session) error { return nil }
func (r *purgeSessionRepo) FindByID(context.Context, string) (*domain.Session, error) {
	return nil, nil
}
func (r *purgeSessionRepo) Delete(context.Context, string) error { return nil }
func (r *purgeSessionRepo) PurgeExpired(context.Context, time.Time) (int64, error) {
	r.purgeCalls++
	return r.purged, nil
}

type purgeSendRecordRepo struct {
	purged     int64
	gotBefore  time.Time
	purgeCalls int
}

func (r *purgeSendRecordRepo) FindMostRecent(context.Context, string) (*domain.SendRecord, error) {
	return nil, nil
}
func (r *purgeSendRecordRepo) Create(context.Context, string, time.Time) error { return nil }
func (r *purgeSendRecordRepo) PurgeOlderThan(_ context.Context, before time.Time) (int64, error) {
	r.purgeCalls++
	r.gotBefore = before
	return r.purged, nil
}

func newTestJanitor(users *purgeUserRepo, sessions *purgeSessionRepo, records *purgeSendRecordRepo, at time.Time) *Janitor {
	j := New(users, sessions, records, slog.Default())
	j.now = func() time.Time { return at }
	return j
}

func TestRunOnce_PurgesAllTables(t *testing.T) {
	users := &purgeUserRepo{purged: 3}
	sessions := &purgeSessionRepo{purged: 2}
	records := &purgeSendRecordRepo{purged: 5}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newTestJanitor(users, sessions, records, at).RunOnce(context.Background())

	if users.purgeCalls != 1 || sessions.purgeCalls != 1 || records.purgeCalls != 1 {
		t.Errorf("purge calls = %d/%d/%d, want 1 each",
			users.purgeCalls, sessions.purgeCalls, records.purgeCalls)
	}
	if !users.gotBefore.Equal(at) {
		t.Errorf("magic token cutoff = %v, want %v", users.gotBefore, at)
	}
	if want := at.Add(-24 * time.Hour); !records.gotBefore.Equal(want) {
		t.Errorf("send record cutoff = %v, want %v", records.gotBefore, want)
	}
}

func TestRunOnce_OneFailureDoesNotBlockOthers(t *testing.T) {
	users := &purgeUserRepo{purgeErr: errors.New("db down")}
	sessions := &purgeSessionRepo{}
	records := &purgeSendRecordRepo{}

	newTestJanitor(users, sessions, records, time.Now()).RunOnce(context.Background())

	if sessions.purgeCalls != 1 || records.purgeCalls != 1 {
		t.Errorf("later purges skipped: sessions=%d records=%d", sessions.purgeCalls, records.purgeCalls)
	}
}
