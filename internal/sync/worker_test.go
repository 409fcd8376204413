package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestConfirmedTip(t *testing.T) {
	cases := []struct {
		tipBlock, confirmations, wantTip uint64
		wantOK                           bool
	}{
		{100, 6, 94, true},
		{5, 6, 0, false},
		{6, 6, 0, true},
	}
	for _, c := range cases {
		tip, ok := confirmedTip(c.tipBlock, c.confirmations)
		if ok != c.wantOK || (ok && tip != c.wantTip) {
			t.Errorf("confirmedTip(%d, %d) = (%d, %v), want (%d, %v)", c.tipBlock, c.confirmations, tip, ok, c.wantTip, c.wantOK)
		}
	}
}

func TestNextFetchRange(t *testing.T) {
	cases := []struct {
		name                          string
		lastProcessed, tip, maxBlocks uint64
		wantFrom, wantTo              uint64
	}{
		{"within budget", 100, 150, 1000, 101, 150},
		{"capped by max blocks", 100, 5000, 1000, 101, 1100},
		{"single block remaining", 99, 100, 1000, 100, 100},
	}
	for _, c := range cases {
		from, to := nextFetchRange(c.lastProcessed, c.tip, c.maxBlocks)
		if from != c.wantFrom || to != c.wantTo {
			t.Errorf("%s: nextFetchRange(%d, %d, %d) = (%d, %d), want (%d, %d)",
				c.name, c.lastProcessed, c.tip, c.maxBlocks, from, to, c.wantFrom, c.wantTo)
		}
	}
}

func TestIsOrphanedEventErr(t *testing.T) {
	if !isOrphanedEventErr(pgx.ErrNoRows) {
		t.Error("pgx.ErrNoRows should be classified as orphaned")
	}
	fkErr := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	if !isOrphanedEventErr(fkErr) {
		t.Error("foreign key violation should be classified as orphaned")
	}
	if isOrphanedEventErr(errors.New("disk full")) {
		t.Error("an unrelated storage error should not be classified as orphaned")
	}
}

func TestHexOf(t *testing.T) {
	if got := hexOf([]byte{0xab, 0xcd}); got != "0xabcd" {
		t.Errorf("hexOf = %s, want 0xabcd", got)
	}
}

func TestLifecycleStartStop(t *testing.T) {
	var l lifecycle
	started := make(chan struct{})
	stopped := make(chan struct{})
	l.start(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(stopped)
	})
	<-started
	l.stop(time.Second)
	select {
	case <-stopped:
	default:
		t.Error("run function did not observe cancellation")
	}
}

func TestLifecycleStartTwiceIsNoop(t *testing.T) {
	var l lifecycle
	calls := 0
	done := make(chan struct{})
	l.start(context.Background(), func(ctx context.Context) {
		calls++
		<-ctx.Done()
		close(done)
	})
	l.start(context.Background(), func(ctx context.Context) {
		calls++
	})
	l.stop(time.Second)
	<-done
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (second start should be a no-op)", calls)
	}
}
