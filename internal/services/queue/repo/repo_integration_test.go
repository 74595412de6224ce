//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"fanflow/internal/modkit/repokit"
	"fanflow/internal/platform/store"
	"fanflow/internal/services/queue/domain"
)

func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

const queueSchema = `
CREATE TABLE queue_items (
	id               uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	interaction_id   uuid NOT NULL,
	automation_id    uuid,
	platform         text NOT NULL,
	account          text NOT NULL DEFAULT '',
	external_id      text NOT NULL DEFAULT '',
	content_id       text,
	action           text NOT NULL,
	payload          text NOT NULL DEFAULT '',
	priority         int NOT NULL DEFAULT 3,
	status           text NOT NULL DEFAULT 'pending',
	scheduled_for    timestamptz NOT NULL,
	retry_count      int NOT NULL DEFAULT 0,
	last_error_code  int,
	last_error       text,
	batch_id         uuid,
	leased_by        text,
	lease_expires_at timestamptz,
	sent_at          timestamptz,
	created_at       timestamptz NOT NULL DEFAULT now(),
	updated_at       timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE dead_letters (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	queue_item_id uuid NOT NULL,
	platform      text NOT NULL,
	external_id   text NOT NULL DEFAULT '',
	reason        text NOT NULL,
	error_code    int NOT NULL DEFAULT 0,
	created_at    timestamptz NOT NULL DEFAULT now()
);
`

func TestQueueRepoLifecycle_Integration(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		AppName: "fanflow-queue-integration",
		PG: store.PGConfig{
			Enabled:        true,
			URL:            dsn,
			MaxConns:       4,
			ConnectRetries: 3,
			PingTimeout:    5 * time.Second,
		},
	})
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	defer func() { _ = st.Close(context.Background()) }()

	if _, err := st.PG.Exec(ctx, queueSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	r := NewPG().Bind(st.PG)

	enqueue := func(t *testing.T, sched time.Time) string {
		t.Helper()
		id, err := r.Insert(ctx, domain.NewItem{
			InteractionID: uuid.NewString(),
			Platform:      "youtube",
			Account:       "creator-1",
			ExternalID:    "c-1",
			Action:        "reply",
			Payload:       "hello",
			Priority:      3,
			ScheduledFor:  sched,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		return id
	}

	due := time.Now().Add(-time.Minute)

	t.Run("claim is exclusive", func(t *testing.T) {
		id := enqueue(t, due)

		ok, err := r.Claim(ctx, id, "w1", uuid.NewString(), 30*time.Second)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if !ok {
			t.Fatal("first claim should win")
		}

		ok, err = r.Claim(ctx, id, "w2", uuid.NewString(), 30*time.Second)
		if err != nil {
			t.Fatalf("second claim: %v", err)
		}
		if ok {
			t.Fatal("second claim on a processing item must lose")
		}
	})

	t.Run("claim ignores future items", func(t *testing.T) {
		id := enqueue(t, time.Now().Add(time.Hour))

		ok, err := r.Claim(ctx, id, "w1", "", 30*time.Second)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if ok {
			t.Fatal("an item scheduled in the future must not be claimable")
		}
	})

	t.Run("retry transitions", func(t *testing.T) {
		id := enqueue(t, due)
		if ok, _ := r.Claim(ctx, id, "w1", "", 30*time.Second); !ok {
			t.Fatal("claim should win")
		}

		if err := r.RequeueRetry(ctx, id, time.Now().Add(-time.Second), 14, "upstream 503"); err != nil {
			t.Fatalf("requeue: %v", err)
		}
		if n, err := r.RetryCount(ctx, id); err != nil || n != 1 {
			t.Fatalf("retry count after requeue = %d (%v), want 1", n, err)
		}

		// a requeued item is pending and due again
		if ok, _ := r.Claim(ctx, id, "w1", "", 30*time.Second); !ok {
			t.Fatal("requeued item should be claimable")
		}

		if err := r.MarkFailedTerminal(ctx, id, 14, "upstream 503"); err != nil {
			t.Fatalf("terminal: %v", err)
		}
		if n, _ := r.RetryCount(ctx, id); n != 2 {
			t.Fatalf("retry count after terminal = %d, want 2", n)
		}

		// failed never transitions back to pending
		if ok, _ := r.Claim(ctx, id, "w1", "", 30*time.Second); ok {
			t.Fatal("failed item must not be claimable")
		}
		if err := r.RequeueRetry(ctx, id, time.Now(), 14, "x"); err != nil {
			t.Fatalf("requeue on failed: %v", err)
		}
		if n, _ := r.RetryCount(ctx, id); n != 2 {
			t.Fatalf("requeue on a failed item must be a no-op, count = %d", n)
		}
	})

	t.Run("dead letter lands with the terminal update", func(t *testing.T) {
		id := enqueue(t, due)
		if ok, _ := r.Claim(ctx, id, "w1", "", 30*time.Second); !ok {
			t.Fatal("claim should win")
		}

		err := st.PG.Tx(ctx, func(q repokit.Queryer) error {
			tr := NewPG().Bind(q)
			if err := tr.MarkFailedTerminal(ctx, id, 16, "token revoked"); err != nil {
				return err
			}
			return tr.InsertDeadLetter(ctx, domain.DeadLetter{
				QueueItemID: id,
				Platform:    "youtube",
				ExternalID:  "c-1",
				Reason:      "token revoked",
				ErrorCode:   16,
			})
		})
		if err != nil {
			t.Fatalf("tx: %v", err)
		}

		letters, err := r.DeadLetters(ctx, domain.DeadLetterFilter{Platform: "youtube"})
		if err != nil {
			t.Fatalf("dead letters: %v", err)
		}
		found := false
		for _, d := range letters {
			if d.QueueItemID == id {
				found = true
				if d.Reason != "token revoked" || d.ErrorCode != 16 {
					t.Fatalf("dead letter = %+v", d)
				}
			}
		}
		if !found {
			t.Fatal("expected a dead letter for the failed item")
		}
	})

	t.Run("aborted transaction leaves no dead letter", func(t *testing.T) {
		id := enqueue(t, due)
		if ok, _ := r.Claim(ctx, id, "w1", "", 30*time.Second); !ok {
			t.Fatal("claim should win")
		}

		boom := errors.New("boom")
		err := st.PG.Tx(ctx, func(q repokit.Queryer) error {
			tr := NewPG().Bind(q)
			if err := tr.MarkFailedTerminal(ctx, id, 16, "half done"); err != nil {
				return err
			}
			if err := tr.InsertDeadLetter(ctx, domain.DeadLetter{
				QueueItemID: id,
				Platform:    "youtube",
				Reason:      "half done",
			}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("tx err = %v, want boom", err)
		}

		letters, err := r.DeadLetters(ctx, domain.DeadLetterFilter{Platform: "youtube"})
		if err != nil {
			t.Fatalf("dead letters: %v", err)
		}
		for _, d := range letters {
			if d.QueueItemID == id {
				t.Fatal("rolled-back dead letter is visible")
			}
		}

		// the rollback also undid the terminal update
		if ok, _ := r.Claim(ctx, id, "w1", "", 30*time.Second); ok {
			t.Fatal("item should still be processing after the rollback")
		}
	})

	t.Run("reap returns expired leases to pending", func(t *testing.T) {
		id := enqueue(t, due)
		if ok, _ := r.Claim(ctx, id, "w1", "", -time.Second); !ok {
			t.Fatal("claim should win")
		}

		n, err := r.ReapExpiredLeases(ctx)
		if err != nil {
			t.Fatalf("reap: %v", err)
		}
		if n < 1 {
			t.Fatalf("reaped = %d, want >= 1", n)
		}

		if ok, _ := r.Claim(ctx, id, "w2", "", 30*time.Second); !ok {
			t.Fatal("reaped item should be claimable by another worker")
		}
	})
}
