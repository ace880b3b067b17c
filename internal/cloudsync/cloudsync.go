// Package cloudsync implements the manual cloud replication driver for the
// embedded store: a single sync() operation that commits local changes,
// pushes them to a remote replica, and pulls remote updates back in. There is
// no background sync loop — callers decide when to pay the network cost.
package cloudsync

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zenith-dev/zenith/internal/zerr"
)

var tracer = otel.Tracer("zenith/cloudsync")

// Config describes how to reach the remote replica.
type Config struct {
	// URL is the remote replica's MySQL-wire address, e.g. "tcp(host:3306)/db".
	URL string
	// Token is carried in the config but not read by this package or by
	// zenith.Open; credentials for the connection go in URL.
	Token string
	// Remote is the named remote to push/pull against (defaults to "origin").
	Remote string
	// Branch is the replica branch to synchronize (defaults to "main").
	Branch string
	// CommitterName/CommitterEmail attribute local commits created by sync.
	CommitterName  string
	CommitterEmail string
}

func (c Config) remote() string {
	if c.Remote == "" {
		return "origin"
	}
	return c.Remote
}

func (c Config) branch() string {
	if c.Branch == "" {
		return "main"
	}
	return c.Branch
}

// Client drives sync() against one local embedded replica. It is created by
// open_synced and held for the replica's lifetime; it does not itself start
// any timers or goroutines.
type Client struct {
	local  *sql.DB
	cfg    Config
	policy func() backoff.BackOff
}

// Open connects the replication client to the already-open local replica
// handle: a MySQL-wire connection to a Dolt SQL server (zenith.Open opens it
// with go-sql-driver/mysql from cfg.URL). Sync runs Dolt's stored
// procedures on it and takes commit authorship from cfg.
func Open(local *sql.DB, cfg Config) *Client {
	return &Client{
		local: local,
		cfg:   cfg,
		policy: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 200 * time.Millisecond
			bo.MaxElapsedTime = 30 * time.Second
			return bo
		},
	}
}

// Result reports what Sync actually did.
type Result struct {
	Committed bool
	Pushed    bool
	Pulled    bool
}

// Sync forwards buffered local writes to the remote and pulls remote updates
// back into the local file. It is atomic only with respect to each of its
// three steps individually: a crash mid-sync can leave the local commit
// pushed but the pull not yet applied, or vice versa. A crash before Sync is
// called at all leaves local committed state intact and the cloud unaware,
// per the embedded replica's local-transaction guarantees.
func (c *Client) Sync(ctx context.Context) (retErr error) {
	ctx, span := tracer.Start(ctx, "cloudsync.sync",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cloudsync.remote", c.cfg.remote()),
			attribute.String("cloudsync.branch", c.cfg.branch()),
		),
	)
	defer func() {
		if retErr != nil {
			span.RecordError(retErr)
		}
		span.End()
	}()

	var res Result
	op := func() error {
		committed, err := c.commitPending(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		res.Committed = committed

		if err := c.push(ctx); err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		res.Pushed = true

		if err := c.pull(ctx); err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		res.Pulled = true
		return nil
	}

	if err := backoff.Retry(op, c.policy()); err != nil {
		return zerr.Wrap("cloudsync: sync", err)
	}
	return nil
}

// commitPending commits any local working-set changes so they are visible to
// push. Returns false when there was nothing to commit.
func (c *Client) commitPending(ctx context.Context) (bool, error) {
	var dirty int
	row := c.local.QueryRowContext(ctx, "SELECT COUNT(*) FROM dolt_status")
	if err := row.Scan(&dirty); err != nil {
		return false, fmt.Errorf("cloudsync: check dolt_status: %w", err)
	}
	if dirty == 0 {
		return false, nil
	}
	author := fmt.Sprintf("%s <%s>", c.cfg.CommitterName, c.cfg.CommitterEmail)
	if _, err := c.local.ExecContext(ctx, "CALL DOLT_COMMIT('-Am', ?, '--author', ?)",
		"zenith: sync checkpoint", author); err != nil {
		return false, fmt.Errorf("cloudsync: commit: %w", err)
	}
	return true, nil
}

func (c *Client) push(ctx context.Context) error {
	if _, err := c.local.ExecContext(ctx, "CALL DOLT_PUSH(?, ?)", c.cfg.remote(), c.cfg.branch()); err != nil {
		return fmt.Errorf("cloudsync: push to %s/%s: %w", c.cfg.remote(), c.cfg.branch(), err)
	}
	return nil
}

func (c *Client) pull(ctx context.Context) error {
	if _, err := c.local.ExecContext(ctx, "CALL DOLT_PULL(?, ?)", c.cfg.remote(), c.cfg.branch()); err != nil {
		return fmt.Errorf("cloudsync: pull from %s/%s: %w", c.cfg.remote(), c.cfg.branch(), err)
	}
	return nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "i/o timeout", "EOF"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
