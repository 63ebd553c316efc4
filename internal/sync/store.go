package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// walJournalSizeLimit caps the WAL journal at 64 MiB.
const walJournalSizeLimit = 67108864

// Store is the durable tracking store: the source of truth for which
// orders have been delivered, plus the append-only attempt and error
// logs. Backed by an embedded SQLite database in WAL mode.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// Prepared statements for repeated queries, grouped by domain.
	trackedStmts trackedStatements
	attemptStmts attemptStatements
	errorStmts   errorStatements
}

type trackedStatements struct {
	get, upsert, snapshot, ordinals, maxCreated, count, recent, listAll, deleteByOrdinal *sql.Stmt
}

type attemptStatements struct {
	insert, last, since *sql.Stmt
}

type errorStatements struct {
	insert, list, listUnresolved, pendingCount, resolve *sql.Stmt
}

// NewStore opens the database at dbPath, applies migrations, and
// prepares all repeated statements. Use ":memory:" for tests.
func NewStore(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	logger.Info("opening tracking database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Runs are sequential and SQLite handles one writer; a single
	// connection also keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if err := setPragmas(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareAllStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	logger.Info("tracking database ready", "path", dbPath)

	return s, nil
}

// setPragmas configures SQLite for WAL mode and durability. A tracked
// order upsert that returned success must survive process death.
func setPragmas(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.desc, err)
		}

		logger.Debug("pragma set", "pragma", p.desc)
	}

	return nil
}

// --- SQL query constants ---

const (
	sqlTrackedColumns = `order_id, order_number, created_at, updated_at, synced_at,
		header_fingerprint, lines_fingerprint, sheet_row, status`

	sqlGetTracked = `SELECT ` + sqlTrackedColumns +
		` FROM tracked_orders WHERE order_id = ?`

	sqlUpsertTracked = `INSERT INTO tracked_orders (` + sqlTrackedColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			order_number       = excluded.order_number,
			created_at         = excluded.created_at,
			updated_at         = excluded.updated_at,
			synced_at          = excluded.synced_at,
			header_fingerprint = excluded.header_fingerprint,
			lines_fingerprint  = excluded.lines_fingerprint,
			sheet_row          = excluded.sheet_row,
			status             = excluded.status`

	sqlSnapshot = `SELECT order_id, order_number, header_fingerprint, lines_fingerprint
		FROM tracked_orders WHERE status = 'delivered'`

	sqlOrdinals = `SELECT order_number FROM tracked_orders
		WHERE status = 'delivered' ORDER BY order_number`

	sqlMaxCreated = `SELECT COALESCE(MAX(created_at), 0) FROM tracked_orders
		WHERE status = 'delivered'`

	sqlCountDelivered = `SELECT COUNT(*) FROM tracked_orders WHERE status = 'delivered'`

	sqlRecentTracked = `SELECT ` + sqlTrackedColumns +
		` FROM tracked_orders ORDER BY synced_at DESC LIMIT ?`

	sqlListAllTracked = `SELECT ` + sqlTrackedColumns +
		` FROM tracked_orders ORDER BY order_number`

	sqlDeleteByOrdinal = `DELETE FROM tracked_orders WHERE order_number = ?`
)

const (
	sqlInsertAttempt = `INSERT INTO sync_attempts
		(id, started_at, finished_at, fetched, new_orders, updated_orders, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqlLastAttempt = `SELECT id, started_at, finished_at, fetched, new_orders,
		updated_orders, status, error_message
		FROM sync_attempts ORDER BY finished_at DESC LIMIT 1`

	sqlAttemptsSince = `SELECT id, started_at, finished_at, fetched, new_orders,
		updated_orders, status, error_message
		FROM sync_attempts WHERE finished_at >= ? ORDER BY finished_at`
)

const (
	sqlInsertError = `INSERT INTO sync_errors
		(id, occurred_at, order_id, error_type, error_message, retry_count, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlListErrors = `SELECT id, occurred_at, order_id, error_type, error_message,
		retry_count, resolved
		FROM sync_errors ORDER BY occurred_at DESC`

	sqlListUnresolvedErrors = `SELECT id, occurred_at, order_id, error_type, error_message,
		retry_count, resolved
		FROM sync_errors WHERE resolved = 0 ORDER BY occurred_at DESC`

	sqlPendingErrorCount = `SELECT COUNT(*) FROM sync_errors WHERE resolved = 0`

	sqlResolveError = `UPDATE sync_errors SET resolved = 1 WHERE id = ?`
)

// stmtDef maps a SQL string to the prepared statement pointer it should
// populate.
type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

// prepareAll prepares a batch of statements, returning on first error.
func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", defs[i].name, err)
		}

		*defs[i].dest = stmt
	}

	return nil
}

func (s *Store) prepareAllStatements(ctx context.Context) error {
	if err := prepareAll(ctx, s.db, []stmtDef{
		{&s.trackedStmts.get, sqlGetTracked, "getTracked"},
		{&s.trackedStmts.upsert, sqlUpsertTracked, "upsertTracked"},
		{&s.trackedStmts.snapshot, sqlSnapshot, "snapshot"},
		{&s.trackedStmts.ordinals, sqlOrdinals, "ordinals"},
		{&s.trackedStmts.maxCreated, sqlMaxCreated, "maxCreated"},
		{&s.trackedStmts.count, sqlCountDelivered, "countDelivered"},
		{&s.trackedStmts.recent, sqlRecentTracked, "recentTracked"},
		{&s.trackedStmts.listAll, sqlListAllTracked, "listAllTracked"},
		{&s.trackedStmts.deleteByOrdinal, sqlDeleteByOrdinal, "deleteByOrdinal"},
	}); err != nil {
		return err
	}

	if err := prepareAll(ctx, s.db, []stmtDef{
		{&s.attemptStmts.insert, sqlInsertAttempt, "insertAttempt"},
		{&s.attemptStmts.last, sqlLastAttempt, "lastAttempt"},
		{&s.attemptStmts.since, sqlAttemptsSince, "attemptsSince"},
	}); err != nil {
		return err
	}

	return prepareAll(ctx, s.db, []stmtDef{
		{&s.errorStmts.insert, sqlInsertError, "insertError"},
		{&s.errorStmts.list, sqlListErrors, "listErrors"},
		{&s.errorStmts.listUnresolved, sqlListUnresolvedErrors, "listUnresolvedErrors"},
		{&s.errorStmts.pendingCount, sqlPendingErrorCount, "pendingErrorCount"},
		{&s.errorStmts.resolve, sqlResolveError, "resolveError"},
	})
}

// --- Tracked order scanning helpers ---

// scanTracked scans a full tracked order row.
func scanTracked(row interface{ Scan(...any) error }) (*TrackedOrder, error) {
	t := &TrackedOrder{}

	var status string

	err := row.Scan(
		&t.OrderID, &t.OrderNumber, &t.CreatedAt, &t.UpdatedAt, &t.SyncedAt,
		&t.HeaderFingerprint, &t.LinesFingerprint, &t.SheetRow, &status,
	)
	if err != nil {
		return nil, err
	}

	t.Status = TrackedStatus(status)

	return t, nil
}

// scanTrackedRows iterates over sql.Rows and collects TrackedOrders.
func scanTrackedRows(rows *sql.Rows) ([]*TrackedOrder, error) {
	var out []*TrackedOrder

	for rows.Next() {
		t, err := scanTracked(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked row: %w", err)
		}

		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked rows: %w", err)
	}

	return out, nil
}

// --- Tracked order methods ---

// GetTrackedOrder retrieves one tracked order by remote identifier.
// Returns (nil, nil) if no row exists; callers use the nil order to
// distinguish "never delivered" from "delivered".
func (s *Store) GetTrackedOrder(ctx context.Context, orderID string) (*TrackedOrder, error) {
	t, err := scanTracked(s.trackedStmts.get.QueryRowContext(ctx, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil order means "not tracked"
	}

	if err != nil {
		return nil, fmt.Errorf("get tracked order %s: %w", orderID, err)
	}

	return t, nil
}

// UpsertTrackedOrder inserts or replaces a tracked order row. Always a
// whole-record write, never a partial field update.
func (s *Store) UpsertTrackedOrder(ctx context.Context, t *TrackedOrder) error {
	s.logger.Debug("upserting tracked order",
		"order_id", t.OrderID, "order_number", t.OrderNumber)

	_, err := s.trackedStmts.upsert.ExecContext(ctx,
		t.OrderID, t.OrderNumber, t.CreatedAt, t.UpdatedAt, t.SyncedAt,
		t.HeaderFingerprint, t.LinesFingerprint, t.SheetRow, string(t.Status),
	)
	if err != nil {
		return fmt.Errorf("upsert tracked order %s: %w", t.OrderID, err)
	}

	return nil
}

// DeliveredSnapshot returns the change detector's view of the store:
// remote identifier -> fingerprints and ordinal, for delivered rows only.
func (s *Store) DeliveredSnapshot(ctx context.Context) (Snapshot, error) {
	rows, err := s.trackedStmts.snapshot.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot delivered orders: %w", err)
	}
	defer rows.Close()

	snap := make(Snapshot)

	for rows.Next() {
		var (
			id string
			e  SnapshotEntry
		)

		if err := rows.Scan(&id, &e.OrderNumber, &e.HeaderFingerprint, &e.LinesFingerprint); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap[id] = e
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snap, nil
}

// DeliveredOrdinals returns the sorted ordinals of all delivered orders.
func (s *Store) DeliveredOrdinals(ctx context.Context) ([]int64, error) {
	rows, err := s.trackedStmts.ordinals.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list delivered ordinals: %w", err)
	}
	defer rows.Close()

	var ordinals []int64

	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan ordinal: %w", err)
		}

		ordinals = append(ordinals, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ordinals: %w", err)
	}

	return ordinals, nil
}

// MaxDeliveredCreatedAt returns the maximum upstream creation time over
// delivered orders, or 0 when the store is empty (cold start).
func (s *Store) MaxDeliveredCreatedAt(ctx context.Context) (int64, error) {
	var maxCreated int64

	if err := s.trackedStmts.maxCreated.QueryRowContext(ctx).Scan(&maxCreated); err != nil {
		return 0, fmt.Errorf("max delivered created_at: %w", err)
	}

	return maxCreated, nil
}

// CountDelivered returns the number of delivered tracked orders.
func (s *Store) CountDelivered(ctx context.Context) (int, error) {
	var count int

	if err := s.trackedStmts.count.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("count delivered: %w", err)
	}

	return count, nil
}

// RecentTrackedOrders returns the most recently synced orders, newest first.
func (s *Store) RecentTrackedOrders(ctx context.Context, limit int) ([]*TrackedOrder, error) {
	rows, err := s.trackedStmts.recent.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent tracked orders: %w", err)
	}
	defer rows.Close()

	return scanTrackedRows(rows)
}

// ListAllTrackedOrders returns every tracked order by ascending ordinal.
func (s *Store) ListAllTrackedOrders(ctx context.Context) ([]*TrackedOrder, error) {
	rows, err := s.trackedStmts.listAll.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked orders: %w", err)
	}
	defer rows.Close()

	return scanTrackedRows(rows)
}

// DeleteByOrdinal removes one tracked order by its ordinal. Operator
// reset path. The next run redelivers the order.
func (s *Store) DeleteByOrdinal(ctx context.Context, ordinal int64) (bool, error) {
	s.logger.Info("deleting tracked order", "order_number", ordinal)

	res, err := s.trackedStmts.deleteByOrdinal.ExecContext(ctx, ordinal)
	if err != nil {
		return false, fmt.Errorf("delete tracked order %d: %w", ordinal, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete tracked order %d: rows affected: %w", ordinal, err)
	}

	return affected > 0, nil
}

// --- Attempt log methods ---

// RecordAttempt appends one run result to the attempt log. Rows are
// never mutated after insert.
func (s *Store) RecordAttempt(ctx context.Context, a *SyncAttempt) error {
	s.logger.Debug("recording sync attempt", "id", a.ID, "status", a.Status)

	_, err := s.attemptStmts.insert.ExecContext(ctx,
		a.ID, a.StartedAt, a.FinishedAt, a.Fetched, a.NewOrders,
		a.UpdatedOrders, string(a.Status), a.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("record attempt %s: %w", a.ID, err)
	}

	return nil
}

// LastAttempt returns the most recently finished attempt, or (nil, nil)
// when no run has ever completed.
func (s *Store) LastAttempt(ctx context.Context) (*SyncAttempt, error) {
	a, err := scanAttempt(s.attemptStmts.last.QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil attempt means "no history"
	}

	if err != nil {
		return nil, fmt.Errorf("last attempt: %w", err)
	}

	return a, nil
}

// AttemptsSince returns all attempts finished at or after the given time.
func (s *Store) AttemptsSince(ctx context.Context, since int64) ([]*SyncAttempt, error) {
	rows, err := s.attemptStmts.since.QueryContext(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("attempts since: %w", err)
	}
	defer rows.Close()

	var out []*SyncAttempt

	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}

		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt rows: %w", err)
	}

	return out, nil
}

func scanAttempt(row interface{ Scan(...any) error }) (*SyncAttempt, error) {
	a := &SyncAttempt{}

	var status string

	err := row.Scan(&a.ID, &a.StartedAt, &a.FinishedAt, &a.Fetched,
		&a.NewOrders, &a.UpdatedOrders, &status, &a.ErrorMessage)
	if err != nil {
		return nil, err
	}

	a.Status = AttemptStatus(status)

	return a, nil
}

// --- Error log methods ---

// RecordSyncError appends one failure record to the error log.
func (s *Store) RecordSyncError(ctx context.Context, e *SyncError) error {
	s.logger.Debug("recording sync error",
		"id", e.ID, "type", e.ErrorType, "order_id", e.OrderID)

	_, err := s.errorStmts.insert.ExecContext(ctx,
		e.ID, e.OccurredAt, e.OrderID, e.ErrorType, e.ErrorMessage,
		e.RetryCount, boolToInt(e.Resolved),
	)
	if err != nil {
		return fmt.Errorf("record sync error %s: %w", e.ID, err)
	}

	return nil
}

// ListSyncErrors returns error records, newest first. With
// unresolvedOnly, resolved records are excluded.
func (s *Store) ListSyncErrors(ctx context.Context, unresolvedOnly bool) ([]*SyncError, error) {
	stmt := s.errorStmts.list
	if unresolvedOnly {
		stmt = s.errorStmts.listUnresolved
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sync errors: %w", err)
	}
	defer rows.Close()

	var out []*SyncError

	for rows.Next() {
		e := &SyncError{}

		var resolved int

		err := rows.Scan(&e.ID, &e.OccurredAt, &e.OrderID, &e.ErrorType,
			&e.ErrorMessage, &e.RetryCount, &resolved)
		if err != nil {
			return nil, fmt.Errorf("scan sync error row: %w", err)
		}

		e.Resolved = resolved == 1

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync error rows: %w", err)
	}

	return out, nil
}

// PendingErrorCount returns the number of unresolved errors.
func (s *Store) PendingErrorCount(ctx context.Context) (int, error) {
	var count int

	if err := s.errorStmts.pendingCount.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("pending error count: %w", err)
	}

	return count, nil
}

// ResolveSyncError flips the resolved flag on one error record.
func (s *Store) ResolveSyncError(ctx context.Context, id string) error {
	s.logger.Info("resolving sync error", "id", id)

	_, err := s.errorStmts.resolve.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve sync error %s: %w", id, err)
	}

	return nil
}

// --- Lifecycle ---

// Close closes all prepared statements and the database connection.
func (s *Store) Close() error {
	s.logger.Info("closing tracking database")

	if err := s.closeStatements(); err != nil {
		s.logger.Error("error closing statements", "error", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}

// closeStatements closes all prepared statements, collecting errors.
func (s *Store) closeStatements() error {
	stmts := []*sql.Stmt{
		s.trackedStmts.get, s.trackedStmts.upsert, s.trackedStmts.snapshot,
		s.trackedStmts.ordinals, s.trackedStmts.maxCreated, s.trackedStmts.count,
		s.trackedStmts.recent, s.trackedStmts.listAll, s.trackedStmts.deleteByOrdinal,
		s.attemptStmts.insert, s.attemptStmts.last, s.attemptStmts.since,
		s.errorStmts.insert, s.errorStmts.list, s.errorStmts.listUnresolved,
		s.errorStmts.pendingCount, s.errorStmts.resolve,
	}

	var errs []string

	for _, stmt := range stmts {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close statements: %s", strings.Join(errs, "; "))
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
