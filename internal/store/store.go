// Package store is the MySQL adapter behind the settlement engine. All
// deposit-driven mutation goes through one transaction per deposit; the
// load increment is evaluated in the database and the derived flags come
// from a re-read inside the same transaction, so concurrent deposits to
// one container cannot lose increments to a stale snapshot.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/Adriram04/DAD/internal/model"
	"github.com/Adriram04/DAD/internal/rules"
	"github.com/Adriram04/DAD/internal/settle"
)

//go:embed schema.sql
var schemaSQL string

const mysqlDuplicateEntry = 1062

// Store wraps the MySQL connection pool.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to MySQL, verifies the connection and bootstraps the
// tables the settlement pipeline owns. Idempotent.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &Store{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection. Used by tests.
func NewWithDB(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bootstrap(ctx context.Context) error {
	// the mysql driver rejects multi-statement execs by default
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

// FetchContainer returns the container's capacity and current load, or
// (nil, nil) when the id does not resolve.
func (s *Store) FetchContainer(ctx context.Context, id int) (*model.ContainerState, error) {
	const q = "SELECT capacidad_maxima, carga_actual FROM contenedor WHERE id = ? LIMIT 1"

	c := model.ContainerState{ID: id}
	err := s.db.QueryRowContext(ctx, q, id).Scan(&c.CapacityMax, &c.CurrentLoad)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select contenedor %d: %w", id, err)
	}
	return &c, nil
}

// ApplyDeposit commits one settlement. Statement order inside the
// transaction:
//
//  1. insert the idempotency key (unique; duplicate delivery aborts here)
//  2. append the ledger row
//  3. increment carga_actual in the database
//  4. re-read load and capacity under the row lock taken by (3)
//  5. write the derived lleno/bloqueo flags
//  6. credit the user's points
//
// Any failure rolls the whole sequence back.
func (s *Store) ApplyDeposit(ctx context.Context, entry model.LedgerEntry, dedupKey string) (settle.AppliedDeposit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return settle.AppliedDeposit{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO liquidacion_dedup (clave) VALUES (?)", dedupKey); err != nil {
		if isDuplicateEntry(err) {
			return settle.AppliedDeposit{}, settle.ErrDuplicateDeposit
		}
		return settle.AppliedDeposit{}, fmt.Errorf("insert dedup key: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO registro_reciclaje (id_consumidor, id_contenedor, qr, tipo_basura, peso_kg, puntos_obtenidos) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ConsumerID, entry.ContainerID, entry.QRCode, string(entry.WasteType), entry.WeightKg, entry.PointsAwarded); err != nil {
		return settle.AppliedDeposit{}, fmt.Errorf("insert registro_reciclaje: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE contenedor SET carga_actual = carga_actual + ? WHERE id = ?",
		entry.WeightKg, entry.ContainerID)
	if err != nil {
		return settle.AppliedDeposit{}, fmt.Errorf("update carga_actual: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return settle.AppliedDeposit{}, settle.ErrContainerNotFound
	}

	var load, capacity float64
	if err := tx.QueryRowContext(ctx,
		"SELECT carga_actual, capacidad_maxima FROM contenedor WHERE id = ?",
		entry.ContainerID).Scan(&load, &capacity); err != nil {
		return settle.AppliedDeposit{}, fmt.Errorf("reread contenedor: %w", err)
	}
	if capacity <= 0 {
		return settle.AppliedDeposit{}, settle.ErrInvalidCapacity
	}

	state := rules.ClassifyFill(load, capacity)
	nearFull := state != model.FillNormal
	blocked := state == model.FillBlocked

	if _, err := tx.ExecContext(ctx,
		"UPDATE contenedor SET lleno = ?, bloqueo = ? WHERE id = ?",
		nearFull, blocked, entry.ContainerID); err != nil {
		return settle.AppliedDeposit{}, fmt.Errorf("update contenedor flags: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE usuario SET puntos = puntos + ? WHERE id = ?",
		entry.PointsAwarded, entry.ConsumerID); err != nil {
		return settle.AppliedDeposit{}, fmt.Errorf("update usuario puntos: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return settle.AppliedDeposit{}, fmt.Errorf("commit: %w", err)
	}

	return settle.AppliedDeposit{NewLoad: load, NearFull: nearFull, Blocked: blocked}, nil
}

// SetGlobalBlockade writes the temperature blockade flag to every
// container row. The statement is deliberately unscoped to match the
// system's observed interlock behavior.
func (s *Store) SetGlobalBlockade(ctx context.Context, blocked bool) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE contenedor SET bloqueo = ?", blocked); err != nil {
		return fmt.Errorf("update bloqueo global: %w", err)
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
