package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adriram04/DAD/internal/model"
	"github.com/Adriram04/DAD/internal/settle"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db, zerolog.Nop()), mock
}

func entry() model.LedgerEntry {
	return model.LedgerEntry{
		ConsumerID:    3,
		ContainerID:   7,
		QRCode:        "Q1",
		WasteType:     model.WastePlastic,
		WeightKg:      10,
		PointsAwarded: 50,
	}
}

const dedupKey = "abc123"

func TestFetchContainer(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacidad_maxima, carga_actual FROM contenedor WHERE id = ? LIMIT 1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"capacidad_maxima", "carga_actual"}).AddRow(100.0, 70.0))

	c, err := s.FetchContainer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &model.ContainerState{ID: 7, CapacityMax: 100, CurrentLoad: 70}, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchContainer_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacidad_maxima, carga_actual FROM contenedor WHERE id = ? LIMIT 1")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"capacidad_maxima", "carga_actual"}))

	c, err := s.FetchContainer(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestApplyDeposit_CommitsOrderedStatements(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO liquidacion_dedup (clave) VALUES (?)")).
		WithArgs(dedupKey).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registro_reciclaje")).
		WithArgs(3, 7, "Q1", "PLASTICO", 10.0, 50).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contenedor SET carga_actual = carga_actual + ? WHERE id = ?")).
		WithArgs(10.0, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT carga_actual, capacidad_maxima FROM contenedor WHERE id = ?")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"carga_actual", "capacidad_maxima"}).AddRow(80.0, 100.0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contenedor SET lleno = ?, bloqueo = ? WHERE id = ?")).
		WithArgs(true, false, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE usuario SET puntos = puntos + ? WHERE id = ?")).
		WithArgs(50, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := s.ApplyDeposit(context.Background(), entry(), dedupKey)
	require.NoError(t, err)
	assert.Equal(t, settle.AppliedDeposit{NewLoad: 80, NearFull: true, Blocked: false}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDeposit_RollsBackWhenPointsCreditFails(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO liquidacion_dedup (clave) VALUES (?)")).
		WithArgs(dedupKey).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registro_reciclaje")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contenedor SET carga_actual = carga_actual + ? WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT carga_actual, capacidad_maxima FROM contenedor WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"carga_actual", "capacidad_maxima"}).AddRow(80.0, 100.0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contenedor SET lleno = ?, bloqueo = ? WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE usuario SET puntos = puntos + ? WHERE id = ?")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.ApplyDeposit(context.Background(), entry(), dedupKey)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "ledger insert and container update must roll back")
}

func TestApplyDeposit_DuplicateKeyAbortsBeforeAnyWrite(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO liquidacion_dedup (clave) VALUES (?)")).
		WithArgs(dedupKey).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := s.ApplyDeposit(context.Background(), entry(), dedupKey)
	assert.ErrorIs(t, err, settle.ErrDuplicateDeposit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDeposit_ContainerVanishedMidFlight(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO liquidacion_dedup (clave) VALUES (?)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registro_reciclaje")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contenedor SET carga_actual = carga_actual + ? WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.ApplyDeposit(context.Background(), entry(), dedupKey)
	assert.ErrorIs(t, err, settle.ErrContainerNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDeposit_BlockedAtNinetyPercent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO liquidacion_dedup (clave) VALUES (?)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registro_reciclaje")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contenedor SET carga_actual = carga_actual + ? WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT carga_actual, capacidad_maxima FROM contenedor WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"carga_actual", "capacidad_maxima"}).AddRow(95.0, 100.0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contenedor SET lleno = ?, bloqueo = ? WHERE id = ?")).
		WithArgs(true, true, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE usuario SET puntos = puntos + ? WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := s.ApplyDeposit(context.Background(), entry(), dedupKey)
	require.NoError(t, err)
	assert.True(t, applied.NearFull)
	assert.True(t, applied.Blocked)
}

func TestSetGlobalBlockade(t *testing.T) {
	s, mock := newMockStore(t)

	// the statement carries no WHERE clause: the interlock is fleet-wide
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contenedor SET bloqueo = ?")).
		WithArgs(true).
		WillReturnResult(sqlmock.NewResult(0, 12))

	require.NoError(t, s.SetGlobalBlockade(context.Background(), true))
	assert.NoError(t, mock.ExpectationsWereMet())
}
