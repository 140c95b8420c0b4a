package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestDecrementStock_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1 WHERE id = $2 AND stock >= $3`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DecrementStock(context.Background(), id, 2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_Insufficient(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.DecrementStock(context.Background(), id, 5)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
}

func TestFindByIDsForUpdate_LocksRows(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	a, b := uuid.New(), uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "price", "currency", "stock", "is_active", "created_at", "updated_at"}).
		AddRow(a, "Collar", int64(12990), "TRY", 3, true, now, now).
		AddRow(b, "Leash", int64(8990), "TRY", 0, true, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WillReturnRows(rows)

	products, err := repo.FindByIDsForUpdate(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "Collar", products[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDsForUpdate_EmptyInput(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	products, err := repo.FindByIDsForUpdate(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductFindByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	p, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, p)
}

func TestOrderUpdateStatus_Conflict(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusPendingPayment, models.OrderStatusPaid)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)
}

func TestOrderUpdateStatus_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusPendingPayment, models.OrderStatusCancelled)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentCreate_DuplicateOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	payment := &models.Payment{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		UserID:      uuid.New(),
		Provider:    models.ProviderPayTR,
		Status:      models.PaymentStatusInitiated,
		AmountCents: 12990,
		Currency:    "TRY",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "payments"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), payment)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestPaymentFindByMerchantOID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments" WHERE merchant_oid = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	p, err := repo.FindByMerchantOID(context.Background(), "LPdeadbeef")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, p)
}

func TestPaymentUpdateStatus_StampsPaidAt(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET "paid_at"=$1,"status"=$2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), uuid.New(), models.PaymentStatusPending, models.PaymentStatusPaid, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentSetLastError_SkipsSettledPayments(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET "last_error"=$1,"updated_at"=$2 WHERE`) + `.*status NOT IN`).
		WithArgs("gateway down", sqlmock.AnyArg(), id, models.PaymentStatusPaid, models.PaymentStatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.SetLastError(context.Background(), id, "gateway down")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEvents_DecodesPayload(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepository(gormDB)

	paymentID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "payment_id", "type", "payload", "created_at"}).
		AddRow(uuid.New(), paymentID, models.EventRequest, []byte(`{"merchant_oid":"LP1"}`), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_events" WHERE payment_id = $1`)).
		WithArgs(paymentID).
		WillReturnRows(rows)

	events, err := repo.ListEvents(context.Background(), paymentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "LP1", events[0].Payload["merchant_oid"])
}
