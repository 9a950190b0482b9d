package services

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"templeseva-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingNotifier captures enqueued booking IDs instead of sending
// anything.
type recordingNotifier struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingNotifier) Enqueue(bookingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, bookingID)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.CapacityRule{},
		&models.DayCounter{},
		&models.Booking{},
		&models.NotificationLog{},
	))
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      *BookingService
	notifier *recordingNotifier

	devotee  models.User
	pos      models.User
	approver models.User
	plain    models.User

	thirumanjanam models.Service
	archana       models.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{
		db:       db,
		notifier: &recordingNotifier{},
	}
	f.svc = NewBookingService(db, f.notifier)

	f.devotee = seedUser(t, db, "devotee", models.RoleSet{models.RoleDevotee})
	f.pos = seedUser(t, db, "counter", models.RoleSet{models.RolePOS})
	f.approver = seedUser(t, db, "priest", models.RoleSet{models.RoleApprover})
	f.plain = seedUser(t, db, "visitor", models.RoleSet{models.RoleDevotee})

	seedRule(t, db, 3, 3)
	f.thirumanjanam = seedService(t, db, "Thirumanjanam", models.CategoryThirumanjanam, 500)
	f.archana = seedService(t, db, "Archana", "general", 50)

	return f
}

func seedUser(t *testing.T, db *gorm.DB, name string, roles models.RoleSet) models.User {
	t.Helper()
	// SkipHooks keeps the bcrypt hash out of the fixtures; these users
	// never log in.
	u := models.User{
		ID:       uuid.New(),
		Email:    name + "@temple.test",
		Password: "unused",
		Name:     name,
		Roles:    roles,
		IsActive: true,
	}
	require.NoError(t, db.Session(&gorm.Session{SkipHooks: true}).Create(&u).Error)
	return u
}

func seedService(t *testing.T, db *gorm.DB, name, category string, price float64) models.Service {
	t.Helper()
	s := models.Service{Name: name, Category: category, Price: price, IsActive: true}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func seedRule(t *testing.T, db *gorm.DB, thirumanjanam, abhisekam int) models.CapacityRule {
	t.Helper()
	r := models.CapacityRule{Thirumanjanam: thirumanjanam, Abhisekam: abhisekam}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func (f *fixture) reserve(svc models.Service, date time.Time) (*models.Booking, error) {
	return f.svc.Reserve(ReserveInput{
		UserID:      f.devotee.ID,
		POSUserID:   f.pos.ID,
		ServiceID:   svc.ID,
		ServiceDate: date,
		Price:       svc.Price,
		PaymentMode: "cash",
	})
}

var mayDay = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestCheckAvailabilitySaturation(t *testing.T) {
	f := newFixture(t)

	rule, err := f.svc.LoadCapacityRule()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		avail, err := f.svc.CheckAvailability(rule, models.CategoryThirumanjanam, mayDay)
		require.NoError(t, err)
		assert.True(t, avail.Available, "slot %d should be open", i+1)

		_, err = f.reserve(f.thirumanjanam, mayDay)
		require.NoError(t, err)
	}

	avail, err := f.svc.CheckAvailability(rule, models.CategoryThirumanjanam, mayDay)
	require.NoError(t, err)
	assert.False(t, avail.Available)
	assert.Equal(t, 3, avail.Count)
	assert.Equal(t, 3, avail.Cap)

	_, err = f.reserve(f.thirumanjanam, mayDay)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// A different day is untouched
	avail, err = f.svc.CheckAvailability(rule, models.CategoryThirumanjanam, mayDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, avail.Available)
}

func TestReserveNormalizesTimeOfDay(t *testing.T) {
	f := newFixture(t)

	afternoon := time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)
	booking, err := f.reserve(f.thirumanjanam, afternoon)
	require.NoError(t, err)
	assert.Equal(t, mayDay, booking.ServiceDate)

	// Morning and afternoon requests share the same day bucket
	for i := 0; i < 2; i++ {
		_, err = f.reserve(f.thirumanjanam, mayDay)
		require.NoError(t, err)
	}
	_, err = f.reserve(f.thirumanjanam, afternoon)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestReserveConcurrentNoOverAdmission(t *testing.T) {
	f := newFixture(t)

	const workers = 8
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reserve(f.thirumanjanam, mayDay)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		default:
			require.ErrorIs(t, err, ErrCapacityExceeded)
			rejected++
		}
	}
	assert.Equal(t, 3, accepted)
	assert.Equal(t, workers-3, rejected)

	var count int64
	require.NoError(t, f.db.Model(&models.Booking{}).
		Where("category = ? AND service_date = ?", models.CategoryThirumanjanam, mayDay).
		Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestZeroCapAlwaysUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.CapacityRule{}).
		Where("1 = 1").Update("thirumanjanam", 0).Error)

	rule, err := f.svc.LoadCapacityRule()
	require.NoError(t, err)

	avail, err := f.svc.CheckAvailability(rule, models.CategoryThirumanjanam, mayDay)
	require.NoError(t, err)
	assert.False(t, avail.Available)

	_, err = f.reserve(f.thirumanjanam, mayDay)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestDefaultCapForUnnamedCategory(t *testing.T) {
	f := newFixture(t)
	// Caps for the named categories do not govern general sevas
	require.NoError(t, f.db.Model(&models.CapacityRule{}).
		Where("1 = 1").Updates(map[string]interface{}{"thirumanjanam": 0, "abhisekam": 0}).Error)

	for i := 0; i < models.DefaultDailyCap; i++ {
		_, err := f.reserve(f.archana, mayDay)
		require.NoError(t, err)
	}
	_, err := f.reserve(f.archana, mayDay)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestReserveWithoutCapacityRule(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Unscoped().Where("1 = 1").Delete(&models.CapacityRule{}).Error)

	_, err := f.svc.LoadCapacityRule()
	assert.ErrorIs(t, err, ErrNoCapacityRule)

	_, err = f.reserve(f.thirumanjanam, mayDay)
	assert.ErrorIs(t, err, ErrNoCapacityRule)
}

func TestReserveRequiresPOSRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reserve(ReserveInput{
		UserID:      f.devotee.ID,
		POSUserID:   f.plain.ID,
		ServiceID:   f.thirumanjanam.ID,
		ServiceDate: mayDay,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	var count int64
	require.NoError(t, f.db.Model(&models.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReserveUnknownReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reserve(ReserveInput{
		UserID:      uuid.New(),
		POSUserID:   f.pos.ID,
		ServiceID:   f.thirumanjanam.ID,
		ServiceDate: mayDay,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Reserve(ReserveInput{
		UserID:      f.devotee.ID,
		POSUserID:   f.pos.ID,
		ServiceID:   uuid.New(),
		ServiceDate: mayDay,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecideApproveNotifies(t *testing.T) {
	f := newFixture(t)
	booking, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	decided, err := f.svc.Decide(booking.ID, f.approver.ID, models.StatusApproved)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, decided.Status)
	require.NotNil(t, decided.ApproverID)
	assert.Equal(t, f.approver.ID, *decided.ApproverID)
	assert.NotNil(t, decided.DecidedAt)
	assert.Equal(t, 1, f.notifier.count())
}

func TestDecideRejectDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	booking, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	decided, err := f.svc.Decide(booking.ID, f.approver.ID, models.StatusRejected)
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, decided.Status)
	assert.Zero(t, f.notifier.count())
}

func TestDecideIdempotent(t *testing.T) {
	f := newFixture(t)
	booking, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	first, err := f.svc.Decide(booking.ID, f.approver.ID, models.StatusApproved)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	second, err := f.svc.Decide(booking.ID, f.approver.ID, models.StatusApproved)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, second.Status)
	require.NotNil(t, second.DecidedAt)
	assert.WithinDuration(t, *first.DecidedAt, *second.DecidedAt, time.Millisecond,
		"repeat must keep the first timestamp")
	assert.Equal(t, *first.ApproverID, *second.ApproverID)

	// The repeat does not queue a second confirmation
	assert.Equal(t, 1, f.notifier.count())
}

func TestDecideConflictRefused(t *testing.T) {
	f := newFixture(t)
	booking, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	_, err = f.svc.Decide(booking.ID, f.approver.ID, models.StatusApproved)
	require.NoError(t, err)

	_, err = f.svc.Decide(booking.ID, f.approver.ID, models.StatusRejected)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	var got models.Booking
	require.NoError(t, f.db.First(&got, "id = ?", booking.ID).Error)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestDecideConcurrentConflictSingleWinner(t *testing.T) {
	f := newFixture(t)
	booking, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, decision := range []models.BookingStatus{models.StatusApproved, models.StatusRejected} {
		wg.Add(1)
		go func(decision models.BookingStatus) {
			defer wg.Done()
			_, err := f.svc.Decide(booking.ID, f.approver.ID, decision)
			results <- err
		}(decision)
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrAlreadyDecided)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	var got models.Booking
	require.NoError(t, f.db.First(&got, "id = ?", booking.ID).Error)
	assert.True(t, got.Status.Terminal())
	require.NotNil(t, got.ApproverID)
}

func TestDecideRespectsCommittedDecision(t *testing.T) {
	f := newFixture(t)
	booking, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	// A decision committed elsewhere (another instance, between our read
	// and write) must never be overwritten.
	senior := seedUser(t, f.db, "senior", models.RoleSet{models.RoleApprover})
	decidedAt := time.Now().Add(-time.Hour)
	require.NoError(t, f.db.Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		Updates(map[string]interface{}{
			"status":      models.StatusApproved,
			"approver_id": senior.ID,
			"decided_at":  decidedAt,
		}).Error)

	_, err = f.svc.Decide(booking.ID, f.approver.ID, models.StatusRejected)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	repeat, err := f.svc.Decide(booking.ID, f.approver.ID, models.StatusApproved)
	require.NoError(t, err)
	require.NotNil(t, repeat.ApproverID)
	assert.Equal(t, senior.ID, *repeat.ApproverID, "the committed decision stands")
	assert.WithinDuration(t, decidedAt, *repeat.DecidedAt, time.Second)
	assert.Zero(t, f.notifier.count(), "a repeat never re-notifies")
}

func TestReserveSeesLoweredCap(t *testing.T) {
	f := newFixture(t)

	_, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.CapacityRule{}).
		Where("1 = 1").Update("thirumanjanam", 1).Error)

	_, err = f.reserve(f.thirumanjanam, mayDay)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestDecideRequiresApproverRole(t *testing.T) {
	f := newFixture(t)
	booking, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	_, err = f.svc.Decide(booking.ID, f.plain.ID, models.StatusApproved)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	var got models.Booking
	require.NoError(t, f.db.First(&got, "id = ?", booking.ID).Error)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ApproverID)
	assert.Zero(t, f.notifier.count())
}

func TestDecideValidation(t *testing.T) {
	f := newFixture(t)
	booking, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	_, err = f.svc.Decide(booking.ID, f.approver.ID, models.StatusPending)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Decide(uuid.New(), f.approver.ID, models.StatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBookingsRequiresApproverRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.reserve(f.thirumanjanam, mayDay)
	require.NoError(t, err)

	bookings, err := f.svc.ListBookings(f.approver.ID)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Thirumanjanam", bookings[0].Service.Name)

	_, err = f.svc.ListBookings(f.plain.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
