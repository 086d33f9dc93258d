package service

import (
	"context"
	"sync"
	"testing"
	"time"

	appointmenterrors "medibook/internal/appointments/errors"
	"medibook/internal/appointments/repository"
	"medibook/internal/appointments/validator"
	doctorserrors "medibook/internal/doctors/errors"
	"medibook/pkg/config"
	mongotx "medibook/pkg/db/mongo"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testDoctorID  = "65f000000000000000000001"
	testPatientID = "65f000000000000000000002"
	otherDoctorID = "65f000000000000000000003"
)

// fakeDoctorRepo mimics the slot compare-and-set with a mutex: the
// booked flip only succeeds while the slot is present and unbooked,
// exactly like the conditional update it stands in for.
type fakeDoctorRepo struct {
	mu      sync.Mutex
	doctors map[string]*model.Doctor
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{doctors: make(map[string]*model.Doctor)}
}

func (f *fakeDoctorRepo) put(d *model.Doctor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doctors[d.ID] = d
}

func (f *fakeDoctorRepo) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doctor, ok := f.doctors[id]
	if !ok {
		return nil, doctorserrors.ErrNotFound
	}
	copied := *doctor
	copied.Slots = append([]model.Slot(nil), doctor.Slots...)
	return &copied, nil
}

func (f *fakeDoctorRepo) MarkSlotBooked(ctx context.Context, id string, slot time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doctor, ok := f.doctors[id]
	if !ok {
		return doctorserrors.ErrSlotUnavailable
	}
	for i := range doctor.Slots {
		if doctor.Slots[i].Time.Equal(slot) && !doctor.Slots[i].Booked {
			doctor.Slots[i].Booked = true
			return nil
		}
	}
	return doctorserrors.ErrSlotUnavailable
}

func (f *fakeDoctorRepo) ReopenSlot(ctx context.Context, id string, slot time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doctor, ok := f.doctors[id]
	if !ok {
		return doctorserrors.ErrSlotNotBooked
	}
	for i := range doctor.Slots {
		if doctor.Slots[i].Time.Equal(slot) && doctor.Slots[i].Booked {
			doctor.Slots[i].Booked = false
			return nil
		}
	}
	return doctorserrors.ErrSlotNotBooked
}

func (f *fakeDoctorRepo) Create(ctx context.Context, doctor *model.Doctor) error { return nil }
func (f *fakeDoctorRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error) {
	return nil, nil
}
func (f *fakeDoctorRepo) Count(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeDoctorRepo) Search(ctx context.Context, freeText, specialty string, limit int, offset int64) ([]*model.Doctor, error) {
	return nil, nil
}
func (f *fakeDoctorRepo) CountSearch(ctx context.Context, freeText, specialty string) (int64, error) {
	return 0, nil
}
func (f *fakeDoctorRepo) UpdateProfile(ctx context.Context, id string, update *model.DoctorUpdate) error {
	return nil
}
func (f *fakeDoctorRepo) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	return false, nil
}
func (f *fakeDoctorRepo) AddSlot(ctx context.Context, id string, slot model.Slot) error { return nil }
func (f *fakeDoctorRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

type fakeLockRepo struct {
	mu    sync.Mutex
	held  map[string]struct{}
	calls int
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{held: make(map[string]struct{})}
}

func (f *fakeLockRepo) Acquire(ctx context.Context, lockID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := f.held[lockID]; ok {
		return appointmenterrors.ErrLockHeld
	}
	f.held[lockID] = struct{}{}
	return nil
}

func (f *fakeLockRepo) Release(ctx context.Context, lockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, lockID)
	return nil
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[string]*model.Appointment
	seq          int
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[string]*model.Appointment)}
}

func (f *fakeAppointmentRepo) put(a *model.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointments[a.ID] = a
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, appointment *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	appointment.ID = primitive.NewObjectID().Hex()
	appointment.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Minute)
	copied := *appointment
	f.appointments[appointment.ID] = &copied
	return nil
}

func (f *fakeAppointmentRepo) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.appointments[id]
	if !ok {
		return nil, appointmenterrors.ErrNotFound
	}
	copied := *appointment
	return &copied, nil
}

func (f *fakeAppointmentRepo) FindByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, a := range f.appointments {
		if a.DoctorID == doctorID {
			copied := *a
			out = append(out, &copied)
		}
	}
	// Most recent first, like the backing query.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAppointmentRepo) CountByDoctor(ctx context.Context, doctorID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, a := range f.appointments {
		if a.DoctorID == doctorID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.appointments[id]
	if !ok || appointment.Status != from {
		return appointmenterrors.ErrStatusConflict
	}
	appointment.Status = to
	return nil
}

func (f *fakeAppointmentRepo) DashboardStats(ctx context.Context, doctorID string) (*repository.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &repository.DashboardStats{}
	patients := make(map[string]struct{})
	for _, a := range f.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		stats.Appointments++
		patients[a.PatientID] = struct{}{}
		if a.Status == model.StatusCompleted || a.Payment {
			stats.Earnings += a.Fee
		}
	}
	stats.Patients = int64(len(patients))
	return stats, nil
}

func (f *fakeAppointmentRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

type fixture struct {
	svc     AppointmentService
	doctors *fakeDoctorRepo
	repo    *fakeAppointmentRepo
	locks   *fakeLockRepo
}

func newFixture() *fixture {
	cfg := &config.Config{
		Log:                  logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
		SlotLockTTL:          10 * time.Second,
		DashboardRecentLimit: 5,
	}
	doctors := newFakeDoctorRepo()
	repo := newFakeAppointmentRepo()
	locks := newFakeLockRepo()
	svc := NewAppointmentService(
		repo,
		locks,
		doctors,
		validator.NewAppointmentValidator(cfg.Log),
		nil,
		nil,
		cfg,
	)
	return &fixture{svc: svc, doctors: doctors, repo: repo, locks: locks}
}

func testSlot() time.Time {
	return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
}

func seedDoctor(f *fixture, slots ...model.Slot) *model.Doctor {
	doctor := &model.Doctor{
		ID:               testDoctorID,
		Name:             "Dr. Asha Rao",
		Specialty:        "Cardiology",
		HospitalName:     "Apollo",
		HospitalLocation: "Chennai",
		ConsultationFee:  450,
		Available:        true,
		Slots:            slots,
	}
	f.doctors.put(doctor)
	return doctor
}

func TestReserveBooksSlotAndSnapshotsDoctor(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	appointment, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if appointment.ID == "" {
		t.Error("expected generated appointment ID")
	}
	if appointment.Status != model.StatusConfirmed {
		t.Errorf("expected confirmed status, got %s", appointment.Status)
	}
	if appointment.HospitalName != "Apollo" || appointment.Fee != 450 {
		t.Errorf("doctor snapshot missing: hospital=%q fee=%v", appointment.HospitalName, appointment.Fee)
	}

	doctor, _ := f.doctors.FindByID(context.Background(), testDoctorID)
	if !doctor.Slots[0].Booked {
		t.Error("slot not marked booked")
	}
	if len(f.locks.held) != 0 {
		t.Error("advisory lock not released after booking")
	}
}

func TestReserveSnapshotSurvivesProfileChange(t *testing.T) {
	f := newFixture()
	doctor := seedDoctor(f, model.Slot{Time: testSlot()})

	appointment, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	doctor.ConsultationFee = 900
	doctor.HospitalName = "Fortis"
	f.doctors.put(doctor)

	stored, err := f.svc.GetByID(context.Background(), appointment.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Fee != 450 || stored.HospitalName != "Apollo" {
		t.Errorf("booking-time snapshot rewritten: hospital=%q fee=%v", stored.HospitalName, stored.Fee)
	}
}

func TestReserveConcurrentAttemptsExactlyOneWins(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
		}(i)
	}
	wg.Wait()

	var successes, unavailable int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperrors.IsCode(err, apperrors.CodeSlotUnavailable):
			unavailable++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly 1 successful booking, got %d", successes)
	}
	if unavailable != attempts-1 {
		t.Errorf("expected %d SLOT_UNAVAILABLE results, got %d", attempts-1, unavailable)
	}

	count, _ := f.repo.CountByDoctor(context.Background(), testDoctorID)
	if count != 1 {
		t.Errorf("expected exactly 1 appointment in the ledger, got %d", count)
	}
}

func TestReserveUnknownSlot(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	_, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot().Add(time.Hour))
	if !apperrors.IsCode(err, apperrors.CodeSlotUnavailable) {
		t.Errorf("expected SLOT_UNAVAILABLE for unknown slot, got %v", err)
	}
}

func TestReserveAlreadyBookedSlot(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot(), Booked: true})

	_, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
	if !apperrors.IsCode(err, apperrors.CodeSlotUnavailable) {
		t.Errorf("expected SLOT_UNAVAILABLE for booked slot, got %v", err)
	}
}

func TestReserveUnknownDoctor(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown doctor, got %v", err)
	}
}

func TestReserveUnavailableDoctor(t *testing.T) {
	f := newFixture()
	doctor := seedDoctor(f, model.Slot{Time: testSlot()})
	doctor.Available = false
	f.doctors.put(doctor)

	_, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
	if !apperrors.IsCode(err, apperrors.CodeSlotUnavailable) {
		t.Errorf("expected SLOT_UNAVAILABLE for unavailable doctor, got %v", err)
	}
}

func TestCancelReopensSlot(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	appointment, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if err := f.svc.Cancel(context.Background(), appointment.ID, testDoctorID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	stored, _ := f.svc.GetByID(context.Background(), appointment.ID)
	if stored.Status != model.StatusCancelled {
		t.Errorf("expected cancelled status, got %s", stored.Status)
	}

	doctor, _ := f.doctors.FindByID(context.Background(), testDoctorID)
	if doctor.Slots[0].Booked {
		t.Error("expected slot to reopen after cancellation")
	}

	// The reopened slot is bookable again.
	if _, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot()); err != nil {
		t.Errorf("expected reopened slot to be bookable, got %v", err)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	appointment, _ := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())

	if err := f.svc.Cancel(context.Background(), appointment.ID, testDoctorID); err != nil {
		t.Fatalf("first Cancel failed: %v", err)
	}
	if err := f.svc.Cancel(context.Background(), appointment.ID, testDoctorID); err != nil {
		t.Errorf("second Cancel must be a no-op, got %v", err)
	}
}

func TestCancelCompletedAppointmentRejected(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	appointment, _ := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
	if err := f.svc.Complete(context.Background(), appointment.ID, testDoctorID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	err := f.svc.Cancel(context.Background(), appointment.ID, testDoctorID)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Errorf("expected CONFLICT cancelling a completed appointment, got %v", err)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	appointment, _ := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())

	if err := f.svc.Complete(context.Background(), appointment.ID, testDoctorID); err != nil {
		t.Fatalf("first Complete failed: %v", err)
	}
	if err := f.svc.Complete(context.Background(), appointment.ID, testDoctorID); err != nil {
		t.Errorf("second Complete must be a no-op, got %v", err)
	}

	doctor, _ := f.doctors.FindByID(context.Background(), testDoctorID)
	if !doctor.Slots[0].Booked {
		t.Error("completion must not reopen the slot")
	}
}

func TestCompleteCancelledAppointmentRejected(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	appointment, _ := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())
	if err := f.svc.Cancel(context.Background(), appointment.ID, testDoctorID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	err := f.svc.Complete(context.Background(), appointment.ID, testDoctorID)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Errorf("expected CONFLICT completing a cancelled appointment, got %v", err)
	}
}

func TestLifecycleRequiresOwningDoctor(t *testing.T) {
	f := newFixture()
	seedDoctor(f, model.Slot{Time: testSlot()})

	appointment, _ := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, testSlot())

	if err := f.svc.Cancel(context.Background(), appointment.ID, otherDoctorID); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("expected FORBIDDEN for foreign Cancel, got %v", err)
	}
	if err := f.svc.Complete(context.Background(), appointment.ID, otherDoctorID); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("expected FORBIDDEN for foreign Complete, got %v", err)
	}
}

func TestDashboardAggregates(t *testing.T) {
	f := newFixture()
	slots := []model.Slot{
		{Time: testSlot()},
		{Time: testSlot().Add(time.Hour)},
		{Time: testSlot().Add(2 * time.Hour)},
	}
	seedDoctor(f, slots...)

	secondPatient := "65f000000000000000000004"

	first, _ := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, slots[0].Time)
	second, _ := f.svc.Reserve(context.Background(), testDoctorID, secondPatient, slots[1].Time)
	third, _ := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, slots[2].Time)
	if first == nil || second == nil || third == nil {
		t.Fatal("seeding reservations failed")
	}

	// One completed, one paid-but-confirmed, one unpaid: earnings count
	// the first two only.
	if err := f.svc.Complete(context.Background(), first.ID, testDoctorID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	f.repo.mu.Lock()
	f.repo.appointments[second.ID].Payment = true
	f.repo.mu.Unlock()

	dashboard, err := f.svc.Dashboard(context.Background(), testDoctorID)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}

	if dashboard.Earnings != 900 {
		t.Errorf("expected earnings 900 (two bookable fees of 450), got %v", dashboard.Earnings)
	}
	if dashboard.Appointments != 3 {
		t.Errorf("expected 3 appointments, got %d", dashboard.Appointments)
	}
	if dashboard.Patients != 2 {
		t.Errorf("expected 2 distinct patients, got %d", dashboard.Patients)
	}
	if len(dashboard.LatestAppointments) != 3 {
		t.Fatalf("expected 3 recent appointments, got %d", len(dashboard.LatestAppointments))
	}
	if dashboard.LatestAppointments[0].ID != third.ID {
		t.Error("latest appointments not ordered most recent first")
	}
}

func TestGetByDoctorPaginates(t *testing.T) {
	f := newFixture()
	slots := []model.Slot{
		{Time: testSlot()},
		{Time: testSlot().Add(time.Hour)},
	}
	seedDoctor(f, slots...)

	for _, s := range slots {
		if _, err := f.svc.Reserve(context.Background(), testDoctorID, testPatientID, s.Time); err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}
	}

	appointments, total, err := f.svc.GetByDoctor(context.Background(), testDoctorID, 1, 0)
	if err != nil {
		t.Fatalf("GetByDoctor failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
	if len(appointments) != 1 {
		t.Errorf("expected 1 appointment with limit 1, got %d", len(appointments))
	}
}
