package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rentacar-service/config"
	"rentacar-service/internal/models"
	"rentacar-service/internal/store"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory store with row locks held until the unit of work ends
// and writes that become visible only on commit.
type memStore struct {
	mu           sync.Mutex
	customers    map[int64]models.Customer
	branches     map[int64]models.Branch
	cars         map[int64]models.Car
	reservations map[int64]models.Reservation
	maintenance  map[int64]models.Maintenance
	events       map[string]string
	rowLocks     map[string]chan struct{}
	lockTimeout  time.Duration
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		customers:    make(map[int64]models.Customer),
		branches:     make(map[int64]models.Branch),
		cars:         make(map[int64]models.Car),
		reservations: make(map[int64]models.Reservation),
		maintenance:  make(map[int64]models.Maintenance),
		events:       make(map[string]string),
		rowLocks:     make(map[string]chan struct{}),
		lockTimeout:  2 * time.Second,
		nextID:       1000,
	}
}

func (s *memStore) addBranch(id int64) {
	s.branches[id] = models.Branch{ID: id, Name: fmt.Sprintf("Branch %d", id)}
}

func (s *memStore) addCustomer(id int64) {
	s.customers[id] = models.Customer{ID: id, FirstName: "Jane", LastName: "Doe"}
}

func (s *memStore) addCar(id, branchID int64, dailyPrice string) {
	s.cars[id] = models.Car{
		ID:         id,
		Make:       "Toyota",
		Model:      "Corolla",
		Year:       2023,
		DailyPrice: decimal.RequireFromString(dailyPrice),
		Status:     models.CarStatusAvailable,
		BranchID:   branchID,
	}
}

func (s *memStore) reservation(id int64) models.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[id]
}

func (s *memStore) car(id int64) models.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cars[id]
}

func (s *memStore) rowLock(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.rowLocks[key] = l
	}
	return l
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx store.TxStore) error) error {
	tx := &memTx{s: s, held: make(map[string]chan struct{})}
	defer tx.unlockAll()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range tx.writes {
		w()
	}
	return nil
}

func (s *memStore) GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *memStore) ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Reservation
	for _, r := range s.reservations {
		if f.CustomerID != nil && r.CustomerID != *f.CustomerID {
			continue
		}
		if f.CarID != nil && r.CarID != *f.CarID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.BranchID != nil && r.PickupBranchID != *f.BranchID && r.DropoffBranchID != *f.BranchID {
			continue
		}
		if f.StartDate != nil && r.EndDate.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && r.StartDate.After(*f.EndDate) {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, f.Page, f.Size), int64(len(matched)), nil
}

func (s *memStore) GetCarByID(ctx context.Context, id int64, includeDeleted bool) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCar(id, includeDeleted)
}

func (s *memStore) getCar(id int64, includeDeleted bool) (*models.Car, error) {
	c, ok := s.cars[id]
	if !ok || (c.Deleted && !includeDeleted) {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *memStore) ListAvailableCars(ctx context.Context, f models.AvailabilityFilter) ([]models.Car, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Car
	for _, c := range s.cars {
		if c.BranchID != f.BranchID || c.Deleted || c.Status != models.CarStatusAvailable {
			continue
		}
		if f.MinSeats != nil && c.Seats < *f.MinSeats {
			continue
		}
		if f.MaxPrice != nil && c.DailyPrice.GreaterThan(*f.MaxPrice) {
			continue
		}
		busy := false
		for _, r := range s.reservations {
			if r.CarID == c.ID && r.Status.IsActive() && models.Overlaps(r.StartDate, r.EndDate, f.StartDate, f.EndDate) {
				busy = true
				break
			}
		}
		if !busy {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, f.Page, f.Size), int64(len(matched)), nil
}

func (s *memStore) GetMaintenanceByID(ctx context.Context, id int64) (*models.Maintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maintenance[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *memStore) ListMaintenance(ctx context.Context, f models.MaintenanceFilter) ([]models.Maintenance, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Maintenance
	for _, m := range s.maintenance {
		if f.CarID != nil && m.CarID != *f.CarID {
			continue
		}
		if f.Status != nil && m.Status != *f.Status {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, f.Page, f.Size), int64(len(matched)), nil
}

func paginate[T any](items []T, page, size int) []T {
	from := page * size
	if from >= len(items) {
		return nil
	}
	to := from + size
	if to > len(items) {
		to = len(items)
	}
	return items[from:to]
}

type memTx struct {
	s      *memStore
	held   map[string]chan struct{}
	writes []func()
}

// lock waits for a row lock like SELECT ... FOR UPDATE under lock_timeout,
// so a lock cycle surfaces as ErrLockTimeout instead of hanging the test
func (t *memTx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	l := t.s.rowLock(key)
	timer := time.NewTimer(t.s.lockTimeout)
	defer timer.Stop()
	select {
	case l <- struct{}{}:
		t.held[key] = l
		return nil
	case <-timer.C:
		return fmt.Errorf("failed to lock %s: %w", key, store.ErrLockTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *memTx) unlockAll() {
	for _, l := range t.held {
		<-l
	}
}

func (t *memTx) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	c, ok := t.s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (t *memTx) GetBranchByID(ctx context.Context, id int64) (*models.Branch, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.branches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (t *memTx) GetCarByID(ctx context.Context, id int64, includeDeleted bool) (*models.Car, error) {
	return t.s.GetCarByID(ctx, id, includeDeleted)
}

func (t *memTx) LockCar(ctx context.Context, carID int64) error {
	if _, err := t.s.GetCarByID(ctx, carID, true); err != nil {
		return err
	}
	return t.lock(ctx, fmt.Sprintf("car:%d", carID))
}

// FindOverlappingReservations locks every row it returns, as FOR UPDATE does
func (t *memTx) FindOverlappingReservations(ctx context.Context, carID int64, start, end models.Date) ([]models.Reservation, error) {
	t.s.mu.Lock()
	var candidates []int64
	for _, r := range t.s.reservations {
		if r.CarID == carID && r.Status.IsActive() && models.Overlaps(r.StartDate, r.EndDate, start, end) {
			candidates = append(candidates, r.ID)
		}
	}
	t.s.mu.Unlock()
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	var overlaps []models.Reservation
	for _, id := range candidates {
		if err := t.lock(ctx, fmt.Sprintf("reservation:%d", id)); err != nil {
			return nil, err
		}
		// re-read after the wait, the row may have moved on
		r := t.s.reservation(id)
		if r.CarID == carID && r.Status.IsActive() && models.Overlaps(r.StartDate, r.EndDate, start, end) {
			overlaps = append(overlaps, r)
		}
	}
	return overlaps, nil
}

func (t *memTx) GetReservationForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	if err := t.lock(ctx, fmt.Sprintf("reservation:%d", id)); err != nil {
		return nil, err
	}
	return t.s.GetReservationByID(ctx, id)
}

func (t *memTx) CreateReservation(ctx context.Context, r *models.Reservation) error {
	t.s.mu.Lock()
	t.s.nextID++
	r.ID = t.s.nextID
	t.s.mu.Unlock()

	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	row := *r
	t.writes = append(t.writes, func() { t.s.reservations[row.ID] = row })
	return nil
}

func (t *memTx) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	r.UpdatedAt = time.Now()
	row := *r
	t.writes = append(t.writes, func() { t.s.reservations[row.ID] = row })
	return nil
}

func (t *memTx) UpdateReservationStatus(ctx context.Context, id int64, status models.ReservationStatus) error {
	t.writes = append(t.writes, func() {
		r := t.s.reservations[id]
		r.Status = status
		t.s.reservations[id] = r
	})
	return nil
}

func (t *memTx) GetMaintenanceForUpdate(ctx context.Context, id int64) (*models.Maintenance, error) {
	if err := t.lock(ctx, fmt.Sprintf("maintenance:%d", id)); err != nil {
		return nil, err
	}
	return t.s.GetMaintenanceByID(ctx, id)
}

func (t *memTx) CreateMaintenance(ctx context.Context, m *models.Maintenance) error {
	t.s.mu.Lock()
	t.s.nextID++
	m.ID = t.s.nextID
	t.s.mu.Unlock()

	row := *m
	t.writes = append(t.writes, func() { t.s.maintenance[row.ID] = row })
	return nil
}

func (t *memTx) UpdateMaintenance(ctx context.Context, m *models.Maintenance) error {
	row := *m
	t.writes = append(t.writes, func() { t.s.maintenance[row.ID] = row })
	return nil
}

func (t *memTx) UpdateCarStatus(ctx context.Context, carID int64, status models.CarStatus) error {
	t.writes = append(t.writes, func() {
		c := t.s.cars[carID]
		c.Status = status
		t.s.cars[carID] = c
	})
	return nil
}

func (t *memTx) SetCarDeleted(ctx context.Context, carID int64, deleted bool, status models.CarStatus) error {
	t.writes = append(t.writes, func() {
		c := t.s.cars[carID]
		c.Deleted = deleted
		c.Status = status
		t.s.cars[carID] = c
	})
	return nil
}

type recordingPublisher struct {
	mu          sync.Mutex
	reservation []*models.ReservationEvent
	maintenance []*models.MaintenanceEvent
	err         error
}

func (p *recordingPublisher) PublishReservationEvent(ctx context.Context, event *models.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reservation = append(p.reservation, event)
	return p.err
}

func (p *recordingPublisher) PublishMaintenanceEvent(ctx context.Context, event *models.MaintenanceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maintenance = append(p.maintenance, event)
	return p.err
}

func (p *recordingPublisher) reservationTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.reservation))
	for i, e := range p.reservation {
		types[i] = e.EventType
	}
	return types
}

// memIdempotency mimics the Redis claim script
type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

const memPending = "\x00pending"

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: make(map[string]string)}
}

func (m *memIdempotency) Claim(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.keys[key]; ok {
		if v == memPending {
			return false, "", nil
		}
		return false, v, nil
	}
	m.keys[key] = memPending
	return true, "", nil
}

func (m *memIdempotency) Complete(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = value
	return nil
}

func (m *memIdempotency) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] == memPending {
		delete(m.keys, key)
	}
	return nil
}

// memCache mirrors the generation scheme of the Redis availability cache
type memCache struct {
	mu          sync.Mutex
	pages       map[string]models.Page[models.Car]
	generations map[int64]int64
	invalidated []int64
}

func newMemCache() *memCache {
	return &memCache{
		pages:       make(map[string]models.Page[models.Car]),
		generations: make(map[int64]int64),
	}
}

func cacheKey(f models.AvailabilityFilter, generation int64) string {
	return fmt.Sprintf("%d:g%d:%s:%s:%d:%d", f.BranchID, generation, f.StartDate, f.EndDate, f.Page, f.Size)
}

func (c *memCache) GetAvailability(ctx context.Context, f models.AvailabilityFilter) (*models.Page[models.Car], int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.generations[f.BranchID]
	p, ok := c.pages[cacheKey(f, gen)]
	if !ok {
		return nil, gen, nil
	}
	return &p, gen, nil
}

func (c *memCache) SetAvailability(ctx context.Context, f models.AvailabilityFilter, generation int64, page models.Page[models.Car], ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[cacheKey(f, generation)] = page
	return nil
}

func (c *memCache) InvalidateBranch(ctx context.Context, branchID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, branchID)
	c.generations[branchID]++
	return nil
}

func testBusinessConfig() config.BusinessConfig {
	return config.BusinessConfig{
		Currency:                    "USD",
		IdempotencyTTLSeconds:       60,
		AvailabilityCacheTTLSeconds: 15,
		DefaultPageSize:             20,
		MaxPageSize:                 100,
	}
}

func date(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *models.Date {
	d := date(s)
	return &d
}

// fixedClock returns a clock pinned to the given calendar date
func fixedClock(day string) func() time.Time {
	d := date(day)
	return func() time.Time { return d.Time.Add(10 * time.Hour) }
}

func (s *memStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.events[eventID]
	return ok, nil
}

func (s *memStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; ok {
		return false, nil
	}
	s.events[eventID] = eventType
	return true, nil
}
