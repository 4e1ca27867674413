package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/invoice"
	mr "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// memDB is an in-memory stand-in for the postgres repositories. fakeTx
// snapshots it before a transaction and restores it on error, which gives
// the services the same all-or-nothing behaviour as a real transaction.
type memDB struct {
	mu sync.Mutex

	users         map[uuid.UUID]domain.User
	appointments  map[uuid.UUID]appointment.Appointment
	vets          map[uuid.UUID]veterinarian.Veterinarian
	clients       map[uuid.UUID]client.Client
	pets          map[uuid.UUID]pet.Pet
	services      map[uuid.UUID]catalog.Service
	notifications map[uuid.UUID]notification.Notification
	tokens        map[string]notification.DeviceToken
	invoices      map[uuid.UUID]invoice.Invoice
	records       map[uuid.UUID]mr.MedicalRecord
	attachments   map[uuid.UUID]mr.Attachment
	sequences     map[int]int
	audit         []domain.AuditLog

	failAudit error
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[uuid.UUID]domain.User{},
		appointments:  map[uuid.UUID]appointment.Appointment{},
		vets:          map[uuid.UUID]veterinarian.Veterinarian{},
		clients:       map[uuid.UUID]client.Client{},
		pets:          map[uuid.UUID]pet.Pet{},
		services:      map[uuid.UUID]catalog.Service{},
		notifications: map[uuid.UUID]notification.Notification{},
		tokens:        map[string]notification.DeviceToken{},
		invoices:      map[uuid.UUID]invoice.Invoice{},
		records:       map[uuid.UUID]mr.MedicalRecord{},
		attachments:   map[uuid.UUID]mr.Attachment{},
		sequences:     map[int]int{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() func() {
	db.mu.Lock()
	defer db.mu.Unlock()
	users, appts, vets := cloneMap(db.users), cloneMap(db.appointments), cloneMap(db.vets)
	clients, pets, services := cloneMap(db.clients), cloneMap(db.pets), cloneMap(db.services)
	notes, tokens, invoices := cloneMap(db.notifications), cloneMap(db.tokens), cloneMap(db.invoices)
	records, atts, seqs := cloneMap(db.records), cloneMap(db.attachments), cloneMap(db.sequences)
	audit := append([]domain.AuditLog(nil), db.audit...)
	return func() {
		db.mu.Lock()
		defer db.mu.Unlock()
		db.users, db.appointments, db.vets = users, appts, vets
		db.clients, db.pets, db.services = clients, pets, services
		db.notifications, db.tokens, db.invoices = notes, tokens, invoices
		db.records, db.attachments, db.sequences = records, atts, seqs
		db.audit = audit
	}
}

type fakeTx struct {
	db *memDB
}

func (t fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	restore := t.db.snapshot()
	if err := fn(ctx); err != nil {
		restore()
		return err
	}
	return nil
}

// audit

type fakeAudit struct{ db *memDB }

func (f fakeAudit) Create(_ context.Context, e *domain.AuditLog) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failAudit != nil {
		return f.db.failAudit
	}
	f.db.audit = append(f.db.audit, *e)
	return nil
}

// users

type fakeUsers struct{ db *memDB }

func (f fakeUsers) Create(_ context.Context, u *domain.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.users {
		if existing.Email == u.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.db.users[u.ID] = *u
	return nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (f fakeUsers) RecordLoginFailure(_ context.Context, id uuid.UUID, maxAttempts int, lockFor time.Duration) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u := f.db.users[id]
	u.FailedLoginCount++
	if u.FailedLoginCount >= maxAttempts {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
	}
	f.db.users[id] = u
	return nil
}

func (f fakeUsers) RecordLoginSuccess(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u := f.db.users[id]
	now := time.Now()
	u.FailedLoginCount, u.LockedUntil, u.LastLoginAt = 0, nil, &now
	f.db.users[id] = u
	return nil
}

func (f fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u := f.db.users[id]
	u.PasswordHash = hash
	f.db.users[id] = u
	return nil
}

// appointments

type fakeAppointments struct{ db *memDB }

func (f fakeAppointments) OccupiedSlots(_ context.Context, vetID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]appointment.Slot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []appointment.Slot
	for _, a := range f.db.appointments {
		if a.VeterinarianID != vetID || a.Status == appointment.StatusCancelled {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ScheduledAt.After(to) {
			continue
		}
		if a.EndsAt().After(from) || !a.ScheduledAt.Before(from) {
			out = append(out, a.Slot())
		}
	}
	return out, nil
}

func (f fakeAppointments) Create(_ context.Context, a *appointment.Appointment) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	for i := range a.Services {
		a.Services[i].ID = uuid.New()
		a.Services[i].AppointmentID = a.ID
	}
	f.db.appointments[a.ID] = *a
	return nil
}

func (f fakeAppointments) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a, ok := f.db.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (f fakeAppointments) Update(_ context.Context, a *appointment.Appointment) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.appointments[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	f.db.appointments[a.ID] = *a
	return nil
}

func (f fakeAppointments) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range f.db.appointments {
		if q.ClientID != nil && a.ClientID != *q.ClientID {
			continue
		}
		if q.VeterinarianID != nil && a.VeterinarianID != *q.VeterinarianID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		a := a
		out = append(out, &a)
	}
	return &appointment.PagedAppointments{
		Appointments: out,
		TotalCount:   int64(len(out)),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   1,
	}, nil
}

func (f fakeAppointments) CountUpcoming(_ context.Context, vetID, petID *uuid.UUID, now time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for _, a := range f.db.appointments {
		if a.Status == appointment.StatusCancelled || a.ScheduledAt.Before(now) {
			continue
		}
		if vetID != nil && a.VeterinarianID != *vetID {
			continue
		}
		if petID != nil && a.PetID != *petID {
			continue
		}
		n++
	}
	return n, nil
}

func (f fakeAppointments) latest(match func(appointment.Appointment) bool, limit int) []*appointment.Appointment {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range f.db.appointments {
		if match(a) {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f fakeAppointments) LatestForPet(_ context.Context, petID uuid.UUID, limit int) ([]*appointment.Appointment, error) {
	return f.latest(func(a appointment.Appointment) bool { return a.PetID == petID }, limit), nil
}

func (f fakeAppointments) LatestForClient(_ context.Context, clientID uuid.UUID, limit int) ([]*appointment.Appointment, error) {
	return f.latest(func(a appointment.Appointment) bool { return a.ClientID == clientID }, limit), nil
}

// veterinarians

type fakeVets struct{ db *memDB }

func (f fakeVets) Create(_ context.Context, v *veterinarian.Veterinarian) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	f.db.vets[v.ID] = *v
	return nil
}

func (f fakeVets) GetByID(_ context.Context, id uuid.UUID) (*veterinarian.Veterinarian, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	v, ok := f.db.vets[id]
	if !ok {
		return nil, veterinarian.ErrVeterinarianNotFound
	}
	return &v, nil
}

func (f fakeVets) Update(_ context.Context, id uuid.UUID, cmd *veterinarian.UpdateVeterinarianCommand) (*veterinarian.Veterinarian, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	v, ok := f.db.vets[id]
	if !ok {
		return nil, veterinarian.ErrVeterinarianNotFound
	}
	if cmd.UserID != nil {
		v.UserID = cmd.UserID
	}
	if cmd.Name != nil {
		v.Name = *cmd.Name
	}
	f.db.vets[id] = v
	return &v, nil
}

func (f fakeVets) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.vets[id]; !ok {
		return veterinarian.ErrVeterinarianNotFound
	}
	delete(f.db.vets, id)
	return nil
}

func (f fakeVets) List(_ context.Context, q *veterinarian.ListVeterinariansQuery) (*veterinarian.PagedVeterinarians, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]*veterinarian.Veterinarian, 0, len(f.db.vets))
	for _, v := range f.db.vets {
		v := v
		out = append(out, &v)
	}
	return &veterinarian.PagedVeterinarians{Veterinarians: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (f fakeVets) LockForScheduling(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.vets[id]; !ok {
		return veterinarian.ErrVeterinarianNotFound
	}
	return nil
}

func (f fakeVets) GetAvailability(_ context.Context, vetID uuid.UUID, weekday *int) ([]veterinarian.Availability, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []veterinarian.Availability
	for _, w := range f.db.vets[vetID].Availability {
		if weekday == nil || w.Weekday == *weekday {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f fakeVets) ReplaceAvailability(_ context.Context, vetID uuid.UUID, windows []veterinarian.Availability) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	v := f.db.vets[vetID]
	v.Availability = append([]veterinarian.Availability(nil), windows...)
	f.db.vets[vetID] = v
	return nil
}

// clients

type fakeClients struct{ db *memDB }

func (f fakeClients) Create(_ context.Context, c *client.Client) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.clients {
		if existing.Email == c.Email {
			return client.ErrClientAlreadyExists
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.db.clients[c.ID] = *c
	return nil
}

func (f fakeClients) GetByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.clients[id]
	if !ok {
		return nil, client.ErrClientNotFound
	}
	return &c, nil
}

func (f fakeClients) GetByPublicID(_ context.Context, publicID uuid.UUID) (*client.Client, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.clients {
		if c.PublicID == publicID {
			return &c, nil
		}
	}
	return nil, client.ErrClientNotFound
}

func (f fakeClients) Update(_ context.Context, id uuid.UUID, cmd *client.UpdateClientCommand) (*client.Client, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.clients[id]
	if !ok {
		return nil, client.ErrClientNotFound
	}
	if cmd.UserID != nil {
		c.UserID = cmd.UserID
	}
	if cmd.Name != nil {
		c.Name = *cmd.Name
	}
	if cmd.Email != nil {
		c.Email = *cmd.Email
	}
	if cmd.Phone != nil {
		c.Phone = *cmd.Phone
	}
	f.db.clients[id] = c
	return &c, nil
}

func (f fakeClients) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	delete(f.db.clients, id)
	return nil
}

func (f fakeClients) List(_ context.Context, q *client.ListClientsQuery) (*client.PagedClients, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*client.Client
	for _, c := range f.db.clients {
		c := c
		out = append(out, &c)
	}
	return &client.PagedClients{Clients: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (f fakeClients) ExistsByEmail(_ context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.clients {
		if c.Email == email && (excludeID == nil || c.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// pets

type fakePets struct{ db *memDB }

func (f fakePets) Create(_ context.Context, p *pet.Pet) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.db.pets[p.ID] = *p
	return nil
}

func (f fakePets) GetByID(_ context.Context, id uuid.UUID) (*pet.Pet, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.pets[id]
	if !ok {
		return nil, pet.ErrPetNotFound
	}
	return &p, nil
}

func (f fakePets) GetByPublicID(_ context.Context, publicID uuid.UUID) (*pet.Pet, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, p := range f.db.pets {
		if p.PublicID == publicID {
			return &p, nil
		}
	}
	return nil, pet.ErrPetNotFound
}

func (f fakePets) Update(_ context.Context, id uuid.UUID, cmd *pet.UpdatePetCommand) (*pet.Pet, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.pets[id]
	if !ok {
		return nil, pet.ErrPetNotFound
	}
	if cmd.Name != nil {
		p.Name = *cmd.Name
	}
	f.db.pets[id] = p
	return &p, nil
}

func (f fakePets) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	delete(f.db.pets, id)
	return nil
}

func (f fakePets) List(_ context.Context, q *pet.ListPetsQuery) (*pet.PagedPets, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*pet.Pet
	for _, p := range f.db.pets {
		if q.ClientID != nil && p.ClientID != *q.ClientID {
			continue
		}
		p := p
		out = append(out, &p)
	}
	return &pet.PagedPets{Pets: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (f fakePets) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	pets, _ := f.ListByClient(ctx, clientID)
	return int64(len(pets)), nil
}

func (f fakePets) ListByClient(_ context.Context, clientID uuid.UUID) ([]*pet.Pet, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*pet.Pet
	for _, p := range f.db.pets {
		if p.ClientID == clientID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

// catalog

type fakeCatalog struct{ db *memDB }

func (f fakeCatalog) Create(_ context.Context, s *catalog.Service) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.services {
		if existing.Code == s.Code {
			return catalog.ErrServiceCodeExists
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.db.services[s.ID] = *s
	return nil
}

func (f fakeCatalog) GetByID(_ context.Context, id uuid.UUID) (*catalog.Service, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.services[id]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	return &s, nil
}

func (f fakeCatalog) GetMany(_ context.Context, ids []uuid.UUID) ([]*catalog.Service, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]*catalog.Service, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		s, ok := f.db.services[id]
		if !ok {
			return nil, catalog.ErrUnknownServices
		}
		out = append(out, &s)
	}
	return out, nil
}

func (f fakeCatalog) Update(_ context.Context, id uuid.UUID, cmd *catalog.UpdateServiceCommand) (*catalog.Service, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.services[id]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	if cmd.Code != nil {
		s.Code = *cmd.Code
	}
	if cmd.Name != nil {
		s.Name = *cmd.Name
	}
	if cmd.Type != nil {
		s.Type = *cmd.Type
	}
	if cmd.PriceCents != nil {
		s.PriceCents = *cmd.PriceCents
	}
	if cmd.DurationMins != nil {
		s.DurationMins = *cmd.DurationMins
	}
	f.db.services[id] = s
	return &s, nil
}

func (f fakeCatalog) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	delete(f.db.services, id)
	return nil
}

func (f fakeCatalog) List(_ context.Context, q *catalog.ListServicesQuery) (*catalog.PagedServices, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*catalog.Service
	for _, s := range f.db.services {
		s := s
		out = append(out, &s)
	}
	return &catalog.PagedServices{Services: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

// notifications

type fakeNotifications struct{ db *memDB }

func (f fakeNotifications) Create(_ context.Context, n *notification.Notification) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	f.db.notifications[n.ID] = *n
	return nil
}

func (f fakeNotifications) GetByID(_ context.Context, userID, id uuid.UUID) (*notification.Notification, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n, ok := f.db.notifications[id]
	if !ok || n.UserID != userID {
		return nil, notification.ErrNotificationNotFound
	}
	return &n, nil
}

func (f fakeNotifications) GetForDelivery(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n, ok := f.db.notifications[id]
	if !ok {
		return nil, notification.ErrNotificationNotFound
	}
	return &n, nil
}

func (f fakeNotifications) List(_ context.Context, q *notification.ListNotificationsQuery) (*notification.PagedNotifications, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*notification.Notification
	for _, n := range f.db.notifications {
		if n.UserID != q.UserID || (q.UnreadOnly && n.Read) {
			continue
		}
		n := n
		out = append(out, &n)
	}
	return &notification.PagedNotifications{Notifications: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (f fakeNotifications) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var c int64
	for _, n := range f.db.notifications {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (f fakeNotifications) MarkRead(_ context.Context, userID, id uuid.UUID, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n, ok := f.db.notifications[id]
	if !ok || n.UserID != userID {
		return notification.ErrNotificationNotFound
	}
	n.Read, n.ReadAt = true, &at
	f.db.notifications[id] = n
	return nil
}

func (f fakeNotifications) MarkAllRead(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var c int64
	for id, n := range f.db.notifications {
		if n.UserID == userID && !n.Read {
			n.Read, n.ReadAt = true, &at
			f.db.notifications[id] = n
			c++
		}
	}
	return c, nil
}

func (f fakeNotifications) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := f.db.notifications[id]
	n.SentAt = &at
	f.db.notifications[id] = n
	return nil
}

func (f fakeNotifications) Delete(_ context.Context, userID, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n, ok := f.db.notifications[id]
	if !ok || n.UserID != userID {
		return notification.ErrNotificationNotFound
	}
	delete(f.db.notifications, id)
	return nil
}

func (f fakeNotifications) DeleteRead(_ context.Context, userID uuid.UUID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var c int64
	for id, n := range f.db.notifications {
		if n.UserID == userID && n.Read {
			delete(f.db.notifications, id)
			c++
		}
	}
	return c, nil
}

type fakeTokens struct{ db *memDB }

func (f fakeTokens) Upsert(_ context.Context, t *notification.DeviceToken) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if existing, ok := f.db.tokens[t.Token]; ok {
		t.ID = existing.ID
	} else {
		t.ID = uuid.New()
	}
	f.db.tokens[t.Token] = *t
	return nil
}

func (f fakeTokens) ListByUser(_ context.Context, userID uuid.UUID) ([]*notification.DeviceToken, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*notification.DeviceToken
	for _, t := range f.db.tokens {
		if t.UserID == userID {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

func (f fakeTokens) Delete(_ context.Context, userID uuid.UUID, token string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tokens[token]
	if !ok || t.UserID != userID {
		return notification.ErrDeviceTokenNotFound
	}
	delete(f.db.tokens, token)
	return nil
}

func (f fakeTokens) DeleteAll(_ context.Context, userID uuid.UUID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var c int64
	for k, t := range f.db.tokens {
		if t.UserID == userID {
			delete(f.db.tokens, k)
			c++
		}
	}
	return c, nil
}

// invoices

type fakeInvoices struct{ db *memDB }

func (f fakeInvoices) Create(_ context.Context, inv *invoice.Invoice) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	f.db.invoices[inv.ID] = *inv
	return nil
}

func (f fakeInvoices) GetByID(_ context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	inv, ok := f.db.invoices[id]
	if !ok {
		return nil, invoice.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (f fakeInvoices) Update(_ context.Context, inv *invoice.Invoice) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.invoices[inv.ID] = *inv
	return nil
}

func (f fakeInvoices) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.invoices[id]; !ok {
		return invoice.ErrInvoiceNotFound
	}
	delete(f.db.invoices, id)
	for rid, r := range f.db.records {
		if r.InvoiceID != nil && *r.InvoiceID == id {
			r.Billed, r.InvoiceID = false, nil
			f.db.records[rid] = r
		}
	}
	return nil
}

func (f fakeInvoices) List(_ context.Context, q *invoice.ListInvoicesQuery) (*invoice.PagedInvoices, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*invoice.Invoice
	for _, inv := range f.db.invoices {
		if q.ClientID != nil && inv.ClientID != *q.ClientID {
			continue
		}
		inv := inv
		out = append(out, &inv)
	}
	return &invoice.PagedInvoices{Invoices: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (f fakeInvoices) Stats(_ context.Context, q *invoice.ListInvoicesQuery) (*invoice.Stats, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	st := &invoice.Stats{}
	for _, inv := range f.db.invoices {
		if q.ClientID != nil && inv.ClientID != *q.ClientID {
			continue
		}
		st.TotalInvoices++
		switch inv.Status {
		case invoice.StatusPending:
			st.PendingCount++
			st.PendingCents += inv.TotalCents
		case invoice.StatusPaid:
			st.PaidCount++
			st.PaidCents += inv.TotalCents
		case invoice.StatusVoid:
			st.VoidCount++
		}
	}
	if st.PaidCount > 0 {
		st.AveragePaidCents = st.PaidCents / st.PaidCount
	}
	return st, nil
}

func (f fakeInvoices) ExistsForAppointment(_ context.Context, appointmentID uuid.UUID) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, inv := range f.db.invoices {
		if inv.AppointmentID != nil && *inv.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeInvoices) NextNumber(_ context.Context, year int) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.sequences[year]++
	return f.db.sequences[year], nil
}

func (f fakeInvoices) PeekNumber(_ context.Context, year int) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.sequences[year] + 1, nil
}

// medical records

type fakeRecords struct{ db *memDB }

func (f fakeRecords) Create(_ context.Context, r *mr.MedicalRecord) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	for i := range r.Services {
		r.Services[i].ID = uuid.New()
		r.Services[i].MedicalRecordID = r.ID
	}
	f.db.records[r.ID] = *r
	return nil
}

func (f fakeRecords) GetByID(_ context.Context, id uuid.UUID) (*mr.MedicalRecord, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.records[id]
	if !ok {
		return nil, mr.ErrRecordNotFound
	}
	return &r, nil
}

func (f fakeRecords) Update(_ context.Context, id uuid.UUID, cmd *mr.UpdateRecordCommand) (*mr.MedicalRecord, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.records[id]
	if !ok {
		return nil, mr.ErrRecordNotFound
	}
	if cmd.Diagnosis != nil {
		r.Diagnosis = *cmd.Diagnosis
	}
	f.db.records[id] = r
	return &r, nil
}

func (f fakeRecords) List(_ context.Context, q *mr.ListRecordsQuery) (*mr.PagedRecords, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*mr.MedicalRecord
	for _, r := range f.db.records {
		if q.PetID != nil && r.PetID != *q.PetID {
			continue
		}
		if q.ClientID != nil && f.db.pets[r.PetID].ClientID != *q.ClientID {
			continue
		}
		r := r
		out = append(out, &r)
	}
	return &mr.PagedRecords{Records: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (f fakeRecords) LatestForPet(_ context.Context, petID uuid.UUID, limit int) ([]*mr.MedicalRecord, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*mr.MedicalRecord
	for _, r := range f.db.records {
		if r.PetID == petID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeRecords) AddAttachment(_ context.Context, a *mr.Attachment) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a.ID = uuid.New()
	f.db.attachments[a.ID] = *a
	return nil
}

func (f fakeRecords) GetAttachment(_ context.Context, recordID, attachmentID uuid.UUID) (*mr.Attachment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a, ok := f.db.attachments[attachmentID]
	if !ok || a.MedicalRecordID != recordID {
		return nil, mr.ErrAttachmentNotFound
	}
	return &a, nil
}

func (f fakeRecords) GetManyForUpdate(_ context.Context, ids []uuid.UUID) ([]*mr.MedicalRecord, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]*mr.MedicalRecord, 0, len(ids))
	for _, id := range ids {
		r, ok := f.db.records[id]
		if !ok {
			return nil, mr.ErrRecordNotFound
		}
		out = append(out, &r)
	}
	return out, nil
}

func (f fakeRecords) MarkBilled(_ context.Context, ids []uuid.UUID, invoiceID uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, id := range ids {
		r := f.db.records[id]
		r.Billed = true
		inv := invoiceID
		r.InvoiceID = &inv
		f.db.records[id] = r
	}
	return nil
}

// collaborators

type reminderCall struct {
	appointmentID uuid.UUID
	startsAt      time.Time
	runAt         time.Time
}

type fakeJobs struct {
	mu         sync.Mutex
	deliveries []uuid.UUID
	reminders  []reminderCall
}

func (j *fakeJobs) EnqueueDelivery(_ context.Context, id uuid.UUID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deliveries = append(j.deliveries, id)
	return nil
}

func (j *fakeJobs) ScheduleReminder(_ context.Context, id uuid.UUID, startsAt, runAt time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reminders = append(j.reminders, reminderCall{id, startsAt, runAt})
	return nil
}

type fakeStore struct {
	objects map[string][]byte
	failPut error
}

func (s *fakeStore) Put(_ context.Context, folder, fileName, _ string, r io.Reader, _ int64) (string, error) {
	if s.failPut != nil {
		return "", s.failPut
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := folder + "/" + uuid.NewString() + "-" + fileName
	s.objects[key] = b
	return key, nil
}

func (s *fakeStore) PresignGet(_ context.Context, key, _ string) (string, time.Time, error) {
	if _, ok := s.objects[key]; !ok {
		return "", time.Time{}, io.EOF
	}
	return "https://objects.test/" + key + "?sig=1", time.Now().Add(15 * time.Minute), nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type identityPhones struct{}

func (identityPhones) Normalize(in string) (string, error) {
	in = strings.ReplaceAll(in, " ", "")
	if !strings.HasPrefix(in, "+") || len(in) < 8 {
		return "", io.ErrUnexpectedEOF
	}
	return in, nil
}

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollector("test", prometheus.NewRegistry())
}

func newTestAudit(t *testing.T, db *memDB) *AuditService {
	t.Helper()
	svc := NewAuditService(fakeAudit{db}, newTestMetrics(), zap.NewNop())
	t.Cleanup(svc.Shutdown)
	return svc
}

// fixtures

// testNow is a Wednesday; appointments in tests are booked on Thursday 14th.
var testNow = time.Date(2030, 3, 13, 8, 0, 0, 0, time.UTC)

func on14th(hour, minute int) time.Time {
	return time.Date(2030, 3, 14, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	db       *memDB
	owner    *client.Client
	ownerUID uuid.UUID
	pet      *pet.Pet
	vet      *veterinarian.Veterinarian
	exam     *catalog.Service // 30 minutes
	vaccine  *catalog.Service // 15 minutes
}

func newFixture() *fixture {
	db := newMemDB()
	f := &fixture{db: db, ownerUID: uuid.New()}

	f.owner = &client.Client{
		ID:          uuid.New(),
		PublicID:    uuid.New(),
		UserID:      &f.ownerUID,
		Name:        "Ana Torres",
		ContactInfo: client.ContactInfo{Email: "ana@example.com", Phone: "+525512345678"},
	}
	db.clients[f.owner.ID] = *f.owner
	db.users[f.ownerUID] = domain.User{ID: f.ownerUID, Email: "ana@example.com", Role: domain.RoleClient, ClientID: &f.owner.ID, IsActive: true}

	f.pet = &pet.Pet{ID: uuid.New(), PublicID: uuid.New(), ClientID: f.owner.ID, Name: "Luna", Species: "dog", Sex: pet.SexFemale}
	db.pets[f.pet.ID] = *f.pet

	f.vet = &veterinarian.Veterinarian{ID: uuid.New(), Name: "Dr. Ruiz"}
	db.vets[f.vet.ID] = *f.vet

	f.exam = &catalog.Service{ID: uuid.New(), Code: "EXAM", Name: "General exam", Type: catalog.TypeConsultation, DurationMins: 30, PriceCents: 45000}
	f.vaccine = &catalog.Service{ID: uuid.New(), Code: "VAC", Name: "Rabies vaccine", Type: catalog.TypeVaccine, DurationMins: 15, PriceCents: 30000}
	db.services[f.exam.ID] = *f.exam
	db.services[f.vaccine.ID] = *f.vaccine
	return f
}

func (f *fixture) receptionist() Actor {
	return Actor{UserID: uuid.New(), Role: domain.RoleReceptionist, IP: "127.0.0.1"}
}

func (f *fixture) ownerActor() Actor {
	return Actor{UserID: f.ownerUID, Role: domain.RoleClient, ClientID: &f.owner.ID}
}

func (f *fixture) vetActor() Actor {
	return Actor{UserID: uuid.New(), Role: domain.RoleVeterinarian, VeterinarianID: &f.vet.ID}
}

// seedAppointment stores an appointment directly, bypassing the guard.
func (f *fixture) seedAppointment(start time.Time, mins int, status appointment.Status) *appointment.Appointment {
	a := &appointment.Appointment{
		ID:             uuid.New(),
		ClientID:       f.owner.ID,
		PetID:          f.pet.ID,
		VeterinarianID: f.vet.ID,
		ScheduledAt:    start,
		DurationMins:   mins,
		Status:         status,
		Location:       appointment.LocationClinic,
		Services: []appointment.ServiceLine{
			{ServiceID: f.exam.ID, ServiceName: f.exam.Name, Quantity: 1, UnitPriceCents: f.exam.PriceCents, DurationMins: mins},
		},
	}
	f.db.appointments[a.ID] = *a
	return a
}
