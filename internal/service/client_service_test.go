package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestCreateClient(t *testing.T) {
	f := newFixture()
	svc := NewClientService(fakeClients{f.db}, fakePets{f.db}, fakeAppointments{f.db}, identityPhones{}, newTestAudit(t, f.db), zap.NewNop())
	ctx := context.Background()

	c, err := svc.Create(ctx, &client.CreateClientCommand{Name: " Luis ", Email: "LUIS@example.com", Phone: "+52 33 1111 2222"}, f.receptionist())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Luis" || c.Email != "luis@example.com" || c.Phone != "+523311112222" || c.PublicID == uuid.Nil {
		t.Errorf("client = %+v", c)
	}

	if _, err := svc.Create(ctx, &client.CreateClientCommand{Name: "Ana", Email: "ana@example.com"}, f.receptionist()); !errors.Is(err, client.ErrClientAlreadyExists) {
		t.Errorf("duplicate email: err = %v", err)
	}
	var verr *ValidationError
	if _, err := svc.Create(ctx, &client.CreateClientCommand{Email: "not-an-email", Phone: "12"}, f.receptionist()); !errors.As(err, &verr) || len(verr.Fields) != 3 {
		t.Errorf("invalid: err = %v", err)
	}
	if _, err := svc.Create(ctx, &client.CreateClientCommand{Name: "X", Email: "x@example.com"}, f.ownerActor()); !errors.Is(err, ErrForbidden) {
		t.Errorf("client role: err = %v", err)
	}
}

func TestClientDetailAndDelete(t *testing.T) {
	f := newFixture()
	svc := NewClientService(fakeClients{f.db}, fakePets{f.db}, fakeAppointments{f.db}, identityPhones{}, newTestAudit(t, f.db), zap.NewNop())
	ctx := context.Background()
	f.seedAppointment(on14th(10, 0), 30, appointment.StatusPending)

	d, err := svc.Get(ctx, f.owner.ID, f.ownerActor())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(d.Pets) != 1 || len(d.RecentAppointments) != 1 {
		t.Errorf("detail: %d pets %d appointments", len(d.Pets), len(d.RecentAppointments))
	}
	otherID := uuid.New()
	stranger := f.ownerActor()
	stranger.ClientID = &otherID
	if _, err := svc.Get(ctx, f.owner.ID, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger: err = %v", err)
	}

	if err := svc.Delete(ctx, f.owner.ID, admin()); !errors.Is(err, client.ErrClientHasPets) {
		t.Errorf("delete with pets: err = %v", err)
	}
}

func TestPetLifecycle(t *testing.T) {
	f := newFixture()
	svc := NewPetService(fakePets{f.db}, fakeClients{f.db}, fakeAppointments{f.db}, fakeRecords{f.db}, newTestAudit(t, f.db), zap.NewNop())
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	born := time.Date(2027, 1, 20, 0, 0, 0, 0, time.UTC)
	p, err := svc.Create(ctx, &pet.CreatePetCommand{ClientID: f.owner.ID, Name: "Milo", Species: " Cat ", BirthDate: &born}, f.ownerActor())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Species != "cat" || p.Sex != pet.SexUnknown {
		t.Errorf("pet = %s %s", p.Species, p.Sex)
	}

	d, err := svc.Get(ctx, p.ID, f.ownerActor())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Age != "3 years 1 month" {
		t.Errorf("Age = %q", d.Age)
	}

	future := testNow.AddDate(0, 1, 0)
	var verr *ValidationError
	if _, err := svc.Create(ctx, &pet.CreatePetCommand{ClientID: f.owner.ID, Name: "Baby", Species: "dog", BirthDate: &future, Sex: "x"}, f.receptionist()); !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Errorf("invalid pet: err = %v", err)
	}

	f.seedAppointment(on14th(10, 0), 30, appointment.StatusPending)
	if err := svc.Delete(ctx, f.pet.ID, f.receptionist()); !errors.Is(err, pet.ErrPetHasAppointments) {
		t.Errorf("delete with upcoming: err = %v", err)
	}
	if err := svc.Delete(ctx, p.ID, f.receptionist()); err != nil {
		t.Errorf("delete free pet: %v", err)
	}
}

func TestQRLookup(t *testing.T) {
	f := newFixture()
	svc := NewQRService(fakePets{f.db}, fakeClients{f.db}, fakeAppointments{f.db}, "https://clinic.test")
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()
	f.seedAppointment(on14th(10, 0), 30, appointment.StatusConfirmed)
	f.seedAppointment(testNow.AddDate(0, 0, -7), 30, appointment.StatusAttended)

	code, err := svc.PetCode(ctx, f.pet.ID, f.ownerActor())
	if err != nil {
		t.Fatalf("PetCode: %v", err)
	}
	if want := "https://clinic.test/qr/lookup/" + f.pet.PublicID.String() + "?type=pet"; code.URL != want {
		t.Errorf("URL = %q, want %q", code.URL, want)
	}
	if len(code.PNG) < 8 || string(code.PNG[1:4]) != "PNG" {
		t.Error("not a PNG")
	}

	card, err := svc.Lookup(ctx, LookupPet, f.pet.PublicID)
	if err != nil {
		t.Fatalf("Lookup pet: %v", err)
	}
	if pc := card.(*PetCard); pc.Name != "Luna" || pc.OwnerName != "Ana Torres" {
		t.Errorf("pet card = %+v", pc)
	}

	card, err = svc.Lookup(ctx, LookupClient, f.owner.PublicID)
	if err != nil {
		t.Fatalf("Lookup client: %v", err)
	}
	cc := card.(*ClientCard)
	if cc.RecentAppointments != 2 || cc.NextAppointment == nil || !cc.NextAppointment.Equal(on14th(10, 0)) {
		t.Errorf("client card = %+v", cc)
	}

	if _, err := svc.Lookup(ctx, "vet", uuid.New()); !errors.Is(err, ErrInvalidLookupType) {
		t.Errorf("bad type: err = %v", err)
	}
	if _, err := svc.Lookup(ctx, LookupPet, uuid.New()); !errors.Is(err, pet.ErrPetNotFound) {
		t.Errorf("unknown pet: err = %v", err)
	}
}
