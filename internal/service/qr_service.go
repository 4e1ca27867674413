package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

var ErrInvalidLookupType = errors.New("lookup type must be pet or client")

type LookupType string

const (
	LookupPet    LookupType = "pet"
	LookupClient LookupType = "client"
)

const qrSize = 256

type QRService struct {
	pets         pet.Repository
	clients      client.Repository
	appointments appointment.Repository
	baseURL      string
	now          func() time.Time
}

func NewQRService(pets pet.Repository, clients client.Repository, appointments appointment.Repository, baseURL string) *QRService {
	return &QRService{
		pets:         pets,
		clients:      clients,
		appointments: appointments,
		baseURL:      baseURL,
		now:          time.Now,
	}
}

type QRCode struct {
	URL string `json:"url"`
	PNG []byte `json:"png"`
}

func (s *QRService) lookupURL(t LookupType, publicID uuid.UUID) string {
	return fmt.Sprintf("%s/qr/lookup/%s?type=%s", s.baseURL, publicID, t)
}

func encode(url string) (*QRCode, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	return &QRCode{URL: url, PNG: png}, nil
}

func (s *QRService) PetCode(ctx context.Context, petID uuid.UUID, actor Actor) (*QRCode, error) {
	p, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	if actor.IsClient() && !actor.OwnsClient(p.ClientID) {
		return nil, ErrForbidden
	}
	return encode(s.lookupURL(LookupPet, p.PublicID))
}

func (s *QRService) ClientCode(ctx context.Context, clientID uuid.UUID, actor Actor) (*QRCode, error) {
	if actor.IsClient() && !actor.OwnsClient(clientID) {
		return nil, ErrForbidden
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return encode(s.lookupURL(LookupClient, c.PublicID))
}

// PetCard is what a scanned pet tag reveals: enough to reunite the pet with
// its owner, nothing clinical.
type PetCard struct {
	Name       string `json:"name"`
	Species    string `json:"species"`
	Breed      string `json:"breed,omitempty"`
	Age        string `json:"age,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
	OwnerName  string `json:"owner_name"`
	OwnerPhone string `json:"owner_phone,omitempty"`
}

type ClientCard struct {
	Name               string     `json:"name"`
	Pets               []string   `json:"pets"`
	NextAppointment    *time.Time `json:"next_appointment,omitempty"`
	RecentAppointments int        `json:"recent_appointments"`
}

// Lookup resolves a public identifier printed in a QR code. It is served
// without authentication.
func (s *QRService) Lookup(ctx context.Context, t LookupType, publicID uuid.UUID) (any, error) {
	switch t {
	case LookupPet:
		p, err := s.pets.GetByPublicID(ctx, publicID)
		if err != nil {
			return nil, err
		}
		owner, err := s.clients.GetByID(ctx, p.ClientID)
		if err != nil {
			return nil, err
		}
		return &PetCard{
			Name:       p.Name,
			Species:    p.Species,
			Breed:      p.Breed,
			Age:        p.AgeLabel(s.now()),
			PhotoURL:   p.PhotoURL,
			OwnerName:  owner.Name,
			OwnerPhone: owner.Phone,
		}, nil
	case LookupClient:
		c, err := s.clients.GetByPublicID(ctx, publicID)
		if err != nil {
			return nil, err
		}
		pets, err := s.pets.ListByClient(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		card := &ClientCard{Name: c.Name, Pets: make([]string, 0, len(pets))}
		for _, p := range pets {
			card.Pets = append(card.Pets, p.Name)
		}
		recent, err := s.appointments.LatestForClient(ctx, c.ID, recentItems)
		if err != nil {
			return nil, err
		}
		card.RecentAppointments = len(recent)
		now := s.now()
		for _, a := range recent {
			if a.Status.OccupiesSchedule() && a.Status != appointment.StatusAttended && a.ScheduledAt.After(now) {
				if card.NextAppointment == nil || a.ScheduledAt.Before(*card.NextAppointment) {
					at := a.ScheduledAt
					card.NextAppointment = &at
				}
			}
		}
		return card, nil
	}
	return nil, ErrInvalidLookupType
}
