package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T, db *memDB) (*AuthService, *auth.JWTManager) {
	t.Helper()
	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "vetclinic-test",
	})
	svc := NewAuthService(fakeUsers{db}, fakeClients{db}, fakeVets{db}, fakeTx{db}, identityPhones{}, jwt, newTestAudit(t, db), zap.NewNop())
	svc.bcryptCost = bcrypt.MinCost
	return svc, jwt
}

func TestRegisterLinksUserAndClient(t *testing.T) {
	db := newMemDB()
	svc, jwt := newAuthService(t, db)

	pair, err := svc.Register(context.Background(), &RegisterCommand{
		Name:     "Ana Torres",
		Email:    " Ana@Example.com ",
		Phone:    "+52 55 1234 5678",
		Password: "s3cure-pass",
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	claims, err := jwt.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Role != domain.RoleClient || claims.ClientID == nil {
		t.Fatalf("claims = %+v", claims)
	}
	c, ok := db.clients[*claims.ClientID]
	if !ok {
		t.Fatal("client profile not created")
	}
	if c.UserID == nil || *c.UserID != claims.UserID {
		t.Errorf("client.UserID = %v, want %v", c.UserID, claims.UserID)
	}
	if c.Email != "ana@example.com" || c.Phone != "+525512345678" {
		t.Errorf("contact = %q %q", c.Email, c.Phone)
	}
	if c.PublicID == uuid.Nil {
		t.Error("public id not set")
	}

	_, err = svc.Register(context.Background(), &RegisterCommand{Name: "Dup", Email: "ana@example.com", Password: "another-pass"}, "")
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("duplicate: err = %v", err)
	}
	if len(db.users) != 1 || len(db.clients) != 1 {
		t.Errorf("users = %d clients = %d after duplicate", len(db.users), len(db.clients))
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService(t, newMemDB())
	_, err := svc.Register(context.Background(), &RegisterCommand{Email: "nope", Phone: "123", Password: "short"}, "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(verr.Fields) != 4 {
		t.Errorf("fields = %v, want name, email, phone and password", verr.Fields)
	}
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	db := newMemDB()
	svc, _ := newAuthService(t, db)
	ctx := context.Background()
	if _, err := svc.Register(ctx, &RegisterCommand{Name: "Ana", Email: "ana@example.com", Password: "s3cure-pass"}, ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, "ana@example.com", "s3cure-pass", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "whatever", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v", err)
	}

	for i := 0; i < maxFailedAttempts; i++ {
		if _, err := svc.Login(ctx, "ana@example.com", "wrong-pass", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
	if _, err := svc.Login(ctx, "ana@example.com", "s3cure-pass", ""); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("after lockout: err = %v, want ErrAccountLocked", err)
	}
}

func TestRefreshAndChangePassword(t *testing.T) {
	db := newMemDB()
	svc, jwt := newAuthService(t, db)
	ctx := context.Background()
	pair, err := svc.Register(ctx, &RegisterCommand{Name: "Ana", Email: "ana@example.com", Password: "s3cure-pass"}, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.RefreshToken(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("access token as refresh: err = %v", err)
	}
	refreshed, err := svc.RefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	claims, _ := jwt.ValidateAccessToken(refreshed.AccessToken)

	if err := svc.ChangePassword(ctx, claims.UserID, "bad-current", "new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong current: err = %v", err)
	}
	if err := svc.ChangePassword(ctx, claims.UserID, "s3cure-pass", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak: err = %v", err)
	}
	if err := svc.ChangePassword(ctx, claims.UserID, "s3cure-pass", "new-password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, "ana@example.com", "new-password", ""); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestCreateUserLinksVeterinarian(t *testing.T) {
	f := newFixture()
	svc, _ := newAuthService(t, f.db)
	ctx := context.Background()

	cmd := &CreateUserCommand{
		Name:           "Dr. Ruiz",
		Email:          "ruiz@clinic.test",
		Password:       "vet-password",
		Role:           domain.RoleVeterinarian,
		VeterinarianID: &f.vet.ID,
	}
	if _, err := svc.CreateUser(ctx, cmd, f.receptionist()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("receptionist: err = %v", err)
	}
	profile, err := svc.CreateUser(ctx, cmd, admin())
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	v := f.db.vets[f.vet.ID]
	if v.UserID == nil || *v.UserID != profile.ID {
		t.Errorf("vet.UserID = %v, want %v", v.UserID, profile.ID)
	}

	bad := &CreateUserCommand{Name: "X", Email: "x@clinic.test", Password: "long-enough", Role: domain.RoleReceptionist, ClientID: &f.owner.ID}
	var verr *ValidationError
	if _, err := svc.CreateUser(ctx, bad, admin()); !errors.As(err, &verr) {
		t.Errorf("client link on receptionist: err = %v", err)
	}
}
