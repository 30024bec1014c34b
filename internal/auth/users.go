package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/dessert-shop/internal/infrastructure/store"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrInvalidRole        = errors.New("role must be customer, shop or delivery")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Roles accepted at registration.
const (
	RoleCustomer = "customer"
	RoleShop     = "shop"
	RoleDelivery = "delivery"
)

// User is an account document. The password hash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Registry stores accounts in the users collection and checks credentials.
type Registry struct {
	store store.Store
}

func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

// Register creates an account. Emails are unique; the role decides which
// dashboard the account drives.
func (r *Registry) Register(ctx context.Context, email, password, name, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if role != RoleCustomer && role != RoleShop && role != RoleDelivery {
		return nil, ErrInvalidRole
	}

	if _, err := r.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	id, err := r.store.Create(ctx, store.CollectionUsers, u)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	u.ID = id
	return u, nil
}

// Authenticate checks the credentials and returns the account. The error is
// the same whether the email or the password is wrong.
func (r *Registry) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := r.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (r *Registry) FindByEmail(ctx context.Context, email string) (*User, error) {
	docs, err := r.store.Query(ctx, store.CollectionUsers, store.Filter{Field: "email", Value: email})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	return decodeUser(docs[0])
}

func (r *Registry) Get(ctx context.Context, id string) (*User, error) {
	doc, err := r.store.Get(ctx, store.CollectionUsers, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(doc)
}

func decodeUser(doc store.Document) (*User, error) {
	u := &User{}
	if err := doc.Decode(u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", doc.ID, err)
	}
	u.ID = doc.ID
	return u, nil
}
