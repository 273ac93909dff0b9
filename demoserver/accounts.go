package demoserver

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Account is a registered user in the demo backend.
type Account struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Avatar       string `json:"avatar,omitempty"`
	Role         string `json:"role,omitempty"`
	PasswordHash string `json:"-"`
}

// accountRepo is the in-memory account store.
type accountRepo struct {
	byEmail map[string]*Account
	nextID  int
	lock    sync.RWMutex
}

func newAccountRepo() *accountRepo {
	return &accountRepo{
		byEmail: make(map[string]*Account),
		nextID:  1,
	}
}

func (r *accountRepo) Create(name, email, password, avatar, role string) (*Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, errors.New("Email is already in use")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[accountRepo.Create] HashPassword")
	}

	account := &Account{
		ID:           r.nextID,
		Name:         name,
		Email:        email,
		Avatar:       avatar,
		Role:         role,
		PasswordHash: hash,
	}
	r.nextID++
	r.byEmail[email] = account
	return account, nil
}

func (r *accountRepo) GetByEmail(email string) (*Account, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	account, ok := r.byEmail[email]
	return account, ok
}

func (r *accountRepo) GetByID(id int) (*Account, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, account := range r.byEmail {
		if account.ID == id {
			return account, true
		}
	}
	return nil, false
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
