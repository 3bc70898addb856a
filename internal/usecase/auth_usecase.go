package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// アクセストークンの発行。実装はmainでJWTを組む。
type TokenIssuer interface {
	Issue(userID int64, role model.Role, now time.Time) (token string, expiresAt time.Time, err error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash string, plain string) bool
}

type BcryptPasswordHasher struct {
	cost int
}

func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost: cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptPasswordHasher) Verify(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

type AuthUsecase struct {
	tx     repo.TransactionManager
	hasher PasswordHasher
	issuer TokenIssuer
}

func NewAuthUsecase(tx repo.TransactionManager, hasher PasswordHasher, issuer TokenIssuer) *AuthUsecase {
	return &AuthUsecase{tx: tx, hasher: hasher, issuer: issuer}
}

type RegisterInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthOutput struct {
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Register はユーザーと、そのユーザーのカートを同一トランザクションで作る。
// カートはここ以外では作られない（1ユーザー1カート）。
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (AuthOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if len(in.Password) < 8 {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "password too short")
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var created model.User

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Users().FindByEmail(ctx, email); err == nil {
			return NewHTTPError(http.StatusConflict, "email already registered")
		} else if err != repo.ErrNotFound {
			return err
		}

		user := model.User{
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleUser,
			IsActive:     true,
		}
		if err := r.Users().Create(ctx, &user); err != nil {
			return err
		}

		if _, err := r.Carts().Create(ctx, model.Cart{UserID: user.ID}); err != nil {
			return err
		}

		created = user
		return nil
	})

	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return AuthOutput{}, he
		}
		if err == repo.ErrConflict {
			return AuthOutput{}, NewHTTPError(http.StatusConflict, "email already registered")
		}
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return AuthOutput{UserID: created.ID, Email: created.Email}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (AuthOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "invalid credentials")
	}

	var out AuthOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByEmail(ctx, email)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		if err != nil {
			return err
		}
		if !user.IsActive || !u.hasher.Verify(user.PasswordHash, in.Password) {
			return NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}

		token, expiresAt, err := u.issuer.Issue(user.ID, user.Role, time.Now())
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		out = AuthOutput{
			UserID:      user.ID,
			Email:       user.Email,
			AccessToken: token,
			ExpiresAt:   expiresAt,
		}
		return nil
	})

	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return AuthOutput{}, he
		}
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}
