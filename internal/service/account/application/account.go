package application

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/database"
	"storefront/internal/service/account/domain"
	"storefront/internal/service/ratelimit"
)

// RegisterRequest 是注册用例的输入。
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	IP       string
}

// AccountService 负责注册和地址簿。
type AccountService struct {
	users     domain.UserRepository
	addresses domain.AddressRepository
	hasher    domain.PasswordHasher
	limiter   *ratelimit.Limiter
	tx        *database.Transactor
	tracer    trace.Tracer
}

func NewAccountService(users domain.UserRepository, addresses domain.AddressRepository, hasher domain.PasswordHasher, limiter *ratelimit.Limiter, tx *database.Transactor, tracer trace.Tracer) *AccountService {
	return &AccountService{users: users, addresses: addresses, hasher: hasher, limiter: limiter, tx: tx, tracer: tracer}
}

// Register 按 IP 限流后创建用户。
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "account.Register")
	defer span.End()

	if err := s.limiter.Check(ctx, ratelimit.ActionRegistration, req.IP); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	u := &domain.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        domain.NormalizeIdentity(req.Email),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AddAddress 保存地址。设为默认时先取消同类型的其他默认地址。
func (s *AccountService) AddAddress(ctx context.Context, a *domain.Address) error {
	ctx, span := s.tracer.Start(ctx, "account.AddAddress")
	defer span.End()

	if err := a.Validate(); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if a.IsDefault {
			if err := s.addresses.ClearDefault(ctx, a.UserID, a.Type); err != nil {
				return err
			}
		}
		return s.addresses.Create(ctx, a)
	})
}

// SetDefaultAddress 把一条地址设为该类型的默认地址。
func (s *AccountService) SetDefaultAddress(ctx context.Context, userID, addressID int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.addresses.FindOwned(ctx, userID, addressID)
		if err != nil {
			return err
		}
		if err := s.addresses.ClearDefault(ctx, userID, a.Type); err != nil {
			return err
		}
		return s.addresses.SetDefault(ctx, userID, addressID)
	})
}

func (s *AccountService) Addresses(ctx context.Context, userID int64) ([]*domain.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

// Address 返回属于 userID 的地址。
func (s *AccountService) Address(ctx context.Context, userID, addressID int64) (*domain.Address, error) {
	return s.addresses.FindOwned(ctx, userID, addressID)
}
