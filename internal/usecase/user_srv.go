package usecase

import (
	"context"
	"errors"

	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/apperror"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	GetAllUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error)
	DeleteUser(ctx context.Context, actor Actor, userID string) error
}

type userService struct {
	userRepo  repository.UserRepository
	eventRepo repository.EventRepository
	log       *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, eventRepo repository.EventRepository, log *zap.Logger) UserService {
	return &userService{
		userRepo:  userRepo,
		eventRepo: eventRepo,
		log:       log.With(zap.String("service", "user")),
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := us.userRepo.FindByID(ctx, userID)
	if err != nil {
		us.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, apperror.From(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) GetAllUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	// Set defaults
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = 10
	}
	if req.PerPage > 100 {
		req.PerPage = 100
	}

	users, err := us.userRepo.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		us.log.Error("Failed to get all users",
			zap.Error(err),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, apperror.From(err)
	}

	total, err := us.userRepo.CountAll(ctx)
	if err != nil {
		us.log.Error("Failed to count users", zap.Error(err))
		return nil, apperror.From(err)
	}

	userResponses := make([]response.UserResponse, len(users))
	for i, user := range users {
		userResponses[i] = response.UserToResponse(user)
	}

	us.log.Debug("Users retrieved",
		zap.Int("count", len(users)),
		zap.Int64("total", total),
		zap.Int("page", req.Page),
		zap.Int("total_pages", utils.CalculateTotalPages(total, req.PerPage)),
	)

	return response.NewPaginatedResponse(userResponses, req.Page, req.PerPage, total), nil
}

// DeleteUser removes the account. Its tickets go with it. Organizers are
// refused while any event, live or deleted, still names them.
func (us *userService) DeleteUser(ctx context.Context, actor Actor, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return ErrInvalidID.With("id", userID)
	}
	if id == actor.UserID {
		return apperror.Forbidden("SELF_DELETE", "You cannot delete your own account here")
	}

	user, err := us.userRepo.FindByID(ctx, id)
	if err != nil {
		us.log.Error("Failed to get user for delete", zap.Error(err), zap.String("id", userID))
		return apperror.From(err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	organized, err := us.eventRepo.HasOrganized(ctx, id)
	if err != nil {
		us.log.Error("Failed to check organizer events", zap.Error(err), zap.String("id", userID))
		return apperror.From(err)
	}
	if organized {
		return ErrOrganizerHasEvents
	}

	if err := us.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return ErrOrganizerHasEvents
		}
		us.log.Error("Failed to delete user", zap.Error(err), zap.String("id", userID))
		return apperror.From(err)
	}

	us.log.Info("User deleted", zap.String("user_id", id.String()), zap.String("email", user.Email))
	return nil
}
