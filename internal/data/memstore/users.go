package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"

	"github.com/google/uuid"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *entity.User) error {
	defer r.s.lock(ctx)()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return fmt.Errorf("create user %s: duplicate email or username", user.Email)
		}
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	defer r.s.lock(ctx)()

	if u, ok := r.s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	defer r.s.lock(ctx)()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	defer r.s.lock(ctx)()

	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *userRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	defer r.s.lock(ctx)()

	users := make([]*entity.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return page(users, limit, offset), nil
}

func (r *userRepo) CountAll(ctx context.Context) (int64, error) {
	defer r.s.lock(ctx)()
	return int64(len(r.s.users)), nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.users[id]; !ok {
		return fmt.Errorf("user %s not found", id)
	}
	if r.s.organizes(id) {
		return fmt.Errorf("delete user %s: %w", id, repository.ErrReferenced)
	}
	delete(r.s.users, id)
	for k, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, k)
		}
	}
	for k, t := range r.s.tickets {
		if t.UserID == id {
			delete(r.s.tickets, k)
		}
	}
	for k, p := range r.s.payments {
		if p.UserID == id {
			delete(r.s.payments, k)
		}
	}
	return nil
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(ctx context.Context, session *entity.Session) error {
	defer r.s.lock(ctx)()
	r.s.sessions[session.Token] = cloneSession(session)
	return nil
}

func (r *sessionRepo) FindValidSession(ctx context.Context, token string) (*entity.Session, error) {
	defer r.s.lock(ctx)()

	id, err := uuid.Parse(token)
	if err != nil {
		return nil, nil
	}
	sess, ok := r.s.sessions[id]
	if !ok || !sess.Valid(r.s.now()) {
		return nil, nil
	}
	return cloneSession(sess), nil
}

func (r *sessionRepo) Revoke(ctx context.Context, token string) error {
	defer r.s.lock(ctx)()

	id, err := uuid.Parse(token)
	if err != nil {
		return fmt.Errorf("session not found or already revoked")
	}
	sess, ok := r.s.sessions[id]
	if !ok || sess.RevokedAt != nil {
		return fmt.Errorf("session not found or already revoked")
	}
	now := r.s.now()
	sess.RevokedAt = &now
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
