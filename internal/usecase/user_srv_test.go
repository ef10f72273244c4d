package usecase

import (
	"context"
	"testing"
	"time"

	"event-ticketing/internal/data/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_DeleteBuyerTakesTickets(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.repo.User, f.repo.Event, zap.NewNop())
	admin := f.createUser(t, "root", entity.RoleAdmin)
	buyer := f.createUser(t, "buyer", entity.RoleCustomer)
	ev := f.freeEvent(t, 5)
	ctx := context.Background()

	_, err := f.issuer.Purchase(ctx, PurchaseInput{EventID: ev.ID, UserID: buyer.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, users.DeleteUser(ctx, Actor{UserID: admin.ID, Role: entity.RoleAdmin}, buyer.ID.String()))

	gone, err := f.repo.User.FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, 0, f.held(t, ev.ID))
}

func TestUserService_DeleteOrganizerRejected(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.repo.User, f.repo.Event, zap.NewNop())
	events := f.eventService()
	admin := f.createUser(t, "root", entity.RoleAdmin)
	organizer := f.createUser(t, "host", entity.RoleCustomer)
	adminActor := Actor{UserID: admin.ID, Role: entity.RoleAdmin}
	ctx := context.Background()

	ev := f.createEventFor(t, organizer.ID, entity.FreeSeating{Price: decimal.NewFromInt(500)}, 5, time.Now().Add(48*time.Hour))
	_, err := f.issuer.Purchase(ctx, PurchaseInput{EventID: ev.ID, UserID: admin.ID, Quantity: 1})
	require.NoError(t, err)

	err = users.DeleteUser(ctx, adminActor, organizer.ID.String())
	require.ErrorIs(t, err, ErrOrganizerHasEvents)
	assert.Equal(t, 409, asAppError(t, err).Status())

	still, err := f.repo.User.FindByID(ctx, organizer.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
	assert.Equal(t, 1, f.held(t, ev.ID), "other buyers keep their tickets")

	// a deleted event still names its organizer
	require.NoError(t, events.Delete(ctx, adminActor, ev.ID.String()))
	assert.ErrorIs(t, users.DeleteUser(ctx, adminActor, organizer.ID.String()), ErrOrganizerHasEvents)
}

func TestUserService_DeleteSelfForbidden(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.repo.User, f.repo.Event, zap.NewNop())
	admin := f.createUser(t, "root", entity.RoleAdmin)

	err := users.DeleteUser(context.Background(), Actor{UserID: admin.ID, Role: entity.RoleAdmin}, admin.ID.String())
	assert.Equal(t, "SELF_DELETE", asAppError(t, err).Code)
}
