package usecase

import (
	"context"
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (f *fixture) ticketService() TicketService {
	cfg := &utils.Config{QR: utils.QRConfig{Timeout: time.Second}}
	return NewTicketService(f.repo, f.issuer, f.lifecycle, f.qr, nil, cfg, zap.NewNop())
}

func TestTicketService_PurchaseByEventCode(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)
	svc := f.ticketService()
	buyer := Actor{UserID: uuid.New(), Role: entity.RoleCustomer}

	resp, err := svc.Purchase(context.Background(), buyer, &request.PurchaseRequest{
		EventID:  ev.Code,
		Quantity: 2,
		ZoneID:   "Balcony",
	})
	require.NoError(t, err)
	require.Len(t, resp.Tickets, 2)
	assert.Equal(t, "800", resp.Total.String())
	assert.Equal(t, "Active", resp.Tickets[0].Status)
	assert.Equal(t, ev.Title, resp.Tickets[0].Event.Title)
	assert.Equal(t, "ready", resp.Tickets[0].QRStatus)
}

func TestTicketService_PurchaseValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService()

	_, err := svc.Purchase(context.Background(), Actor{UserID: uuid.New()}, &request.PurchaseRequest{Quantity: 0})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", asAppError(t, err).Code)
}

func TestTicketService_GetRequiresRelationship(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 5)
	svc := f.ticketService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), Role: entity.RoleCustomer}
	resp, err := svc.Purchase(ctx, owner, &request.PurchaseRequest{EventID: ev.ID.String(), Quantity: 1})
	require.NoError(t, err)
	code := resp.Tickets[0].Code

	_, err = svc.Get(ctx, owner, code)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, Actor{UserID: ev.OrganizerID}, code)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, Actor{UserID: uuid.New()}, code)
	assert.ErrorIs(t, err, ErrTicketAccessDenied)
	_, err = svc.Get(ctx, owner, "ZZZZZZ")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketService_ValidateAndRedeem(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 5)
	svc := f.ticketService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), Role: entity.RoleCustomer}
	organizer := Actor{UserID: ev.OrganizerID, Role: entity.RoleCustomer}
	resp, err := svc.Purchase(ctx, owner, &request.PurchaseRequest{EventID: ev.ID.String(), Quantity: 1})
	require.NoError(t, err)
	code := resp.Tickets[0].Code

	_, err = svc.Validate(ctx, owner, &request.ValidateTicketRequest{Code: code})
	assert.ErrorIs(t, err, ErrNotOrganizer)

	check, err := svc.Validate(ctx, organizer, &request.ValidateTicketRequest{Code: code})
	require.NoError(t, err)
	assert.True(t, check.IsValid)
	assert.False(t, check.Redeemed)

	redeemed, err := svc.Validate(ctx, organizer, &request.ValidateTicketRequest{Code: code, Redeem: true})
	require.NoError(t, err)
	assert.True(t, redeemed.IsValid)
	assert.True(t, redeemed.Redeemed)
	assert.Equal(t, "Used", redeemed.Ticket.Status)

	// second scan is a normal answer, not an error
	again, err := svc.Validate(ctx, organizer, &request.ValidateTicketRequest{Code: code, Redeem: true})
	require.NoError(t, err)
	assert.False(t, again.IsValid)
	assert.Equal(t, "Ticket is used", again.Message)
}

func TestTicketService_ScanVerifiesPayload(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 5)
	svc := f.ticketService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), Role: entity.RoleCustomer}
	admin := Actor{UserID: uuid.New(), Role: entity.RoleAdmin}
	resp, err := svc.Purchase(ctx, owner, &request.PurchaseRequest{EventID: ev.ID.String(), Quantity: 1})
	require.NoError(t, err)

	stored, err := f.repo.Ticket.FindByCode(ctx, resp.Tickets[0].Code)
	require.NoError(t, err)
	require.NotNil(t, stored.QRPayload)

	res, err := svc.Scan(ctx, admin, &request.ScanTicketRequest{QRData: *stored.QRPayload})
	require.NoError(t, err)
	assert.True(t, res.IsValid)

	forged := `{"ticketId":"` + stored.ID.String() + `","code":"` + stored.Code + `","sig":"00"}`
	_, err = svc.Scan(ctx, admin, &request.ScanTicketRequest{QRData: forged})
	assert.ErrorIs(t, err, ErrInvalidQR)

	_, err = svc.Scan(ctx, admin, &request.ScanTicketRequest{QRData: "not json"})
	assert.ErrorIs(t, err, ErrInvalidQR)
}

func TestTicketService_ChangeStatusAndList(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 5)
	svc := f.ticketService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), Role: entity.RoleCustomer}
	resp, err := svc.Purchase(ctx, owner, &request.PurchaseRequest{EventID: ev.ID.String(), Quantity: 2})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, owner, resp.Tickets[0].Code, &request.ChangeStatusRequest{Status: "Used"})
	assert.ErrorIs(t, err, ErrForbiddenTransition)

	view, err := svc.ChangeStatus(ctx, owner, resp.Tickets[0].Code, &request.ChangeStatusRequest{Status: "Invalid"})
	require.NoError(t, err)
	assert.Equal(t, "Invalid", view.Status)

	active, err := svc.ListMine(ctx, owner, "active")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := svc.ListMine(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListMine(ctx, owner, "refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTicketService_RegenerateQR(t *testing.T) {
	f := newFixture(t)
	f.artifacts.err = errBoom
	ev := f.freeEvent(t, 5)
	svc := f.ticketService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), Role: entity.RoleCustomer}
	resp, err := svc.Purchase(ctx, owner, &request.PurchaseRequest{EventID: ev.ID.String(), Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "generating", resp.Tickets[0].QRStatus)

	f.artifacts.err = nil
	view, err := svc.RegenerateQR(ctx, owner, resp.Tickets[0].Code)
	require.NoError(t, err)
	assert.Equal(t, "ready", view.QRStatus)
	require.NotNil(t, view.QRCodeURL)
}

func TestTicketService_SearchAndStats(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 5)
	svc := f.ticketService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), Role: entity.RoleCustomer}
	resp, err := svc.Purchase(ctx, owner, &request.PurchaseRequest{EventID: ev.ID.String(), Quantity: 3})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, owner, resp.Tickets[0].Code, &request.ChangeStatusRequest{Status: "Invalid"})
	require.NoError(t, err)

	_, err = svc.Search(ctx, "a")
	assert.Equal(t, "VALIDATION_FAILED", asAppError(t, err).Code)

	found, err := svc.Search(ctx, resp.Tickets[1].Code)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, resp.Tickets[1].Code, found[0].Code)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, "1000", stats.Revenue.String())
	assert.Contains(t, stats.ByStatus, response.StatusCount{Status: "Active", Count: 2})
	assert.Contains(t, stats.ByStatus, response.StatusCount{Status: "Invalid", Count: 1})
	require.Len(t, stats.MonthlyRevenue, 1)
	assert.Equal(t, int64(2), stats.MonthlyRevenue[0].Tickets)
}
