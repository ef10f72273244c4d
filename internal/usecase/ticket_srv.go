package usecase

import (
	"context"
	"strings"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/internal/queue"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const searchLimit = 50

type TicketService interface {
	Purchase(ctx context.Context, actor Actor, req *request.PurchaseRequest) (*response.PurchaseResponse, error)
	ListMine(ctx context.Context, actor Actor, status string) ([]response.TicketView, error)
	Get(ctx context.Context, actor Actor, code string) (*response.TicketView, error)
	ChangeStatus(ctx context.Context, actor Actor, code string, req *request.ChangeStatusRequest) (*response.TicketView, error)
	Validate(ctx context.Context, actor Actor, req *request.ValidateTicketRequest) (*response.ScanResponse, error)
	Scan(ctx context.Context, actor Actor, req *request.ScanTicketRequest) (*response.ScanResponse, error)
	Check(ctx context.Context, code string) (*response.ScanResponse, error)
	RegenerateQR(ctx context.Context, actor Actor, code string) (*response.TicketView, error)
	UserStats(ctx context.Context, actor Actor) (*response.UserStatsResponse, error)

	// back office
	List(ctx context.Context, status string, page request.PaginatedRequest) (*response.PaginatedResponse[response.TicketView], error)
	Search(ctx context.Context, query string) ([]response.TicketView, error)
	Stats(ctx context.Context) (*response.TicketStatsResponse, error)
}

type ticketService struct {
	repo      *repository.Repository
	issuer    *TicketIssuer
	lifecycle *TicketLifecycle
	qr        QRIssuer
	qrTimeout time.Duration
	publisher queue.Publisher
	now       func() time.Time
	log       *zap.Logger
}

func NewTicketService(
	repo *repository.Repository,
	issuer *TicketIssuer,
	lifecycle *TicketLifecycle,
	qr QRIssuer,
	publisher queue.Publisher,
	config *utils.Config,
	log *zap.Logger,
) TicketService {
	qrTimeout := config.QR.Timeout
	if qrTimeout <= 0 {
		qrTimeout = 5 * time.Second
	}
	return &ticketService{
		repo:      repo,
		issuer:    issuer,
		lifecycle: lifecycle,
		qr:        qr,
		qrTimeout: qrTimeout,
		publisher: publisher,
		now:       time.Now,
		log:       log.With(zap.String("service", "ticket")),
	}
}

func seatRequests(selections []request.SeatSelection) []SeatRequest {
	if len(selections) == 0 {
		return nil
	}
	out := make([]SeatRequest, len(selections))
	for i, s := range selections {
		out[i] = SeatRequest{Zone: s.Zone, Row: s.Row, Number: s.Number}
	}
	return out
}

func (s *ticketService) Purchase(ctx context.Context, actor Actor, req *request.PurchaseRequest) (*response.PurchaseResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Purchase validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	// 2. Resolve event by id or code
	ev, err := findEvent(ctx, s.repo.Event, req.EventID)
	if err != nil {
		return nil, err
	}

	// 3. Issue
	tickets, err := s.issuer.Purchase(ctx, PurchaseInput{
		EventID:  ev.ID,
		UserID:   actor.UserID,
		Quantity: req.Quantity,
		Zone:     req.ZoneID,
		Seats:    seatRequests(req.SeatSelections),
	})
	if err != nil {
		return nil, err
	}

	publishIssued(ctx, s.publisher, s.log, tickets)

	resp := &response.PurchaseResponse{Total: decimal.Zero}
	for _, t := range tickets {
		resp.Tickets = append(resp.Tickets, response.TicketToView(t, ev))
		resp.Total = resp.Total.Add(t.Price)
	}
	return resp, nil
}

// publishIssued announces a batch. Delivery is best effort: the tickets are
// already committed.
func publishIssued(ctx context.Context, pub queue.Publisher, log *zap.Logger, tickets []*entity.Ticket) {
	if pub == nil || len(tickets) == 0 {
		return
	}

	msg := queue.TicketsIssued{
		EventID:   tickets[0].EventID,
		UserID:    tickets[0].UserID,
		PaymentID: tickets[0].PaymentID,
		IssuedAt:  tickets[0].PurchasedAt,
	}
	for _, t := range tickets {
		msg.TicketIDs = append(msg.TicketIDs, t.ID)
		msg.Codes = append(msg.Codes, t.Code)
	}

	if err := pub.PublishTicketsIssued(context.WithoutCancel(ctx), msg); err != nil {
		log.Warn("Failed to publish tickets issued", zap.Error(err), zap.String("event_id", msg.EventID.String()))
	}
}

// views renders tickets with their events, soft-deleted events included.
func (s *ticketService) views(ctx context.Context, tickets []*entity.Ticket) ([]response.TicketView, error) {
	ids := make([]uuid.UUID, 0, len(tickets))
	seen := make(map[uuid.UUID]bool)
	for _, t := range tickets {
		if !seen[t.EventID] {
			seen[t.EventID] = true
			ids = append(ids, t.EventID)
		}
	}

	events := map[uuid.UUID]*entity.Event{}
	if len(ids) > 0 {
		var err error
		events, err = s.repo.Event.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	}
	return response.TicketsToViews(tickets, events), nil
}

func (s *ticketService) ListMine(ctx context.Context, actor Actor, status string) ([]response.TicketView, error) {
	var filter entity.TicketStatus
	if status != "" {
		parsed, ok := entity.ParseTicketStatus(status)
		if !ok {
			return nil, ErrInvalidStatus.With("status", status)
		}
		filter = parsed
	}

	tickets, err := s.repo.Ticket.FindByUser(ctx, actor.UserID, filter)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tickets)
}

// load fetches a ticket by code together with its event.
func (s *ticketService) load(ctx context.Context, code string) (*entity.Ticket, *entity.Event, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	t, err := s.repo.Ticket.FindByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, ErrTicketNotFound.With("code", code)
	}

	events, err := s.repo.Event.FindByIDs(ctx, []uuid.UUID{t.EventID})
	if err != nil {
		return nil, nil, err
	}
	return t, events[t.EventID], nil
}

func (s *ticketService) Get(ctx context.Context, actor Actor, code string) (*response.TicketView, error) {
	t, ev, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(t, ev) {
		return nil, ErrTicketAccessDenied
	}

	view := response.TicketToView(t, ev)
	return &view, nil
}

func (s *ticketService) ChangeStatus(ctx context.Context, actor Actor, code string, req *request.ChangeStatusRequest) (*response.TicketView, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	to, ok := entity.ParseTicketStatus(req.Status)
	if !ok {
		return nil, ErrInvalidStatus.With("status", req.Status)
	}

	t, ev, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Transition(ctx, actor, t, ev, to); err != nil {
		return nil, err
	}

	view := response.TicketToView(t, ev)
	return &view, nil
}

// verify reports a ticket's validity to a scanning operator and optionally
// redeems it. Used and invalid tickets are a normal answer, not an error.
func (s *ticketService) verify(ctx context.Context, actor Actor, t *entity.Ticket, ev *entity.Event, redeem bool) (*response.ScanResponse, error) {
	if !actor.Staff(ev) {
		return nil, ErrNotOrganizer
	}

	resp := &response.ScanResponse{IsValid: t.Status == entity.TicketActive}
	switch {
	case !resp.IsValid:
		resp.Message = "Ticket is " + strings.ToLower(t.Status.Display())
	case redeem:
		err := s.lifecycle.Transition(ctx, actor, t, ev, entity.TicketUsed)
		if err != nil && !isCode(err, ErrInvalidTransition) {
			return nil, err
		}
		if err != nil {
			// redeemed concurrently; t now holds the fresh status
			resp.IsValid = false
			resp.Message = "Ticket is " + strings.ToLower(t.Status.Display())
		} else {
			resp.Redeemed = true
			resp.Message = "Ticket redeemed"
		}
	default:
		resp.Message = "Ticket is valid"
	}

	resp.Ticket = response.TicketToView(t, ev)
	return resp, nil
}

func (s *ticketService) Validate(ctx context.Context, actor Actor, req *request.ValidateTicketRequest) (*response.ScanResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	t, ev, err := s.load(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	return s.verify(ctx, actor, t, ev, req.Redeem)
}

func (s *ticketService) Scan(ctx context.Context, actor Actor, req *request.ScanTicketRequest) (*response.ScanResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	payload, err := s.qr.Parse(req.QRData)
	if err != nil {
		s.log.Warn("Rejected QR scan", zap.Error(err), zap.String("actor_id", actor.UserID.String()))
		return nil, err
	}

	t, ev, err := s.load(ctx, payload.Code)
	if err != nil {
		return nil, err
	}
	if t.ID != payload.TicketID || t.EventID != payload.EventID {
		s.log.Warn("QR payload does not match ticket", zap.String("code", payload.Code))
		return nil, ErrInvalidQR.With("reason", "ticket mismatch")
	}
	return s.verify(ctx, actor, t, ev, req.Redeem)
}

func (s *ticketService) Check(ctx context.Context, code string) (*response.ScanResponse, error) {
	t, ev, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}

	resp := &response.ScanResponse{
		Ticket:  response.TicketToView(t, ev),
		IsValid: t.Status == entity.TicketActive,
	}
	resp.Message = "Ticket is " + strings.ToLower(t.Status.Display())
	if resp.IsValid {
		resp.Message = "Ticket is valid"
	}
	return resp, nil
}

func (s *ticketService) RegenerateQR(ctx context.Context, actor Actor, code string) (*response.TicketView, error) {
	t, ev, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(t, ev) {
		return nil, ErrTicketAccessDenied
	}

	qrCtx, cancel := context.WithTimeout(ctx, s.qrTimeout)
	defer cancel()

	if _, err := s.qr.Issue(qrCtx, t); err != nil {
		s.log.Error("QR regeneration failed", zap.Error(err), zap.String("code", t.Code))
		return nil, ErrQRUnavailable.Wrap(err)
	}

	view := response.TicketToView(t, ev)
	return &view, nil
}

func (s *ticketService) List(ctx context.Context, status string, page request.PaginatedRequest) (*response.PaginatedResponse[response.TicketView], error) {
	var filter entity.TicketStatus
	if status != "" {
		parsed, ok := entity.ParseTicketStatus(status)
		if !ok {
			return nil, ErrInvalidStatus.With("status", status)
		}
		filter = parsed
	}

	tickets, err := s.repo.Ticket.FindAll(ctx, filter, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Ticket.CountAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	views, err := s.views(ctx, tickets)
	if err != nil {
		return nil, err
	}
	return response.NewPaginatedResponse(views, page.Page, page.Limit(), total), nil
}

func (s *ticketService) Search(ctx context.Context, query string) ([]response.TicketView, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, fieldError("q", "Minimum is 2")
	}

	tickets, err := s.repo.Ticket.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tickets)
}

func (s *ticketService) Stats(ctx context.Context) (*response.TicketStatsResponse, error) {
	now := s.now()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -11, 0)

	stats, err := s.repo.Ticket.Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	resp := response.StatsToResponse(stats)
	return &resp, nil
}

// UserStats summarizes what the actor bought and how many events they run.
// Invalidated tickets still count towards the amount spent.
func (s *ticketService) UserStats(ctx context.Context, actor Actor) (*response.UserStatsResponse, error) {
	tickets, err := s.repo.Ticket.FindByUser(ctx, actor.UserID, "")
	if err != nil {
		s.log.Error("Failed to load user tickets", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, err
	}
	events, err := s.repo.Event.ListByOrganizer(ctx, actor.UserID)
	if err != nil {
		s.log.Error("Failed to load organizer events", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, err
	}

	stats := &response.UserStatsResponse{
		TicketsCount: int64(len(tickets)),
		EventsCount:  int64(len(events)),
		TotalSpent:   decimal.Zero,
	}
	for _, t := range tickets {
		stats.TotalSpent = stats.TotalSpent.Add(t.Price)
		switch t.Status {
		case entity.TicketActive:
			stats.Active++
		case entity.TicketUsed:
			stats.Used++
		case entity.TicketInvalid:
			stats.Invalid++
		}
	}
	return stats, nil
}
