package usecase

import (
	"context"
	"strings"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/apperror"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService interface {
	Create(ctx context.Context, actor Actor, req *request.CreateEventRequest) (*response.EventResponse, error)
	Get(ctx context.Context, ref string) (*response.EventResponse, error)
	List(ctx context.Context, req *request.ListEventsRequest) (*response.PaginatedResponse[response.EventResponse], error)
	TakenSeats(ctx context.Context, ref string) (*response.TakenSeatsResponse, error)
	ListByOrganizer(ctx context.Context, actor Actor, userID string) ([]response.EventResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type eventService struct {
	repo   *repository.Repository
	ledger *CapacityLedger
	codes  *CodeGenerator
	now    func() time.Time
	log    *zap.Logger
}

func NewEventService(repo *repository.Repository, ledger *CapacityLedger, codes *CodeGenerator, log *zap.Logger) EventService {
	return &eventService{
		repo:   repo,
		ledger: ledger,
		codes:  codes,
		now:    time.Now,
		log:    log.With(zap.String("service", "event")),
	}
}

// findEvent resolves ref as an internal id first, then as a public code.
func findEvent(ctx context.Context, events repository.EventRepository, ref string) (*entity.Event, error) {
	ref = strings.TrimSpace(ref)

	var (
		ev  *entity.Event
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		ev, err = events.FindByID(ctx, id)
	} else {
		ev, err = events.FindByCode(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound.With("event", ref)
	}
	return ev, nil
}

// buildSeating checks the seating union and returns it with the capacity it
// implies.
func buildSeating(req *request.CreateEventRequest, eventID uuid.UUID) (entity.Seating, int, error) {
	switch entity.SeatingType(req.Seating.Type) {
	case entity.SeatingFree:
		if req.Seating.Price == nil {
			return nil, 0, ErrInvalidSeating.With("seating.price", "required for free seating")
		}
		if req.Seating.Price.IsNegative() {
			return nil, 0, ErrInvalidSeating.With("seating.price", "must not be negative")
		}
		if len(req.Seating.Zones) > 0 {
			return nil, 0, ErrInvalidSeating.With("seating.zones", "not allowed for free seating")
		}
		if req.Capacity < 1 {
			return nil, 0, ErrInvalidSeating.With("capacity", "required for free seating")
		}
		return entity.FreeSeating{Price: *req.Seating.Price}, req.Capacity, nil

	case entity.SeatingZones:
		if len(req.Seating.Zones) == 0 {
			return nil, 0, ErrInvalidSeating.With("seating.zones", "at least one zone is required")
		}
		if req.Seating.Price != nil {
			return nil, 0, ErrInvalidSeating.With("seating.price", "set prices per zone")
		}

		names := make(map[string]bool, len(req.Seating.Zones))
		zones := make([]entity.Zone, 0, len(req.Seating.Zones))
		for i, z := range req.Seating.Zones {
			name := strings.TrimSpace(z.Name)
			key := strings.ToLower(name)
			if names[key] {
				return nil, 0, ErrInvalidSeating.With("seating.zones", "duplicate zone "+name)
			}
			names[key] = true
			if z.Price.IsNegative() {
				return nil, 0, ErrInvalidSeating.With("seating.zones", "negative price for zone "+name)
			}
			if z.Rows != nil && *z.Rows > z.Capacity {
				return nil, 0, ErrInvalidSeating.With("seating.zones", "more rows than seats in zone "+name)
			}

			zones = append(zones, entity.Zone{
				ID:       uuid.New(),
				EventID:  eventID,
				Name:     name,
				Price:    z.Price,
				Capacity: z.Capacity,
				Rows:     z.Rows,
				Position: i,
			})
		}

		seating := entity.ZonedSeating{Zones: zones}
		total := seating.Capacity()
		if req.Capacity != 0 && req.Capacity != total {
			return nil, 0, ErrInvalidSeating.
				With("capacity", "must equal the sum of zone capacities").
				With("zone_total", total)
		}
		return seating, total, nil
	}
	return nil, 0, ErrInvalidSeating.With("seating.type", req.Seating.Type)
}

func (s *eventService) Create(ctx context.Context, actor Actor, req *request.CreateEventRequest) (*response.EventResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create event validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	// 2. Date must be in the future
	startsAt, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, time.Local)
	if err != nil {
		return nil, fieldError("date", "Invalid date or time")
	}
	if !startsAt.After(s.now()) {
		return nil, fieldError("date", "Event must be in the future")
	}

	// 3. Seating
	id := uuid.New()
	seating, capacity, err := buildSeating(req, id)
	if err != nil {
		return nil, err
	}

	// 4. Public code
	code, err := s.codes.Generate(ctx, s.repo.Event.CodeExists)
	if err != nil {
		s.log.Error("Failed to generate event code", zap.Error(err))
		return nil, apperror.From(err)
	}

	now := s.now()
	ev := &entity.Event{
		Base: entity.Base{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Code:        code,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    entity.EventCategory(req.Category),
		StartsAt:    startsAt,
		StartTime:   req.Time,
		EndTime:     req.EndTime,
		Venue:       req.Venue,
		Address:     req.Address,
		City:        req.City,
		Country:     req.Country,
		Image:       req.Image,
		Capacity:    capacity,
		Seating:     seating,
		OrganizerID: actor.UserID,
	}

	if err := s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.Event.Create(ctx, ev)
	}); err != nil {
		s.log.Error("Failed to create event", zap.Error(err), zap.String("title", ev.Title))
		return nil, apperror.From(err)
	}

	s.log.Info("Event created",
		zap.String("event_id", ev.ID.String()),
		zap.String("code", ev.Code),
		zap.String("organizer_id", actor.UserID.String()),
		zap.Int("capacity", ev.Capacity),
	)

	available := ev.Capacity
	resp := response.EventToResponse(ev, &available, fullZones(ev))
	return &resp, nil
}

func fullZones(ev *entity.Event) map[string]int {
	zones := ev.Zones()
	if len(zones) == 0 {
		return nil
	}
	out := make(map[string]int, len(zones))
	for _, z := range zones {
		out[z.Name] = z.Capacity
	}
	return out
}

func (s *eventService) withAvailability(ctx context.Context, ev *entity.Event) (response.EventResponse, error) {
	remaining, err := s.ledger.Remaining(ctx, ev)
	if err != nil {
		return response.EventResponse{}, err
	}
	byZone, err := s.ledger.ZoneAvailability(ctx, ev)
	if err != nil {
		return response.EventResponse{}, err
	}
	return response.EventToResponse(ev, &remaining, byZone), nil
}

func (s *eventService) Get(ctx context.Context, ref string) (*response.EventResponse, error) {
	ev, err := findEvent(ctx, s.repo.Event, ref)
	if err != nil {
		return nil, err
	}

	resp, err := s.withAvailability(ctx, ev)
	if err != nil {
		s.log.Error("Failed to compute availability", zap.Error(err), zap.String("event_id", ev.ID.String()))
		return nil, apperror.From(err)
	}
	return &resp, nil
}

func (s *eventService) List(ctx context.Context, req *request.ListEventsRequest) (*response.PaginatedResponse[response.EventResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	now := s.now()
	events, err := s.repo.Event.ListUpcoming(ctx, req.Category, now, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list events", zap.Error(err))
		return nil, apperror.From(err)
	}
	total, err := s.repo.Event.CountUpcoming(ctx, req.Category, now)
	if err != nil {
		s.log.Error("Failed to count events", zap.Error(err))
		return nil, apperror.From(err)
	}

	items := make([]response.EventResponse, 0, len(events))
	for _, ev := range events {
		item, err := s.withAvailability(ctx, ev)
		if err != nil {
			return nil, apperror.From(err)
		}
		items = append(items, item)
	}

	return response.NewPaginatedResponse(items, req.Page, req.Limit(), total), nil
}

func (s *eventService) TakenSeats(ctx context.Context, ref string) (*response.TakenSeatsResponse, error) {
	ev, err := findEvent(ctx, s.repo.Event, ref)
	if err != nil {
		return nil, err
	}

	seats, err := s.repo.Ticket.FindHeldSeats(ctx, ev.ID)
	if err != nil {
		return nil, apperror.From(err)
	}
	if seats == nil {
		seats = []entity.SeatAssignment{}
	}
	return &response.TakenSeatsResponse{EventID: ev.ID.String(), Seats: seats}, nil
}

// ListByOrganizer returns every live event the user organizes, past ones
// included. Only the user and admins may look.
func (s *eventService) ListByOrganizer(ctx context.Context, actor Actor, userID string) ([]response.EventResponse, error) {
	organizerID, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidID.With("id", userID)
	}
	if organizerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperror.Forbidden("NOT_OWNER", "You can only list your own events")
	}

	events, err := s.repo.Event.ListByOrganizer(ctx, organizerID)
	if err != nil {
		s.log.Error("Failed to list organizer events", zap.Error(err), zap.String("organizer_id", userID))
		return nil, apperror.From(err)
	}

	items := make([]response.EventResponse, 0, len(events))
	for _, ev := range events {
		item, err := s.withAvailability(ctx, ev)
		if err != nil {
			return nil, apperror.From(err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Delete soft-deletes the event and invalidates its tickets in one
// transaction.
func (s *eventService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return apperror.Forbidden("ADMIN_ONLY", "Only administrators can delete events")
	}

	eventID, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidID.With("id", id)
	}

	var invalidated int64
	err = s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		ev, err := s.repo.Event.FindByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev == nil {
			return ErrEventNotFound
		}
		if err := s.repo.Event.SoftDelete(ctx, eventID); err != nil {
			return err
		}
		invalidated, err = s.repo.Ticket.InvalidateByEvent(ctx, eventID)
		return err
	})
	if err != nil {
		if !apperror.IsKind(err, apperror.KindNotFound) {
			s.log.Error("Failed to delete event", zap.Error(err), zap.String("event_id", id))
		}
		return apperror.From(err)
	}

	s.log.Info("Event deleted",
		zap.String("event_id", id),
		zap.Int64("tickets_invalidated", invalidated),
		zap.String("admin_id", actor.UserID.String()),
	)
	return nil
}
