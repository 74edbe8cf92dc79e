package http

import (
	"time"

	"github.com/landsales/salesops/internal/app"
	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
)

type customerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"required,max=32"`
}

func (c customerRequest) toDomain() domain.Customer {
	return domain.Customer{Name: c.Name, Phone: c.Phone}
}

type reserveUnitRequest struct {
	Customer customerRequest `json:"customer"`
}

type submitBookingRequest struct {
	Customer   customerRequest `json:"customer"`
	VisitStart time.Time       `json:"visit_start" validate:"required"`
	VisitEnd   time.Time       `json:"visit_end" validate:"required,gtfield=VisitStart"`
}

type rejectBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type submitDepositRequest struct {
	Customer customerRequest `json:"customer"`
	Amount   decimal.Decimal `json:"amount"`
}

type createUnitRequest struct {
	BuildingID     string          `json:"building_id" validate:"max=64"`
	FloorID        string          `json:"floor_id" validate:"max=64"`
	Code           string          `json:"code" validate:"required,max=64"`
	Price          decimal.Decimal `json:"price"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Area           decimal.Decimal `json:"area"`
	Bedrooms       int             `json:"bedrooms" validate:"min=0"`
	Bathrooms      int             `json:"bathrooms" validate:"min=0"`
	Direction      string          `json:"direction" validate:"max=32"`
}

type updateCommissionRateRequest struct {
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

type customerResponse struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type holdResponse struct {
	ID         string           `json:"id"`
	Code       string           `json:"code"`
	Type       string           `json:"type"`
	UnitID     string           `json:"unit_id"`
	AgentID    string           `json:"agent_id"`
	Customer   customerResponse `json:"customer"`
	Status     string           `json:"status"`
	ExpiresAt  time.Time        `json:"expires_at"`
	VisitStart *time.Time       `json:"visit_start,omitempty"`
	VisitEnd   *time.Time       `json:"visit_end,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type commissionResponse struct {
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	ComputedAt time.Time       `json:"computed_at"`
}

type depositResponse struct {
	ID         string              `json:"id"`
	Code       string              `json:"code"`
	UnitID     string              `json:"unit_id"`
	AgentID    string              `json:"agent_id"`
	HoldID     string              `json:"hold_id,omitempty"`
	Customer   customerResponse    `json:"customer"`
	Amount     decimal.Decimal     `json:"amount"`
	Status     string              `json:"status"`
	Commission *commissionResponse `json:"commission,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

type unitResponse struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	BuildingID     string          `json:"building_id,omitempty"`
	FloorID        string          `json:"floor_id,omitempty"`
	Code           string          `json:"code"`
	Price          decimal.Decimal `json:"price"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Area           decimal.Decimal `json:"area"`
	Bedrooms       int             `json:"bedrooms"`
	Bathrooms      int             `json:"bathrooms"`
	Direction      string          `json:"direction,omitempty"`
	Status         string          `json:"status"`
	Version        int64           `json:"version"`
	RemovedAt      *time.Time      `json:"removed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type unitStatusResponse struct {
	Unit    unitResponse     `json:"unit"`
	Stage   string           `json:"stage"`
	Hold    *holdResponse    `json:"hold,omitempty"`
	Deposit *depositResponse `json:"deposit,omitempty"`
}

type statusChangeResponse struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   string    `json:"actor_id"`
	Reason    string    `json:"reason,omitempty"`
	Version   int64     `json:"version"`
	ChangedAt time.Time `json:"changed_at"`
}

type sweepResponse struct {
	Type    string         `json:"type"`
	Expired []holdResponse `json:"expired"`
	Skipped int            `json:"skipped"`
}

// presenter renders domain values with timestamps in the business timezone.
type presenter struct {
	loc *time.Location
}

func (p presenter) t(v time.Time) time.Time {
	return v.In(p.loc)
}

func (p presenter) tp(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := v.In(p.loc)
	return &out
}

func (p presenter) hold(h domain.Hold) holdResponse {
	resp := holdResponse{
		ID:        h.ID,
		Code:      h.Code,
		Type:      string(h.Type),
		UnitID:    h.UnitID,
		AgentID:   h.AgentID,
		Customer:  customerResponse{Name: h.Customer.Name, Phone: h.Customer.Phone},
		Status:    string(h.Status),
		ExpiresAt: p.t(h.ExpiresAt),
		CreatedAt: p.t(h.CreatedAt),
		UpdatedAt: p.t(h.UpdatedAt),
	}
	if h.Visit != nil {
		resp.VisitStart = p.tp(&h.Visit.Start)
		resp.VisitEnd = p.tp(&h.Visit.End)
	}
	return resp
}

func (p presenter) holds(in []domain.Hold) []holdResponse {
	out := make([]holdResponse, 0, len(in))
	for _, h := range in {
		out = append(out, p.hold(h))
	}
	return out
}

func (p presenter) commission(c domain.Commission) commissionResponse {
	return commissionResponse{Amount: c.Amount, Rate: c.Rate, ComputedAt: p.t(c.ComputedAt)}
}

func (p presenter) deposit(d domain.Deposit) depositResponse {
	resp := depositResponse{
		ID:        d.ID,
		Code:      d.Code,
		UnitID:    d.UnitID,
		AgentID:   d.AgentID,
		HoldID:    d.HoldID,
		Customer:  customerResponse{Name: d.Customer.Name, Phone: d.Customer.Phone},
		Amount:    d.Amount,
		Status:    string(d.Status),
		CreatedAt: p.t(d.CreatedAt),
		UpdatedAt: p.t(d.UpdatedAt),
	}
	if d.Commission != nil {
		c := p.commission(*d.Commission)
		resp.Commission = &c
	}
	return resp
}

func (p presenter) unit(u domain.Unit) unitResponse {
	return unitResponse{
		ID:             u.ID,
		ProjectID:      u.ProjectID,
		BuildingID:     u.BuildingID,
		FloorID:        u.FloorID,
		Code:           u.Code,
		Price:          u.Price,
		CommissionRate: u.CommissionRate,
		Area:           u.Area,
		Bedrooms:       u.Bedrooms,
		Bathrooms:      u.Bathrooms,
		Direction:      u.Direction,
		Status:         string(u.Status),
		Version:        u.Version,
		RemovedAt:      p.tp(u.RemovedAt),
		CreatedAt:      p.t(u.CreatedAt),
		UpdatedAt:      p.t(u.UpdatedAt),
	}
}

func (p presenter) unitStatus(v app.UnitStatusView) unitStatusResponse {
	resp := unitStatusResponse{
		Unit:  p.unit(v.Unit),
		Stage: string(v.Stage),
	}
	if v.Hold != nil {
		h := p.hold(*v.Hold)
		resp.Hold = &h
	}
	if v.Deposit != nil {
		d := p.deposit(*v.Deposit)
		resp.Deposit = &d
	}
	return resp
}

func (p presenter) history(in []domain.StatusChange) []statusChangeResponse {
	out := make([]statusChangeResponse, 0, len(in))
	for _, c := range in {
		out = append(out, statusChangeResponse{
			ID:        c.ID,
			From:      string(c.From),
			To:        string(c.To),
			ActorID:   c.ActorID,
			Reason:    c.Reason,
			Version:   c.Version,
			ChangedAt: p.t(c.ChangedAt),
		})
	}
	return out
}

func (p presenter) sweep(res app.SweepResult) sweepResponse {
	return sweepResponse{
		Type:    string(res.Type),
		Expired: p.holds(res.Expired),
		Skipped: res.Skipped,
	}
}
