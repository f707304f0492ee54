package plan

import (
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"gymdesk/internal/audit"
)

// Plan is a purchasable membership tier. Once a membership references a plan
// it only changes through the audited update path.
type Plan struct {
	ID           int            `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	PriceCents   int64          `db:"price_cents" json:"price_cents"`
	DurationDays int            `db:"duration_days" json:"duration_days"`
	Benefits     pq.StringArray `db:"benefits" json:"benefits" swaggertype:"array,string"`
	Active       bool           `db:"active" json:"active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

func (p *Plan) snapshot() audit.Snapshot {
	return audit.Snapshot{
		{Name: "name", Value: p.Name},
		{Name: "price_cents", Value: strconv.FormatInt(p.PriceCents, 10)},
		{Name: "duration_days", Value: strconv.Itoa(p.DurationDays)},
		{Name: "benefits", Value: strings.Join(p.Benefits, ",")},
		{Name: "active", Value: strconv.FormatBool(p.Active)},
	}
}

type CreatePlanRequest struct {
	Name         string   `json:"name" binding:"required"`
	PriceCents   int64    `json:"price_cents" binding:"required,gt=0"`
	DurationDays int      `json:"duration_days" binding:"required,gt=0"`
	Benefits     []string `json:"benefits"`
	// Promotional plans are announced to all members on creation.
	Promotional bool `json:"promotional"`
}

type UpdatePlanRequest struct {
	Name         *string  `json:"name,omitempty"`
	PriceCents   *int64   `json:"price_cents,omitempty"`
	DurationDays *int     `json:"duration_days,omitempty"`
	Benefits     []string `json:"benefits,omitempty"`
}
