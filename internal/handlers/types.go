package handlers

import (
	"github.com/shopspring/decimal"

	"gym_backoffice_echo/internal/models"
)

const dateLayout = "2006-01-02"

type LoginRequest struct {
	DNI      int64  `json:"dni" validate:"required,gt=0"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

type UserRequest struct {
	Username string          `json:"username" validate:"required,max=255"`
	DNI      int64           `json:"dni" validate:"required,gt=0"`
	Password string          `json:"password" validate:"omitempty,min=6"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMINISTRATIVO ENTRENADOR"`
}

type SocioRequest struct {
	Surname   string `json:"apellido" validate:"required,max=255"`
	GivenName string `json:"nombre" validate:"required,max=255"`
	BirthDate string `json:"fechaNacimiento" validate:"required,datetime=2006-01-02"`
	TrainerID *uint  `json:"trainerId"`
}

type ShareRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	NumberDays int             `json:"numberDays" validate:"gte=0"`
	QuoteDate  string          `json:"quoteDate" validate:"required,datetime=2006-01-02"`
}

type GeneratePaymentsRequest struct {
	Year     int    `json:"year" validate:"required,gte=1"`
	Month    int    `json:"month" validate:"required,min=1,max=12"`
	ShareID  uint   `json:"shareId" validate:"required"`
	SocioIDs []uint `json:"socioIds"`
}

type ReassignShareRequest struct {
	ShareID uint `json:"shareId" validate:"required"`
}
