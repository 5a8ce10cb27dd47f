package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudi_pay/internal/apperr"
	"github.com/kudipay/kudi_pay/internal/ledger"
	"github.com/kudipay/kudi_pay/internal/respond"
)

// Handler exposes registration and login endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a user HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	DateOfBirth string `json:"dob"`
	BVN         string `json:"bvn"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName,omitempty"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	DateOfBirth string    `json:"dob,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserPayload(u ledger.User) userPayload {
	return userPayload{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Phone:       u.Phone,
		DateOfBirth: u.DateOfBirth,
		CreatedAt:   u.CreatedAt,
	}
}

// Register creates a user together with their wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Register(c.UserContext(), RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
		DateOfBirth: req.DateOfBirth,
		BVN:         req.BVN,
	})
	if err != nil {
		var domainErr *apperr.Error
		if errors.As(err, &domainErr) {
			return err
		}
		// Plain validation errors map to 400.
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return respond.Success(c, http.StatusCreated, "registration successful", fiber.Map{
		"user":     toUserPayload(result.User),
		"walletId": result.WalletID,
	})
}

// Login validates credentials and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	u, token, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return respond.SuccessWithToken(c, http.StatusOK, "login successful", fiber.Map{
		"user": toUserPayload(u),
	}, token)
}
