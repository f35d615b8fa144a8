package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/middleware"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

// UserHandler is the admin user management console.
type UserHandler struct {
	Users  repository.UserStore
	Tokens repository.TokenStore
	Log    *zap.Logger
}

func NewUserHandler(users repository.UserStore, tokens repository.TokenStore, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{Users: users, Tokens: tokens, Log: log.Named("users")}
}

type userPatchReq struct {
	Name   *string `json:"name" validate:"omitnil,min=1"`
	Phone  *string `json:"phone"`
	Role   *string `json:"role" validate:"omitnil,oneof=user admin"`
	Status *string `json:"status" validate:"omitnil,oneof=active suspended"`
}

// List: GET /v1/admin/users
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, viewUser(u))
	}
	return c.JSON(http.StatusOK, out)
}

// Update: PATCH /v1/admin/users/:id.  Suspending an account also revokes
// its refresh tokens.  Admins cannot suspend or demote themselves.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req userPatchReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if self, _ := middleware.UserID(c); self == id {
		if (req.Status != nil && *req.Status != model.UserActive) || (req.Role != nil && *req.Role != model.RoleAdmin) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot suspend or demote yourself"})
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.Update(ctx, id, model.UserPatch{Name: req.Name, Phone: req.Phone, Role: req.Role, Status: req.Status})
	if err != nil {
		return writeError(c, err)
	}
	if u.Status == model.UserSuspended {
		if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
			h.Log.Warn("revoke tokens of suspended user failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, viewUser(u))
}
