package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/config"
	"github.com/iliyamo/speaknote/internal/repository"
	"github.com/iliyamo/speaknote/internal/utils"
)

// UserHandler serves registration, login and the caller's profile.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
}

func (req *credentialsReq) validate() error {
	req.Username = strings.TrimSpace(req.Username)
	fields := map[string]string{}
	if msg := validateUsername(req.Username); msg != "" {
		fields["username"] = msg
	}
	if msg := validatePassword(req.Password); msg != "" {
		fields["password"] = msg
	}
	if len(fields) > 0 {
		return apierr.Validation("invalid credentials format", fields)
	}
	return nil
}

// Register creates the user and returns a token right away.
func (h *UserHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid body", nil)
	}
	if err := req.validate(); err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	res, err := h.Users.Create(ctx, req.Username, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return apierr.Conflict("username already exists")
		}
		return apierr.Internal(err)
	}
	return h.respondWithToken(c, http.StatusCreated, res.InsertedID, req.Username)
}

// Login verifies the password. Unknown user and wrong password share one
// answer.
func (h *UserHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid body", nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return apierr.Validation("username/password required", nil)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierr.Unauthenticated("invalid username or password")
		}
		return apierr.Internal(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return apierr.Unauthenticated("invalid username or password")
	}
	return h.respondWithToken(c, http.StatusOK, u.ID, u.Username)
}

func (h *UserHandler) respondWithToken(c echo.Context, status int, userID int64, username string) error {
	tok, err := utils.IssueToken(h.Cfg.JWTSecret, userID, h.Cfg.TokenTTL)
	if err != nil {
		return apierr.Internal(err)
	}
	return c.JSON(status, authResp{Token: tok.Token, ExpiresAt: tok.Exp, UserID: userID, Username: username})
}

// Me returns the caller's profile.
func (h *UserHandler) Me(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierr.NotFound("user not found")
		}
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": u.ID, "username": u.Username, "created_at": u.CreatedAt})
}

var userUpdatable = map[string]bool{"username": true, "password": true}

// UpdateMe changes the caller's username and/or password.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	body, err := decodeObject(c)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return apierr.Validation("no updates provided", nil)
	}

	var (
		upd    repository.UserUpdate
		fields = map[string]string{}
	)
	for key, raw := range body {
		if !userUpdatable[key] {
			fields[key] = "not an updatable field"
			continue
		}
		s, ok := rawString(raw)
		if !ok {
			fields[key] = "must be a string"
			continue
		}
		switch key {
		case "username":
			s = strings.TrimSpace(s)
			if msg := validateUsername(s); msg != "" {
				fields[key] = msg
				continue
			}
			upd.Username = &s
		case "password":
			if msg := validatePassword(s); msg != "" {
				fields[key] = msg
				continue
			}
			upd.Password = &s
		}
	}
	if len(fields) > 0 {
		return apierr.Validation("invalid updates", fields)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Users.Update(ctx, uid, upd, h.Cfg.BcryptCost); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return apierr.Conflict("username already exists")
		case errors.Is(err, repository.ErrNotFound):
			return apierr.NotFound("user not found")
		}
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully", "updates": sortedKeys(body)})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
