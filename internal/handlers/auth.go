package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/yatube/backend/internal/forms"
	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// IdentityVerifier checks a Firebase ID token. *firebase.App implements it.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, idToken string) (*firebase.Identity, error)
}

// SessionConfig controls the session cookie issued on sign-in.
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
}

// AuthHandler handles sign-up, sign-in and sign-out
type AuthHandler struct {
	userRepository repositories.UserRepository
	verifier       IdentityVerifier
	session        SessionConfig
	logger         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. verifier may be nil when Firebase is not configured.
func NewAuthHandler(userRepo repositories.UserRepository, verifier IdentityVerifier, session SessionConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		verifier:       verifier,
		session:        session,
		logger:         logger,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.GET("/signup/", h.SignupForm)
	g.POST("/signup/", h.Signup)
	g.GET("/login/", h.LoginForm)
	g.POST("/login/", h.Login)
	g.GET("/logout/", h.Logout)
	if h.verifier != nil {
		g.POST("/firebase-login/", h.FirebaseLogin)
	}
}

func (h *AuthHandler) SignupForm(c echo.Context) error {
	return render(c, "users/signup.html", echo.Map{"Form": forms.NewView(nil, nil)})
}

// Signup handles local user registration with username and password
func (h *AuthHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	in := forms.SignupInput{
		FirstName:       c.FormValue("first_name"),
		LastName:        c.FormValue("last_name"),
		Username:        c.FormValue("username"),
		Email:           c.FormValue("email"),
		Password:        c.FormValue("password1"),
		PasswordConfirm: c.FormValue("password2"),
	}
	values := map[string]string{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"username":   in.Username,
		"email":      in.Email,
	}

	res := forms.ValidateSignup(in)
	if !res.Valid() {
		return render(c, "users/signup.html", echo.Map{"Form": forms.NewView(values, res.Errors)})
	}

	_, err := h.userRepository.GetUserByUsername(ctx, res.Value.Username)
	if err == nil {
		return render(c, "users/signup.html", echo.Map{"Form": forms.NewView(values, []forms.FieldError{
			{Field: "username", Message: "A user with that username already exists."},
		})})
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(res.Value.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:  res.Value.Username,
		FirstName: res.Value.FirstName,
		LastName:  res.Value.LastName,
		Email:     res.Value.Email,
		Password:  string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	h.logger.Info("User registered", zap.Uint("userID", user.ID), zap.String("username", user.Username))

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	return render(c, "users/login.html", echo.Map{
		"Form": forms.NewView(nil, nil),
		"Next": c.QueryParam("next"),
	})
}

// Login checks the credentials, starts a session and follows the "next" parameter
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	next := c.FormValue("next")

	in := forms.LoginInput{Username: c.FormValue("username"), Password: c.FormValue("password")}
	values := map[string]string{"username": in.Username}

	res := forms.ValidateLogin(in)
	if !res.Valid() {
		return render(c, "users/login.html", echo.Map{"Form": forms.NewView(values, res.Errors), "Next": next})
	}

	user, err := h.userRepository.GetUserByUsername(ctx, res.Value.Username)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if user == nil || user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(res.Value.Password)) != nil {
		return render(c, "users/login.html", echo.Map{
			"Form": forms.NewView(values, []forms.FieldError{
				{Field: "__all__", Message: "Please enter a correct username and password. Note that both fields may be case-sensitive."},
			}),
			"Next": next,
		})
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, middleware.SafeRedirect(next, "/"))
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(middleware.ExpiredSessionCookie())
	return c.Redirect(http.StatusFound, "/")
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken"`
}

// FirebaseLogin verifies a Firebase ID token, finds or creates the matching user
// and starts a session
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil || req.IDToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	identity, err := h.verifier.VerifyIdentity(ctx, req.IDToken)
	if err != nil {
		h.logger.Info("Firebase login rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, identity.UID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		user, err = h.createFirebaseUser(ctx, identity)
	case err == nil:
		err = h.syncFirebaseProfile(ctx, user, identity)
	}
	if err != nil {
		return err
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"username": user.Username, "redirect": profileURL(user.Username)})
}

func (h *AuthHandler) createFirebaseUser(ctx context.Context, identity *firebase.Identity) (*models.User, error) {
	uid := identity.UID
	user := &models.User{
		Username:    firebaseUsername(identity),
		FirstName:   identity.Name,
		Email:       identity.Email,
		FirebaseUID: &uid,
	}

	// Local part of the email may already be taken; fall back to the UID.
	if _, err := h.userRepository.GetUserByUsername(ctx, user.Username); err == nil {
		user.Username = "fb_" + uid
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	h.logger.Info("User registered via Firebase", zap.Uint("userID", user.ID), zap.String("username", user.Username))
	return user, nil
}

// syncFirebaseProfile copies a changed email or name from the identity provider.
func (h *AuthHandler) syncFirebaseProfile(ctx context.Context, user *models.User, identity *firebase.Identity) error {
	changed := false
	if identity.Email != "" && identity.Email != user.Email {
		user.Email = identity.Email
		changed = true
	}
	if identity.Name != "" && user.FirstName == "" {
		user.FirstName = identity.Name
		changed = true
	}
	if !changed {
		return nil
	}
	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update firebase user: %w", err)
	}
	return nil
}

func firebaseUsername(identity *firebase.Identity) string {
	if local, _, ok := strings.Cut(identity.Email, "@"); ok && local != "" {
		return local
	}
	return "fb_" + identity.UID
}

func (h *AuthHandler) startSession(c echo.Context, user *models.User) error {
	token, err := middleware.IssueSessionToken(h.session.Secret, user, h.session.TTL)
	if err != nil {
		return fmt.Errorf("issue session token: %w", err)
	}
	c.SetCookie(middleware.SessionCookie(token, h.session.TTL, h.session.SecureCookie))
	return nil
}
