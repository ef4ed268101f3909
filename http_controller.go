package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

type AuthControllerRoutes struct {
	SignUp            string
	AdminSignUp       string
	Login             string
	Logout            string
	SessionRefresh    string
	SessionStatus     string
	SessionRolesSync  string
	Profile           string
	VerifyPassword    string
	AdminUserRoles    string
	AdminUserSessions string
	User              string
	Dashboard         string
}

type AuthController struct {
	Debug   bool
	Logger  Logger
	Actions *Actions
	Guard   *RouteGuard
	Routes  *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerActions(actions *Actions) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Actions = actions
		return c
	}
}

func WithControllerGuard(guard *RouteGuard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: newDefLogger(),
		Routes: &AuthControllerRoutes{
			SignUp:            "/signup",
			AdminSignUp:       "/admin-signup",
			Login:             "/login",
			Logout:            "/logout",
			SessionRefresh:    "/session/refresh",
			SessionStatus:     "/session/status",
			SessionRolesSync:  "/session/roles/sync",
			Profile:           "/profile",
			VerifyPassword:    "/profile/verify-password",
			AdminUserRoles:    "/admin/users/:id/roles",
			AdminUserSessions: "/admin/users/:id/sessions/invalidate",
			User:              "/users/:id",
			Dashboard:         "/dashboard",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Actions == nil {
		panic("Missing Actions in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints and the guarded dashboards
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)
	r := controller.Routes
	guard := controller.Guard

	app.Post(r.SignUp, controller.SignUp).Name("signup.post")
	app.Post(r.AdminSignUp, controller.AdminSignUp).Name("admin-signup.post")
	app.Post(r.Login, controller.Login).Name("sign-in.post")
	app.Post(r.Logout, controller.Logout).Name("sign-out.post")
	app.Get(r.Logout, guard.LogoutRedirect(controller.Actions)).Name("sign-out.get")

	app.Post(r.SessionRefresh, controller.RefreshSession).Name("session-refresh.post")
	app.Get(r.SessionStatus, controller.SessionStatus).Name("session-status.get")
	app.Post(r.SessionRolesSync, guard.Protect(), controller.SyncSessionRoles).Name("session-roles.post")

	app.Post(r.Profile, guard.Protect(), controller.UpdateProfile).Name("profile.post")
	app.Post(r.VerifyPassword, guard.Protect(), controller.VerifyPassword).Name("verify-password.post")
	app.Get(r.User, guard.Protect(), controller.GetUser).Name("user.get")

	app.Post(r.AdminUserRoles, guard.Protect(RoleAdmin), controller.AssignRole).Name("admin-roles.post")
	app.Post(r.AdminUserSessions, guard.Protect(RoleAdmin), controller.InvalidateSessions).Name("admin-sessions.post")

	app.Get(r.Dashboard, guard.Protect(), controller.Dashboard).Name("dashboard.get")
	app.Get(r.Dashboard+"/student", guard.Protect(RoleStudent), controller.Dashboard).Name("dashboard-student.get")
	app.Get(r.Dashboard+"/instructor", guard.Protect(RoleInstructor), controller.Dashboard).Name("dashboard-instructor.get")
	app.Get(r.Dashboard+"/teaching-assistant", guard.Protect(RoleTeachingAssistant), controller.Dashboard).Name("dashboard-ta.get")
	app.Get(r.Dashboard+"/admin", guard.Protect(RoleAdmin), controller.Dashboard).Name("dashboard-admin.get")

	return controller
}

func (a *AuthController) SignUp(c *fiber.Ctx) error {
	payload := SignUpPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return a.badRequest(c, err)
	}
	res := a.Actions.SignUp(c.UserContext(), payload)
	return a.reply(c, res.Success, res.Message, res.Errors, res)
}

func (a *AuthController) AdminSignUp(c *fiber.Ctx) error {
	payload := AdminSignUpPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return a.badRequest(c, err)
	}
	res := a.Actions.AdminSignUp(c.UserContext(), payload)
	return a.reply(c, res.Success, res.Message, res.Errors, res)
}

type loginResponse struct {
	Result[*PublicUser]
	Redirect string `json:"redirect,omitempty"`
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := LoginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return a.badRequest(c, err)
	}

	if a.Debug {
		a.Logger.Debug("login attempt for %s", print.MaybePrettyJSON(map[string]string{"email": payload.Email}))
	}

	res := a.Actions.LoginWithSession(c.UserContext(), FiberCookies(c), payload)
	out := loginResponse{Result: res}
	if res.Success {
		out.Redirect = a.Guard.GetRedirectOrDefault(c, a.Routes.Dashboard)
	}
	return a.reply(c, res.Success, res.Message, res.Errors, out)
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	res := a.Actions.Logout(c.UserContext(), FiberCookies(c))
	return c.JSON(res)
}

func (a *AuthController) RefreshSession(c *fiber.Ctx) error {
	res := a.Actions.RefreshSession(c.UserContext(), FiberCookies(c))
	return a.reply(c, res.Success, res.Message, res.Errors, res)
}

func (a *AuthController) SessionStatus(c *fiber.Ctx) error {
	return c.JSON(a.Actions.CheckAuthStatus(FiberCookies(c)))
}

func (a *AuthController) SyncSessionRoles(c *fiber.Ctx) error {
	session, _ := SessionFromFiber(c)
	res := a.Actions.UpdateUserSessionRoles(c.UserContext(), FiberCookies(c), session.UserID)
	return a.reply(c, res.Success, res.Message, res.Errors, res)
}

func (a *AuthController) UpdateProfile(c *fiber.Ctx) error {
	payload := ProfileUpdate{}
	if err := c.BodyParser(&payload); err != nil {
		return a.badRequest(c, err)
	}
	session, _ := SessionFromFiber(c)
	res := a.Actions.UpdateProfile(c.UserContext(), session.UserID, payload)
	return a.reply(c, res.Success, res.Message, res.Errors, res)
}

type verifyPasswordRequest struct {
	Password string `json:"password" form:"password"`
}

func (a *AuthController) VerifyPassword(c *fiber.Ctx) error {
	payload := verifyPasswordRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.badRequest(c, err)
	}
	session, _ := SessionFromFiber(c)
	valid := a.Actions.VerifyCurrentPassword(c.UserContext(), session.UserID, payload.Password)
	return c.JSON(fiber.Map{"valid": valid})
}

func (a *AuthController) GetUser(c *fiber.Ctx) error {
	session, _ := SessionFromFiber(c)
	id := c.Params("id")
	if id != session.UserID && !session.HasRole(RoleAdmin) {
		return c.Status(http.StatusForbidden).JSON(failResult[any](MsgUserNotFound))
	}

	user := a.Actions.GetUserByID(c.UserContext(), id)
	if user == nil {
		return c.Status(http.StatusNotFound).JSON(failResult[any](MsgUserNotFound))
	}
	return c.JSON(okResult("", user))
}

type assignRoleRequest struct {
	Role    string `json:"role" form:"role"`
	Primary bool   `json:"primary" form:"primary"`
}

func (a *AuthController) AssignRole(c *fiber.Ctx) error {
	payload := assignRoleRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.badRequest(c, err)
	}
	res := a.Actions.AssignRole(c.UserContext(), c.Params("id"), payload.Role, payload.Primary)
	return a.reply(c, res.Success, res.Message, res.Errors, res)
}

func (a *AuthController) InvalidateSessions(c *fiber.Ctx) error {
	res := a.Actions.InvalidateUserSessions(c.UserContext(), c.Params("id"))
	return a.reply(c, res.Success, res.Message, res.Errors, res)
}

// Dashboard returns the session summary of the guarded page
func (a *AuthController) Dashboard(c *fiber.Ctx) error {
	session, _ := SessionFromFiber(c)
	return c.JSON(fiber.Map{
		"userId":      session.UserID,
		"name":        session.Name,
		"email":       session.Email,
		"roles":       session.Roles,
		"primaryRole": session.PrimaryRole,
		"expires":     session.Expires,
	})
}

func (a *AuthController) badRequest(c *fiber.Ctx, err error) error {
	a.Logger.Debug("unable to parse request body for %s: %v", c.OriginalURL(), err)
	return c.Status(http.StatusBadRequest).JSON(failResult[any]("Invalid request body"))
}

func (a *AuthController) reply(c *fiber.Ctx, success bool, message string, errs []string, body any) error {
	return c.Status(resultStatus(success, message, errs)).JSON(body)
}

func resultStatus(success bool, message string, errs []string) int {
	if success {
		return http.StatusOK
	}
	for _, e := range errs {
		if e == MsgRequestTimedOut {
			return http.StatusServiceUnavailable
		}
	}
	switch message {
	case MsgAuthenticationFailed, MsgSessionNotRefreshed:
		return http.StatusUnauthorized
	case MsgAdminRegistrationDenied:
		return http.StatusForbidden
	case MsgUserExists:
		return http.StatusConflict
	case MsgUserNotFoundOrInactive, MsgUserNotFound:
		return http.StatusNotFound
	case MsgRegistrationFailed, MsgLoginFailed, MsgSessionNotCreated, MsgProfileUpdateFailed, MsgUnexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
