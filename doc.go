// Package auth is the account and session core of the AxioQuan learning
// platform.
//
// Accounts:
//   - Actions is the public surface. Signup, login, logout, profile edits and
//     role management all return a Result and never an error; store failures
//     are logged and folded into a generic message.
//   - Signup writes the user, its primary role link and an empty learner
//     profile in one transaction through RegisterUserHandler.
//
// Sessions:
//   - SessionManager keeps a signed session record in an HttpOnly cookie. A
//     session is expired from the instant its expiry is reached and is
//     refreshed only inside the configured threshold.
//   - RoleSync rewrites the caller's own session when stored roles change. It
//     never touches a session that belongs to someone else.
//
// HTTP:
//   - RouteGuard gates fiber routes by role and RegisterAuthRoutes mounts the
//     JSON endpoints. Both read cookies through FiberCookies so a cookie written
//     earlier in a request is visible to later reads.
//
// Activity sinks:
//   - ActivitySink receives signup, login, session and role events. Sinks run
//     best-effort (errors are logged) so they can forward to metrics or a queue
//     without blocking authentication.
package auth
