// Package router wires the HTTP surface of the application: the
// authenticated link dashboard, the registration/login flow, the public
// redirect and the operational endpoints. All policy decisions are
// delegated to the access gate and the stores; the handlers only
// translate between HTTP and those calls.
package router

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/tinylinks/internal/accessgate"
	"github.com/patric-chuzhbe/tinylinks/internal/gzippedhttp"
	"github.com/patric-chuzhbe/tinylinks/internal/ipchecker"
	"github.com/patric-chuzhbe/tinylinks/internal/logger"
	"github.com/patric-chuzhbe/tinylinks/internal/metrics"
	"github.com/patric-chuzhbe/tinylinks/internal/models"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

type userRegistry interface {
	Register(email, password string) (models.User, error)
	Authenticate(email, password string) (models.User, error)
	FindByID(id string) (models.User, bool)
	Count() int
}

type linkKeeper interface {
	Create(ownerID, destinationURL string) (string, error)
	Get(token string) (models.ShortLink, bool)
	ListByOwner(ownerID string) []models.ShortLink
	Update(token, newDestinationURL string) bool
	Delete(token string) bool
	Count() int
}

type accessGate interface {
	RequireAuthenticated(handle string) (string, bool)
	AuthorizeOwnerAction(handle, token string) (accessgate.Decision, models.ShortLink)
}

type sessionIssuer interface {
	Create(userID string) (string, error)
	Clear() string
}

// ContextKey is a custom type for context values to avoid collisions.
type ContextKey string

// UserIDKey carries the authenticated user's ID, resolved once per
// request by the session middleware.
const UserIDKey ContextKey = "userID"

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	gate           accessGate
	sessions       sessionIssuer
	users          userRegistry
	links          linkKeeper
	stats          *metrics.Collector
	ipChecker      *ipchecker.IPChecker
	templates      *template.Template
	validate       *validator.Validate
	shortURLBase   string
	authCookieName string
	sessionMaxAge  time.Duration
}

// New builds the Router and its chi mux.
func New(
	gate accessGate,
	sessions sessionIssuer,
	users userRegistry,
	links linkKeeper,
	stats *metrics.Collector,
	ipChecker *ipchecker.IPChecker,
	metricsHandler http.Handler,
	shortURLBase string,
	authCookieName string,
	sessionMaxAge time.Duration,
) (*chi.Mux, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, err
	}

	theRouter := &Router{
		gate:           gate,
		sessions:       sessions,
		users:          users,
		links:          links,
		stats:          stats,
		ipChecker:      ipChecker,
		templates:      templates,
		validate:       validator.New(),
		shortURLBase:   shortURLBase,
		authCookieName: authCookieName,
		sessionMaxAge:  sessionMaxAge,
	}

	mux := chi.NewRouter()
	mux.Use(
		logger.WithLoggingHTTPMiddleware,
		stats.Middleware,
	)

	mux.Get(`/`, theRouter.GetRoot)
	mux.Get(`/u/{token}`, theRouter.GetRedirectToDestination)

	mux.With(gzippedhttp.GzipResponse).Get(`/register`, theRouter.GetRegister)
	mux.Post(`/register`, theRouter.PostRegister)
	mux.With(gzippedhttp.GzipResponse).Get(`/login`, theRouter.GetLogin)
	mux.Post(`/login`, theRouter.PostLogin)
	mux.Post(`/logout`, theRouter.PostLogout)

	mux.Group(func(protected chi.Router) {
		protected.Use(theRouter.WithResolvedSession, theRouter.RequireAuthenticated)
		protected.With(gzippedhttp.GzipResponse).Get(`/urls`, theRouter.GetUrls)
		protected.With(gzippedhttp.GzipResponse).Get(`/urls/new`, theRouter.GetUrlsNew)
		protected.Post(`/urls`, theRouter.PostUrls)
	})

	mux.With(gzippedhttp.GzipResponse).Get(`/urls/{token}`, theRouter.GetUrl)
	mux.Post(`/urls/{token}`, theRouter.PostUrl)
	mux.Post(`/urls/{token}/delete`, theRouter.PostUrlDelete)

	mux.Method(http.MethodGet, `/metrics`, metricsHandler)
	mux.Get(`/api/internal/stats`, theRouter.GetInternalStats)

	return mux, nil
}

// WithResolvedSession resolves the session cookie to a live user exactly
// once and attaches the result, an immutable context value, to the
// request. An unresolvable session simply leaves the value empty.
func (rt *Router) WithResolvedSession(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, _ := rt.gate.RequireAuthenticated(rt.sessionHandle(request))

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireAuthenticated redirects anonymous requests to the login page.
func (rt *Router) RequireAuthenticated(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, _ := request.Context().Value(UserIDKey).(string)
		if userID == "" {
			http.Redirect(response, request, "/login", http.StatusFound)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// GetRoot sends the visitor to their dashboard, or to the login page
// when anonymous.
func (rt *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	if _, ok := rt.gate.RequireAuthenticated(rt.sessionHandle(request)); ok {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	http.Redirect(response, request, "/login", http.StatusFound)
}

type urlRow struct {
	Token          string
	ShortURL       string
	DestinationURL string
}

type dashboardView struct {
	Email string
	Rows  []urlRow
}

type linkView struct {
	Email string
	Row   urlRow
}

// GetUrls renders the caller's dashboard.
func (rt *Router) GetUrls(response http.ResponseWriter, request *http.Request) {
	userID, _ := request.Context().Value(UserIDKey).(string)

	rows := funk.Map(rt.links.ListByOwner(userID), func(link models.ShortLink) urlRow {
		return rt.rowFromLink(link)
	}).([]urlRow)

	rt.renderPage(response, "urls_index.gohtml", dashboardView{
		Email: rt.emailOf(userID),
		Rows:  rows,
	})
}

// GetUrlsNew renders the creation form.
func (rt *Router) GetUrlsNew(response http.ResponseWriter, request *http.Request) {
	userID, _ := request.Context().Value(UserIDKey).(string)

	rt.renderPage(response, "urls_new.gohtml", dashboardView{Email: rt.emailOf(userID)})
}

// PostUrls creates a new short link owned by the caller.
func (rt *Router) PostUrls(response http.ResponseWriter, request *http.Request) {
	userID, _ := request.Context().Value(UserIDKey).(string)

	destinationURL := rt.formValue(request, "destination_url")
	if destinationURL == "" {
		http.Error(response, "destination URL must not be empty", http.StatusBadRequest)
		return
	}

	token, err := rt.links.Create(userID, destinationURL)
	if err != nil {
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}
	rt.stats.RecordLinkCreated()

	http.Redirect(response, request, "/urls/"+token, http.StatusFound)
}

// GetUrl shows one link to its owner; 403 for everyone else, 404 when
// the token is unknown.
func (rt *Router) GetUrl(response http.ResponseWriter, request *http.Request) {
	link, ok := rt.authorizeOwner(response, request)
	if !ok {
		return
	}

	rt.renderPage(response, "urls_show.gohtml", linkView{
		Email: rt.emailOf(link.OwnerID),
		Row:   rt.rowFromLink(link),
	})
}

// PostUrl updates the destination of an owned link.
func (rt *Router) PostUrl(response http.ResponseWriter, request *http.Request) {
	link, ok := rt.authorizeOwner(response, request)
	if !ok {
		return
	}

	destinationURL := rt.formValue(request, "destination_url")
	if destinationURL == "" {
		http.Error(response, "destination URL must not be empty", http.StatusBadRequest)
		return
	}

	if !rt.links.Update(link.Token, destinationURL) {
		response.WriteHeader(http.StatusNotFound)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// PostUrlDelete removes an owned link.
func (rt *Router) PostUrlDelete(response http.ResponseWriter, request *http.Request) {
	link, ok := rt.authorizeOwner(response, request)
	if !ok {
		return
	}

	if rt.links.Delete(link.Token) {
		rt.stats.RecordLinkDeleted()
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// GetRegister renders the registration form; logged-in visitors go
// straight to their dashboard.
func (rt *Router) GetRegister(response http.ResponseWriter, request *http.Request) {
	if _, ok := rt.gate.RequireAuthenticated(rt.sessionHandle(request)); ok {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	rt.renderPage(response, "register.gohtml", dashboardView{})
}

// PostRegister creates an account and logs the new user in.
func (rt *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	form := models.RegisterForm{
		Email:    rt.formValue(request, "email"),
		Password: rt.formValue(request, "password"),
	}
	if err := rt.validate.Struct(form); err != nil {
		http.Error(response, models.ErrInvalidInput.Error(), http.StatusBadRequest)
		return
	}

	usr, err := rt.users.Register(form.Email, form.Password)
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrDuplicateEmail):
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}
	rt.stats.RecordUserRegistered()

	rt.openSession(response, request, usr.ID)
}

// GetLogin renders the login form; logged-in visitors go straight to
// their dashboard.
func (rt *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	if _, ok := rt.gate.RequireAuthenticated(rt.sessionHandle(request)); ok {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	rt.renderPage(response, "login.gohtml", dashboardView{})
}

// PostLogin verifies the credentials and opens a session.
func (rt *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	form := models.LoginForm{
		Email:    rt.formValue(request, "email"),
		Password: rt.formValue(request, "password"),
	}
	if err := rt.validate.Struct(form); err != nil {
		http.Error(response, models.ErrInvalidInput.Error(), http.StatusBadRequest)
		return
	}

	usr, err := rt.users.Authenticate(form.Email, form.Password)
	if err != nil {
		http.Error(response, err.Error(), http.StatusForbidden)
		return
	}

	rt.openSession(response, request, usr.ID)
}

// PostLogout clears the session cookie and sends the visitor to the
// login page.
func (rt *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	http.SetCookie(response, &http.Cookie{
		Name:     rt.authCookieName,
		Value:    rt.sessions.Clear(),
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(response, request, "/login", http.StatusFound)
}

// GetRedirectToDestination is the public redirect. It resolves any
// token regardless of owner or session state.
func (rt *Router) GetRedirectToDestination(response http.ResponseWriter, request *http.Request) {
	token := chi.URLParam(request, "token")
	link, found := rt.links.Get(token)
	if !found {
		http.Error(response, "404 Not Found", http.StatusNotFound)
		return
	}

	http.Redirect(response, request, link.DestinationURL, http.StatusTemporaryRedirect)
}

// GetInternalStats reports store totals to callers inside the trusted
// subnet.
func (rt *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	clientIP, err := rt.ipChecker.GetClientIP(request)
	if err != nil || !rt.ipChecker.Check(clientIP) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(response).Encode(models.InternalStatsResponse{
		URLs:  rt.links.Count(),
		Users: rt.users.Count(),
	})
	if err != nil {
		logger.Log.Debugln("Error encoding the internal stats response:", err)
	}
}

// authorizeOwner runs the three-way owner check and writes the error
// response itself when the outcome is not Authorized.
func (rt *Router) authorizeOwner(response http.ResponseWriter, request *http.Request) (models.ShortLink, bool) {
	token := chi.URLParam(request, "token")

	decision, link := rt.gate.AuthorizeOwnerAction(rt.sessionHandle(request), token)
	switch decision {
	case accessgate.DecisionNotFound:
		http.Error(response, "404 Not Found", http.StatusNotFound)
		return models.ShortLink{}, false
	case accessgate.DecisionForbidden:
		http.Error(response, "403 Forbidden", http.StatusForbidden)
		return models.ShortLink{}, false
	}

	return link, true
}

// openSession issues a handle for userID, sets the cookie and redirects
// to the dashboard.
func (rt *Router) openSession(response http.ResponseWriter, request *http.Request, userID string) {
	handle, err := rt.sessions.Create(userID)
	if err != nil {
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(response, &http.Cookie{
		Name:     rt.authCookieName,
		Value:    handle,
		Path:     "/",
		MaxAge:   int(rt.sessionMaxAge.Seconds()),
		HttpOnly: true,
	})

	http.Redirect(response, request, "/urls", http.StatusFound)
}

func (rt *Router) sessionHandle(request *http.Request) string {
	cookie, err := request.Cookie(rt.authCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (rt *Router) formValue(request *http.Request, field string) string {
	// ParseForm failures surface as empty values, which the callers
	// already treat as missing input.
	_ = request.ParseForm()
	return request.PostFormValue(field)
}

func (rt *Router) rowFromLink(link models.ShortLink) urlRow {
	return urlRow{
		Token:          link.Token,
		ShortURL:       rt.shortURLBase + "/u/" + link.Token,
		DestinationURL: link.DestinationURL,
	}
}

func (rt *Router) emailOf(userID string) string {
	usr, found := rt.users.FindByID(userID)
	if !found {
		return ""
	}
	return usr.Email
}

func (rt *Router) renderPage(response http.ResponseWriter, name string, data interface{}) {
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rt.templates.ExecuteTemplate(response, name, data); err != nil {
		logger.Log.Debugln("Error rendering the page template:", err)
	}
}
