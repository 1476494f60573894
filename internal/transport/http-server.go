package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/inkwell-labs/inkwell-back/internal/config"
	"github.com/inkwell-labs/inkwell-back/internal/db"
	"github.com/inkwell-labs/inkwell-back/internal/service"
	"github.com/inkwell-labs/inkwell-back/internal/token"
)

const (
	sessionCookieName = "token"
	userContextKey    = "userID"
)

type (
	RegisterReq struct {
		Username string `json:"username" validate:"required,min=3,max=20"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	LoginReq struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	PostReq struct {
		Title   string `json:"title" validate:"required,min=3,max=100"`
		Content string `json:"content" validate:"required,min=10"`
	}

	AuthorResp struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
	}

	PostResp struct {
		ID        uint64     `json:"id"`
		Title     string     `json:"title"`
		Content   string     `json:"content"`
		Author    AuthorResp `json:"author"`
		CreatedAt time.Time  `json:"createdAt"`
		UpdatedAt time.Time  `json:"updatedAt"`
	}

	BookmarkResp struct {
		ID        uint64    `json:"id"`
		PostID    uint64    `json:"postId"`
		CreatedAt time.Time `json:"createdAt"`
	}

	BookmarkWithPostResp struct {
		ID        uint64    `json:"id"`
		Post      PostResp  `json:"post"`
		CreatedAt time.Time `json:"createdAt"`
	}

	MessageResp struct {
		Message string `json:"message"`
	}

	ValidationResp struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}

	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		echo      *echo.Echo
		cfg       *config.Config
		logger    *zap.SugaredLogger
		tokens    *token.Manager
		auth      *service.Auth
		posts     *service.Post
		bookmarks *service.Bookmark
	}
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.SugaredLogger, tokens *token.Manager,
	auth *service.Auth, posts *service.Post, bookmarks *service.Bookmark) *HTTPServer {
	instance := newServer(cfg, logger, tokens, auth, posts, bookmarks)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := instance.echo.Start(listen); err != nil && err != http.ErrServerClosed {
					instance.echo.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return instance.echo.Shutdown(ctx)
		},
	})

	return instance
}

func newServer(cfg *config.Config, logger *zap.SugaredLogger, tokens *token.Manager,
	auth *service.Auth, posts *service.Post, bookmarks *service.Bookmark) *HTTPServer {
	e := echo.New()
	e.HideBanner = true

	instance := HTTPServer{
		echo:      e,
		cfg:       cfg,
		logger:    logger,
		tokens:    tokens,
		auth:      auth,
		posts:     posts,
		bookmarks: bookmarks,
	}

	authG := e.Group("/api/auth")
	authG.POST("/register", instance.Register)
	authG.POST("/login", instance.Login)
	authG.POST("/logout", instance.Logout)
	authG.GET("/me", instance.Me, instance.Authenticated)

	blogG := e.Group("/api/blogs")
	blogG.POST("", instance.PostCreate, instance.Authenticated)
	blogG.GET("", instance.PostList)
	blogG.GET("/my-blogs", instance.PostListMine, instance.Authenticated)
	blogG.GET("/:id", instance.PostGet)
	blogG.PUT("/:id", instance.PostUpdate, instance.Authenticated)
	blogG.DELETE("/:id", instance.PostDelete, instance.Authenticated)

	bookmarkG := e.Group("/api/bookmarks")
	bookmarkG.POST("/:id", instance.BookmarkCreate, instance.Authenticated)
	bookmarkG.DELETE("/:id", instance.BookmarkDelete, instance.Authenticated)
	bookmarkG.GET("", instance.BookmarkList, instance.Authenticated)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Path(), "/api/auth/")
		},
		Handler: func(c echo.Context, reqBody, resBody []byte) {
			logger.Debugw("auth request", "path", c.Path(), "body", string(censorBody(reqBody)))
		},
	}))

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = instance.ErrorHandler

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return &instance
}

func (s *HTTPServer) Register(c echo.Context) error {
	req := RegisterReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := s.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		return s.mapServiceError(err)
	}

	if err := s.issueSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, MessageResp{Message: "User registered successfully"})
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := LoginReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		return s.mapServiceError(err)
	}

	if err := s.issueSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResp{Message: "Login successful"})
}

// Logout only clears the cookie. There is no server-side blacklist, so a
// copy of the token stays valid until its natural expiry.
func (s *HTTPServer) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
	})
	return c.JSON(http.StatusOK, MessageResp{Message: "Logout successful"})
}

func (s *HTTPServer) Me(c echo.Context) error {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	user, err := s.auth.Me(userID)
	if err != nil {
		return s.mapServiceError(err)
	}

	resp := struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
	return c.JSON(http.StatusOK, &resp)
}

func (s *HTTPServer) PostCreate(c echo.Context) error {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := PostReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := s.posts.Create(userID, req.Title, req.Content)
	if err != nil {
		return s.mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, postResp(post))
}

func (s *HTTPServer) PostList(c echo.Context) error {
	posts, err := s.posts.List()
	if err != nil {
		return s.mapServiceError(err)
	}
	return c.JSON(http.StatusOK, postListResp(posts))
}

func (s *HTTPServer) PostListMine(c echo.Context) error {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	posts, err := s.posts.ListByAuthor(userID)
	if err != nil {
		return s.mapServiceError(err)
	}
	return c.JSON(http.StatusOK, postListResp(posts))
}

func (s *HTTPServer) PostGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	post, err := s.posts.Get(id)
	if err != nil {
		return s.mapServiceError(err)
	}
	return c.JSON(http.StatusOK, postResp(post))
}

func (s *HTTPServer) PostUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := PostReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := s.posts.Update(id, userID, req.Title, req.Content)
	if err != nil {
		return s.mapServiceError(err)
	}
	return c.JSON(http.StatusOK, postResp(post))
}

func (s *HTTPServer) PostDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := s.posts.Delete(id, userID); err != nil {
		return s.mapServiceError(err)
	}
	return c.JSON(http.StatusOK, MessageResp{Message: "Blog deleted"})
}

func (s *HTTPServer) BookmarkCreate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	bookmark, err := s.bookmarks.Add(userID, id)
	if err != nil {
		return s.mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, BookmarkResp{
		ID:        bookmark.ID,
		PostID:    bookmark.PostID,
		CreatedAt: bookmark.CreatedAt,
	})
}

func (s *HTTPServer) BookmarkDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := s.bookmarks.Remove(userID, id); err != nil {
		return s.mapServiceError(err)
	}
	return c.JSON(http.StatusOK, MessageResp{Message: "Bookmark removed"})
}

func (s *HTTPServer) BookmarkList(c echo.Context) error {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	expanded, err := s.bookmarks.ListForUser(userID)
	if err != nil {
		return s.mapServiceError(err)
	}

	resp := make([]BookmarkWithPostResp, len(expanded))
	for i := range expanded {
		resp[i] = BookmarkWithPostResp{
			ID:        expanded[i].ID,
			Post:      postResp(&expanded[i].Post),
			CreatedAt: expanded[i].CreatedAt,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Authenticated trusts the signed claim alone; no user lookup happens
// here. Handlers that need the full record fetch it themselves.
func (s *HTTPServer) Authenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(sessionCookieName)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, MessageResp{Message: "No token, authorization denied"})
		}

		claims, err := s.tokens.Verify(cookie.Value)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, MessageResp{Message: "Token is not valid"})
		}

		c.Set(userContextKey, claims.UserID)
		return next(c)
	}
}

func (s *HTTPServer) issueSession(c echo.Context, userID uint64) error {
	raw, err := s.tokens.Issue(userID)
	if err != nil {
		return errors.Wrap(err, "issue session token")
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    raw,
		Path:     "/",
		Expires:  time.Now().Add(token.Lifetime),
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
	})
	return nil
}

func (s *HTTPServer) mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrDuplicateUser):
		return echo.NewHTTPError(http.StatusBadRequest, MessageResp{Message: "User already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusBadRequest, MessageResp{Message: "Invalid credentials"})
	case errors.Is(err, service.ErrDuplicateBookmark):
		return echo.NewHTTPError(http.StatusBadRequest, MessageResp{Message: "Blog already bookmarked"})
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, MessageResp{Message: "Unauthorized"})
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, MessageResp{Message: "Not found"})
	default:
		return err
	}
}

// ErrorHandler renders every error as a JSON body with a message field.
// Unexpected errors are logged and surface as a generic 500.
func (s *HTTPServer) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		s.logger.Errorw("unhandled error", "path", c.Path(), "error", err)
		he = echo.NewHTTPError(http.StatusInternalServerError, MessageResp{Message: "Server error"})
	}

	var body interface{}
	switch m := he.Message.(type) {
	case string:
		body = MessageResp{Message: m}
	default:
		body = m
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, body)
	}
	if err != nil {
		s.logger.Errorw("write error response", "error", err)
	}
}

////////

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		details := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			details[i] = fe.Field() + " failed on '" + fe.Tag() + "'"
		}
		return echo.NewHTTPError(http.StatusBadRequest, ValidationResp{
			Message: "Invalid data",
			Errors:  details,
		})
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MessageResp{Message: "Invalid data"})
	}
	if err = c.Validate(v); err != nil {
		return err
	}
	return nil
}

func GetUserIDFromContext(c echo.Context) (uint64, error) {
	userID, ok := c.Get(userContextKey).(uint64)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, MessageResp{Message: "No token, authorization denied"})
	}
	return userID, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, MessageResp{Message: "invalid path param '" + name + "'"})
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, MessageResp{Message: "invalid path param '" + name + "'"})
	}
	return vv, nil
}

func postResp(p *db.Post) PostResp {
	return PostResp{
		ID:      p.ID,
		Title:   p.Title,
		Content: p.Content,
		Author: AuthorResp{
			ID:       p.Author.ID,
			Username: p.Author.Username,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func postListResp(posts []db.Post) []PostResp {
	resp := make([]PostResp, len(posts))
	for i := range posts {
		resp[i] = postResp(&posts[i])
	}
	return resp
}

func censorBody(b []byte) []byte {
	body := map[string]interface{}{}
	if err := json.Unmarshal(b, &body); err != nil {
		return b
	}
	if _, ok := body["password"]; !ok {
		return b
	}
	body["password"] = "$censored"
	censored, err := json.Marshal(body)
	if err != nil {
		return b
	}
	return censored
}
