package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
	"github.com/golang-jwt/jwt/v4"

	"github.com/bookhub/elib/internal/config"
	"github.com/bookhub/elib/internal/domain/models"
	"github.com/bookhub/elib/internal/logger"
	"github.com/bookhub/elib/internal/media"
)

//go:generate mockgen -source=server.go -destination=./mocks/service_mock.go -package=mocks
//go:generate mockgen -source=../media/media.go -destination=./mocks/media_mock.go -package=mocks

var ErrInvalidToken = errors.New("invalid token")

const (
	maxFileSize = 30 << 20 // per uploaded file
	coverFolder = "book-covers"
	pdfFolder   = "book-pdfs"
	tokenTTL    = 7 * 24 * time.Hour
)

type Storage interface {
	SaveBook(models.Book) (string, error)
	GetBook(bid string) (models.Book, error)
	UpdateBook(models.Book) (models.Book, error)
	DeleteBook(bid string) error
	CountBooks(authorID string) (int, error)
	GetBooksPage(authorID string, limit, offset int) ([]models.Book, error)
	SaveUser(models.User) (string, error)
	ValidUser(email, pass string) (string, error)
}

type Server struct {
	serv    *http.Server
	valid   *validator.Validate
	cfg     config.Config
	Storage Storage
	Media   media.Client
	ErrChan chan error
}

func New(cfg config.Config, stor Storage, mediaClient media.Client) *Server {
	server := http.Server{ //nolint:gosec // not today
		Addr: cfg.Addr,
	}
	valid := validator.New()
	return &Server{
		serv:    &server,
		valid:   valid,
		cfg:     cfg,
		Storage: stor,
		Media:   mediaClient,
		ErrChan: make(chan error),
	}
}

func (s *Server) ShutdownServer() error {
	return s.serv.Shutdown(context.Background())
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.cfg.FrontendDomain},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "welcome to elib apis"})
	})
	users := router.Group("/api/users")
	{
		users.POST("/register", s.Register)
		users.POST("/login", s.Login)
	}
	books := router.Group("/api/books")
	{
		// registered as "" so /api/books is served directly, not via a
		// trailing-slash redirect
		books.POST("", s.JWTAuthMiddleware(), s.CreateBook)
		books.PATCH("/:bookId", s.JWTAuthMiddleware(), s.UpdateBook)
		books.GET("", s.JWTAuthMiddleware(), s.ListBooks)
		books.GET("/:bookId", s.BookInfo)
		books.DELETE("/:bookId", s.JWTAuthMiddleware(), s.RemoveBook)
	}
	return router
}

func (s *Server) Run(ctx context.Context) error {
	log := logger.Get()
	s.serv.Handler = s.Router()
	log.Info().Str("host", s.serv.Addr).Msg("server started")
	if err := s.serv.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Close() error {
	return s.serv.Shutdown(context.TODO())
}

func (s *Server) JWTAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenHeader := ctx.GetHeader("Authorization")
		if tokenHeader == "" {
			s.respondError(ctx, http.StatusUnauthorized, nil, "authorization token is required")
			ctx.Abort()
			return
		}

		tokenParts := strings.Split(tokenHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			s.respondError(ctx, http.StatusUnauthorized, nil, "invalid token format")
			ctx.Abort()
			return
		}

		uid, err := validToken(tokenParts[1], s.cfg.JWTSecret)
		if err != nil {
			s.respondError(ctx, http.StatusUnauthorized, err, "token expired or invalid")
			ctx.Abort()
			return
		}

		ctx.Set("uid", uid)
		ctx.Next()
	}
}

func validToken(tokenStr, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// CreateJWTToken signs an access token carrying the user id as subject.
func CreateJWTToken(uid, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	})
	return token.SignedString([]byte(secret))
}

// respondError writes the error envelope and logs the cause. Error detail
// is only exposed in the body outside production.
func (s *Server) respondError(ctx *gin.Context, status int, err error, msg string) {
	log := logger.Get()
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg(msg)
	}
	body := gin.H{"success": false, "message": msg}
	if err != nil && s.cfg.Env != "production" {
		body["error"] = err.Error()
	}
	ctx.JSON(status, body)
}
