package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookhub/elib/internal/domain/models"
	"github.com/bookhub/elib/internal/logger"
	storerrros "github.com/bookhub/elib/internal/storage/errors"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) Register(ctx *gin.Context) {
	log := logger.Get()

	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.respondError(ctx, http.StatusBadRequest, err, "incorrectly entered data")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		s.respondError(ctx, http.StatusBadRequest, err, "all fields are required")
		return
	}

	uid, err := s.Storage.SaveUser(models.User{
		Name:  req.Name,
		Email: req.Email,
		Pass:  req.Password,
	})
	if err != nil {
		if errors.Is(err, storerrros.ErrUserExists) {
			s.respondError(ctx, http.StatusConflict, err, "user already exists with this email")
			return
		}
		s.respondError(ctx, http.StatusInternalServerError, err, "error while creating user")
		return
	}

	token, err := CreateJWTToken(uid, s.cfg.JWTSecret)
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error while signing the jwt token")
		return
	}

	log.Debug().Str("uid", uid).Msg("user registered")
	ctx.JSON(http.StatusCreated, gin.H{"accessToken": token})
}

func (s *Server) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.respondError(ctx, http.StatusBadRequest, err, "incorrectly entered data")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		s.respondError(ctx, http.StatusBadRequest, err, "all fields are required")
		return
	}

	uid, err := s.Storage.ValidUser(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storerrros.ErrUserNoExist) {
			s.respondError(ctx, http.StatusNotFound, err, "user not found")
			return
		}
		if errors.Is(err, storerrros.ErrInvalidPassword) {
			s.respondError(ctx, http.StatusUnauthorized, err, "username or password incorrect")
			return
		}
		s.respondError(ctx, http.StatusInternalServerError, err, "error while logging in")
		return
	}

	token, err := CreateJWTToken(uid, s.cfg.JWTSecret)
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error while signing the jwt token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"accessToken": token})
}
