package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userhandler "inspectra-system/internal/services/user/handler"
)

type UserHTTPHandler struct {
	users *userhandler.UserHandler
}

func NewUserHTTPHandler(users *userhandler.UserHandler) *UserHTTPHandler {
	return &UserHTTPHandler{users: users}
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

func (s *UserHTTPHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := s.users.Register(c.Request.Context(), userhandler.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *UserHTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User,
	})
}
