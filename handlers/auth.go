package handlers

import (
	"net/http"

	"github.com/Fb1234566/TrentOnBike-api/database"
	"github.com/Fb1234566/TrentOnBike-api/models"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users *database.UsersService
}

func NewAuthHandler(users *database.UsersService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	req := &models.RegisterRequest{}
	if err := c.BindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email, password e nome sono obbligatori."})
		return
	}

	user, token, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"utente": user, "token": token})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	req := &models.LoginRequest{}
	if err := c.BindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email e password sono obbligatorie."})
		return
	}

	token, err := h.users.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
