// Package handlers exposes a small HTTP surface that forwards to the gRPC
// client so the RPC path can be exercised with curl or Postman. It carries no
// business rules; every failure is wrapped as {success:false, message}.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/grpc-user-service/internal/interface/grpcclient"
	"github.com/oksasatya/grpc-user-service/pkg/response"
)

type TestHandler struct {
	Client *grpcclient.Client
	Logger *logrus.Logger
}

func NewTestHandler(client *grpcclient.Client, logger *logrus.Logger) *TestHandler {
	return &TestHandler{Client: client, Logger: logger}
}

type userPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int32  `json:"age"`
	Phone string `json:"phone"`
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid userId")
		return 0, false
	}
	return id, true
}

func (h *TestHandler) CreateUser(c *gin.Context) {
	var req userPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := h.Client.CreateUser(c.Request.Context(), req.Name, req.Email, req.Age, req.Phone)
	if err != nil {
		h.Logger.WithError(err).Error("create user rpc failed")
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if !res.Success {
		response.Error(c, http.StatusBadRequest, res.Message)
		return
	}
	response.Success(c, http.StatusCreated, res.User, res.Message)
}

func (h *TestHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.Client.GetUser(c.Request.Context(), id)
	if err != nil {
		h.Logger.WithError(err).Error("get user rpc failed")
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if !res.Success {
		response.Error(c, http.StatusNotFound, res.Message)
		return
	}
	response.Success(c, http.StatusOK, res.User, res.Message)
}

func (h *TestHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	users, err := h.Client.ListUsers(c.Request.Context(), int32(page), int32(pageSize))
	if err != nil {
		h.Logger.WithError(err).Error("list users rpc failed")
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	response.Success(c, http.StatusOK, users, "users listed")
}

func (h *TestHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req userPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := h.Client.UpdateUser(c.Request.Context(), id, req.Name, req.Email, req.Age, req.Phone)
	if err != nil {
		h.Logger.WithError(err).Error("update user rpc failed")
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if !res.Success {
		response.Error(c, http.StatusBadRequest, res.Message)
		return
	}
	response.Success(c, http.StatusOK, res.User, res.Message)
}

func (h *TestHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.Client.DeleteUser(c.Request.Context(), id)
	if err != nil {
		h.Logger.WithError(err).Error("delete user rpc failed")
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if !res.Success {
		response.Error(c, http.StatusNotFound, res.Message)
		return
	}
	response.Success[any](c, http.StatusOK, nil, res.Message)
}

func (h *TestHandler) SearchUsers(c *gin.Context) {
	keyword := c.Query("keyword")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	users, err := h.Client.SearchUsers(c.Request.Context(), keyword, int32(limit))
	if err != nil {
		h.Logger.WithError(err).Error("search users rpc failed")
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	response.Success(c, http.StatusOK, users, "users searched")
}

func (h *TestHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "UP",
		"timestamp": time.Now().UnixMilli(),
		"service":   "grpc-user-service",
	})
}
