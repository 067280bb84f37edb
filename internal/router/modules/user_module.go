package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/grpc-user-service/internal/interface/http"
)

// Module wires the gRPC test routes. Everything under /api/grpc forwards to
// the gRPC client; /api/health answers liveness probes.
type Module struct {
	Handler *handlers.TestHandler
}

func New(h *handlers.TestHandler) *Module {
	return &Module{Handler: h}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Handler.Health)

	grpcGroup := rg.Group("/grpc")
	{
		grpcGroup.POST("/create-user", m.Handler.CreateUser)
		grpcGroup.GET("/get-user/:userId", m.Handler.GetUser)
		grpcGroup.GET("/list-users", m.Handler.ListUsers)
		grpcGroup.PUT("/update-user/:userId", m.Handler.UpdateUser)
		grpcGroup.DELETE("/delete-user/:userId", m.Handler.DeleteUser)
		grpcGroup.GET("/search-users", m.Handler.SearchUsers)
	}
}
