package router

import (
	"github.com/oksasatya/grpc-user-service/internal/container"
	handlers "github.com/oksasatya/grpc-user-service/internal/interface/http"
	usermodule "github.com/oksasatya/grpc-user-service/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	handler := handlers.NewTestHandler(container.GetGRPCClient(), container.GetLogger())
	r.Add(usermodule.New(handler))
}
