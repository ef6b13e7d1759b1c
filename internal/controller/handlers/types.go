package handlers

import (
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/controller/state"
	"github.com/Freeeeeet/tutor_match_bot/internal/matchmaking"
	"github.com/Freeeeeet/tutor_match_bot/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService      *service.UserService
	extensionService *service.ExtensionService
	coordinator      *matchmaking.Coordinator
	notifier         callbacktypes.Notifier
	stateManager     *state.Manager
	logger           *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	extensionService *service.ExtensionService,
	coordinator *matchmaking.Coordinator,
	notifier callbacktypes.Notifier,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userService:      userService,
		extensionService: extensionService,
		coordinator:      coordinator,
		notifier:         notifier,
		stateManager:     stateManager,
		logger:           logger,
	}
}
