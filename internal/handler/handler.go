package handler

import (
	"github.com/go-telegram/bot"

	"github.com/set-night/coworker/internal/config"
	"github.com/set-night/coworker/internal/escalation"
	"github.com/set-night/coworker/internal/service"
	"github.com/set-night/coworker/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot       *bot.Bot
	cfg       *config.Config
	api       service.API
	counters  service.MannedCounterLookup
	profiles  *service.ProfileService
	flows     *escalation.Flows
	opsLogger *telegram.OpsLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot       *bot.Bot
	Cfg       *config.Config
	API       service.API
	Counters  service.MannedCounterLookup
	Profiles  *service.ProfileService
	Flows     *escalation.Flows
	OpsLogger *telegram.OpsLogger
}

// New creates a new Handler from the provided dependencies. Counters
// defaults to the API itself.
func New(deps Deps) *Handler {
	counters := deps.Counters
	if counters == nil {
		counters = deps.API
	}
	return &Handler{
		bot:       deps.Bot,
		cfg:       deps.Cfg,
		api:       deps.API,
		counters:  counters,
		profiles:  deps.Profiles,
		flows:     deps.Flows,
		opsLogger: deps.OpsLogger,
	}
}
