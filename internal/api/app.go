package api

import (
	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/auth"
	"github.com/yourname/skilltracker/internal/storage"
)

type App interface {
	Logger() internal.Logger
	SkillRepo() storage.SkillRepository
	TimeRepo() storage.TimeEntryRepository
	UserRepo() storage.UserRepository
	Auth() auth.Provider
}

type Application struct {
	logger internal.Logger
	repos  *storage.Repositories
	auth   auth.Provider
}

func NewApp(logger internal.Logger, repos *storage.Repositories, provider auth.Provider) *Application {
	return &Application{logger: logger, repos: repos, auth: provider}
}

func (a *Application) Logger() internal.Logger                 { return a.logger }
func (a *Application) SkillRepo() storage.SkillRepository      { return a.repos.Skills }
func (a *Application) TimeRepo() storage.TimeEntryRepository   { return a.repos.Time }
func (a *Application) UserRepo() storage.UserRepository        { return a.repos.Users }
func (a *Application) Auth() auth.Provider                     { return a.auth }

var _ App = (*Application)(nil)
