// Package app assembles the request handlers into a dispatcher.
package app

import (
	"github.com/movement-pass/public-api/internal/app/dispatch"
	"github.com/movement-pass/public-api/internal/app/identity"
	"github.com/movement-pass/public-api/internal/app/passes"
	"github.com/movement-pass/public-api/internal/app/uploads"
)

// NewDispatcher binds every request variant to its handler.
func NewDispatcher(id *identity.Service, ps *passes.Service, up *uploads.Service) *dispatch.Dispatcher {
	return dispatch.New(dispatch.Registry{
		dispatch.KindRegister:   dispatch.Typed(id.Register),
		dispatch.KindLogin:      dispatch.Typed(id.Login),
		dispatch.KindPhotoURL:   dispatch.Typed(up.PhotoURL),
		dispatch.KindApply:      dispatch.Typed(ps.Apply),
		dispatch.KindViewPass:   dispatch.Typed(ps.ViewPass),
		dispatch.KindViewPasses: dispatch.Typed(ps.ViewPasses),
	})
}
