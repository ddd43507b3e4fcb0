package main

import (
	"context"

	govalidator "github.com/go-playground/validator/v10"
)

// playgroundValidator adapts govalidator.Validate to
// validatorAdapter.PlaygroundValidator: StructCtx there takes an untyped
// ctx any so the adapter package stays independent of context.Context,
// which this type bridges back to the real signature.
type playgroundValidator struct {
	v *govalidator.Validate
}

func newPlaygroundValidator() *playgroundValidator {
	return &playgroundValidator{v: govalidator.New()}
}

func (p *playgroundValidator) Struct(s any) error {
	return p.v.Struct(s)
}

func (p *playgroundValidator) StructCtx(ctx any, s any) error {
	c, ok := ctx.(context.Context)
	if !ok {
		c = context.Background()
	}
	return p.v.StructCtx(c, s)
}

func (p *playgroundValidator) Var(field any, tag string) error {
	return p.v.Var(field, tag)
}
