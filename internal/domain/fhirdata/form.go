package fhirdata

import (
	"context"
	"errors"
	"time"

	"github.com/medcalc/medcalc/internal/platform/dom"
)

var (
	ErrInvalidForm       = errors.New("form is not valid html")
	ErrContainerNotFound = errors.New("container not found in form")
)

// settleDelay lets banner and summary transitions finish before a
// populated form is rendered.
const settleDelay = time.Second

// PopulateForm fills the calculator form src from the client's patient and
// returns the rendered result. containerSel defaults to "body".
func (s *Service) PopulateForm(ctx context.Context, client Client, src, containerSel string, req Requirements) (PopulateResponse, error) {
	sched := dom.NewVirtualScheduler(s.now())
	doc, err := dom.Parse(src, dom.WithScheduler(sched))
	if err != nil {
		return PopulateResponse{}, ErrInvalidForm
	}
	if containerSel == "" {
		containerSel = "body"
	}
	container := doc.QuerySelector(containerSel)
	if container == nil {
		return PopulateResponse{}, ErrContainerNotFound
	}

	svc := s.Bind(client, nil, container)
	res := svc.AutoPopulateFromRequirements(ctx, req)
	sched.Advance(settleDelay)

	return PopulateResponse{
		PopulateResult: res,
		Stale:          svc.StalenessTracker().StaleItems(),
		Form:           doc.Render(),
	}, nil
}
