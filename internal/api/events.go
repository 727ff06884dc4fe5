package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/humastar"
	"github.com/joeblew999/plat-mapcraft/internal/service"
	"github.com/joeblew999/plat-mapcraft/internal/templates"
)

// EventHandler streams composer state transitions to Datastar clients.
// With a renderer it also patches the status and run-table fragments.
type EventHandler struct {
	compose  *service.ComposeService
	bus      *service.EventBus
	renderer *templates.Renderer
}

// NewEventHandler creates a new event handler. renderer may be nil.
func NewEventHandler(compose *service.ComposeService, bus *service.EventBus, renderer *templates.Renderer) *EventHandler {
	return &EventHandler{compose: compose, bus: bus, renderer: renderer}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/compose/events", h.Events, huma.OperationTags("events"))
	huma.Post(api, "/api/v1/compose/stream", h.ComposeStream, huma.OperationTags("events"))
}

type EventsInput struct {
	Run string `query:"run" doc:"Only stream transitions of this run"`
}

// Events streams every transition published on the bus.
func (h *EventHandler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if input.Run != "" && ev.RunID != input.Run {
					continue
				}
				h.send(sse, ev)
			}
		}
	}), nil
}

// ComposeStream runs a composition from Datastar signals and streams its
// transitions, then the outcome.
func (h *EventHandler) ComposeStream(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	var req service.ComposeRequest
	if err := signals.Decode(&req); err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}

	return humastar.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)

		type result struct {
			res *composer.Result
			err error
		}
		finished := make(chan result, 1)
		go func() {
			res, err := h.compose.Compose(ctx, req)
			finished <- result{res, err}
		}()

		for {
			select {
			case ev := <-ch:
				h.send(sse, ev)
			case r := <-finished:
				for drained := false; !drained; {
					select {
					case ev := <-ch:
						h.send(sse, ev)
					default:
						drained = true
					}
				}
				if r.res == nil {
					sse.Error(r.err.Error())
					return
				}
				if rec, ok := h.compose.Runs().Get(r.res.RunID); ok {
					h.patch(sse, "run-row", rec, "#runs", sse.Prepend)
				}
				if r.err != nil {
					sse.Error(r.res.Outcome.Reason)
					return
				}
				sse.Signals(map[string]any{"outputPath": r.res.OutputPath, "warnings": r.res.Warnings})
				sse.Success(r.res.Outcome.Reason)
				return
			}
		}
	}), nil
}

func (h *EventHandler) send(sse humastar.SSE, ev service.Event) {
	sse.Signals(eventSignals(ev))
	h.patch(sse, "run-event", ev, "#compose-status", sse.Patch)
}

func (h *EventHandler) patch(sse humastar.SSE, name string, data any, selector string, apply func(html, selector string)) {
	if h.renderer == nil {
		return
	}
	html, err := h.renderer.Render(name, data)
	if err != nil {
		sse.Error(err.Error())
		return
	}
	apply(html, selector)
}

func eventSignals(ev service.Event) map[string]any {
	return map[string]any{
		"runId": ev.RunID,
		"from":  ev.From,
		"state": ev.State,
		"error": ev.Error,
	}
}
